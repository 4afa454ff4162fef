package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRoundMoney_HalfAwayFromZero(t *testing.T) {
	tests := map[string]string{
		"1.005":  "1.01",
		"1.004":  "1",
		"-1.005": "-1.01",
		"2.675":  "2.68",
		"10":     "10",
	}
	for in, want := range tests {
		got := RoundMoney(decimal.RequireFromString(in))
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("RoundMoney(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestPercentOf(t *testing.T) {
	got := PercentOf(decimal.RequireFromString("33.33"), decimal.RequireFromString("12.5"))
	if got.StringFixed(2) != "4.17" {
		t.Errorf("expected 4.17, got %s", got)
	}
	if !PercentOf(decimal.NewFromInt(500), decimal.Zero).IsZero() {
		t.Error("zero percent must be zero")
	}
}

func TestDecimalOrZero(t *testing.T) {
	if !DecimalOrZero(nil).IsZero() {
		t.Error("nil must read as zero")
	}
	if v := DecimalOrZero(DecimalPtr(decimal.NewFromInt(7))); !v.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected 7, got %s", v)
	}
}
