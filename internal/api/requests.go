package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/atmx/auction-settlement/internal/model"
)

const maxBodyBytes = 1 << 20

// PlaceBidRequest is the body of POST /items/{itemID}/bids. The bidder is
// the authenticated caller.
type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// AdjustmentRequest is one seller-side charge.
type AdjustmentRequest struct {
	Type   string          `json:"type" validate:"required,oneof=expense deduction"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty" validate:"max=500"`
}

// GenerateSettlementRequest is the body of POST /settlements.
type GenerateSettlementRequest struct {
	SellerID       string              `json:"seller_id" validate:"required,max=128"`
	AuctionID      *string             `json:"auction_id,omitempty" validate:"omitempty,min=1,max=128"`
	CommissionRate decimal.Decimal     `json:"commission_rate"`
	Adjustments    []AdjustmentRequest `json:"adjustments" validate:"max=100,dive"`
}

// BatchSettlementRequest is the body of POST /settlements/batch.
type BatchSettlementRequest struct {
	AuctionID      *string         `json:"auction_id,omitempty" validate:"omitempty,min=1,max=128"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Concurrency    int             `json:"concurrency" validate:"gte=0,lte=64"`
}

// UpdateAdjustmentsRequest is the body of PUT /settlements/{id}/adjustments.
type UpdateAdjustmentsRequest struct {
	Adjustments []AdjustmentRequest `json:"adjustments" validate:"max=100,dive"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", model.ErrInvalid, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
				return fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			})
			return fmt.Errorf("%w: %s", model.ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", model.ErrInvalid, err)
	}
	return nil
}

// adjustments converts request adjustments and strips markup from notes.
func (h *Handler) adjustments(in []AdjustmentRequest) []model.Adjustment {
	return lo.Map(in, func(a AdjustmentRequest, _ int) model.Adjustment {
		return model.Adjustment{
			Type:   model.AdjustmentType(a.Type),
			Amount: a.Amount,
			Note:   strings.TrimSpace(h.policy.Sanitize(a.Note)),
		}
	})
}
