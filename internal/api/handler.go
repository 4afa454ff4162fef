// Package api exposes the auction engine over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/atmx/auction-settlement/internal/auth"
	"github.com/atmx/auction-settlement/internal/bidding"
	"github.com/atmx/auction-settlement/internal/invoice"
	"github.com/atmx/auction-settlement/internal/model"
	"github.com/atmx/auction-settlement/internal/notify"
	"github.com/atmx/auction-settlement/internal/settlement"
	"github.com/atmx/auction-settlement/internal/winner"
)

// Deps are the services behind the HTTP surface. Hub is optional.
type Deps struct {
	Bids             *bidding.Service
	Winners          *winner.Engine
	Invoices         *invoice.Generator
	Settlements      *settlement.Generator
	Verifier         *auth.Verifier
	Hub              *notify.WSHub
	BatchConcurrency int
}

// Handler serves the /api/v1 routes.
type Handler struct {
	Deps
	validate *validator.Validate
	policy   *bluemonday.Policy
}

func NewHandler(d Deps) *Handler {
	if d.BatchConcurrency <= 0 {
		d.BatchConcurrency = settlement.DefaultBatchConcurrency
	}
	return &Handler{Deps: d, validate: newValidator(), policy: bluemonday.StrictPolicy()}
}

// Routes returns the API router, meant to be mounted at /api/v1.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.Verifier.Middleware)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)
		r.Post("/items/{itemID}/bids", h.PlaceBid)
		r.Get("/invoices/{invoiceID}", h.GetInvoice)
		r.Get("/settlements/{settlementID}", h.GetStatement)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)

		r.Get("/auctions/{auctionID}/winners", h.ResolveWinners)
		r.Post("/auctions/{auctionID}/close", h.CloseAuction)
		r.Get("/auctions/{auctionID}/invoices", h.ListInvoices)
		r.Post("/invoices/{invoiceID}/pay", h.PayInvoice)

		r.Post("/settlements", h.GenerateSettlement)
		r.Post("/settlements/batch", h.GenerateSettlementBatch)
		r.Put("/settlements/{settlementID}/adjustments", h.UpdateAdjustments)
		r.Post("/settlements/{settlementID}/submit", h.SubmitSettlement)
		r.Post("/settlements/{settlementID}/pay", h.PaySettlement)
		r.Post("/settlements/{settlementID}/cancel", h.CancelSettlement)

		if h.Hub != nil {
			r.Get("/ws", h.Hub.HandleWS)
		}
	})
	return r
}

// --- Bidding ---

// PlaceBid handles POST /items/{itemID}/bids
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	var req PlaceBidRequest
	if err := h.decode(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	caller, _ := auth.FromContext(r.Context())

	receipt, err := h.Bids.PlaceBid(r.Context(), bidding.PlaceBidInput{
		ItemID:   chi.URLParam(r, "itemID"),
		BidderID: caller.UserID,
		Amount:   req.Amount,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// --- Closing and invoices ---

// ResolveWinners handles GET /auctions/{auctionID}/winners
func (h *Handler) ResolveWinners(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "auctionID")
	groups, err := h.Winners.Resolve(r.Context(), auctionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"auction_id": auctionID,
		"winners":    groups,
	})
}

// CloseAuction handles POST /auctions/{auctionID}/close[?resume=true]
func (h *Handler) CloseAuction(w http.ResponseWriter, r *http.Request) {
	var opts invoice.CloseOptions
	if v := r.URL.Query().Get("resume"); v != "" {
		resume, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, "resume must be a boolean", http.StatusBadRequest)
			return
		}
		opts.Resume = resume
	}

	res, err := h.Invoices.CloseAndInvoice(r.Context(), chi.URLParam(r, "auctionID"), opts)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListInvoices handles GET /auctions/{auctionID}/invoices
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Invoices.ListByAuction(r.Context(), chi.URLParam(r, "auctionID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if invoices == nil {
		invoices = []model.Invoice{}
	}
	writeJSON(w, http.StatusOK, invoices)
}

// GetInvoice handles GET /invoices/{invoiceID}. Bidders see only their own.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Invoices.Get(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if caller, _ := auth.FromContext(r.Context()); !caller.IsAdmin() && caller.UserID != inv.BidderID {
		writeError(w, "not your invoice", http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// PayInvoice handles POST /invoices/{invoiceID}/pay
func (h *Handler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Invoices.MarkPaid(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// --- Settlements ---

// GenerateSettlement handles POST /settlements
func (h *Handler) GenerateSettlement(w http.ResponseWriter, r *http.Request) {
	var req GenerateSettlementRequest
	if err := h.decode(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	stl, err := h.Settlements.Generate(r.Context(), settlement.GenerateInput{
		SellerID:       req.SellerID,
		AuctionID:      req.AuctionID,
		CommissionRate: req.CommissionRate,
		Adjustments:    h.adjustments(req.Adjustments),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stl)
}

// GenerateSettlementBatch handles POST /settlements/batch
func (h *Handler) GenerateSettlementBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchSettlementRequest
	if err := h.decode(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.Concurrency == 0 {
		req.Concurrency = h.BatchConcurrency
	}

	res, err := h.Settlements.GenerateBatch(r.Context(), settlement.BatchInput{
		AuctionID:      req.AuctionID,
		CommissionRate: req.CommissionRate,
		Concurrency:    req.Concurrency,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetStatement handles GET /settlements/{settlementID}. Sellers see only
// their own statements.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	stmt, err := h.Settlements.Statement(r.Context(), chi.URLParam(r, "settlementID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if caller, _ := auth.FromContext(r.Context()); !caller.IsAdmin() && caller.UserID != stmt.SellerID {
		writeError(w, "not your settlement", http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, stmt)
}

// UpdateAdjustments handles PUT /settlements/{settlementID}/adjustments
func (h *Handler) UpdateAdjustments(w http.ResponseWriter, r *http.Request) {
	var req UpdateAdjustmentsRequest
	if err := h.decode(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	stl, err := h.Settlements.UpdateAdjustments(r.Context(), chi.URLParam(r, "settlementID"), h.adjustments(req.Adjustments))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stl)
}

func (h *Handler) SubmitSettlement(w http.ResponseWriter, r *http.Request) {
	h.settlementTransition(w, r, h.Settlements.Submit)
}

func (h *Handler) PaySettlement(w http.ResponseWriter, r *http.Request) {
	h.settlementTransition(w, r, h.Settlements.MarkPaid)
}

func (h *Handler) CancelSettlement(w http.ResponseWriter, r *http.Request) {
	h.settlementTransition(w, r, h.Settlements.Cancel)
}

func (h *Handler) settlementTransition(w http.ResponseWriter, r *http.Request, move func(context.Context, string) (*model.Settlement, error)) {
	stl, err := move(r.Context(), chi.URLParam(r, "settlementID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stl)
}
