package handler

import (
	"contractor-payouts/internal/adapter/http/dto"
	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/apperror"
	"contractor-payouts/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PayoutHandler handles payouts, withdrawals and FX previews.
type PayoutHandler struct {
	payoutSvc ports.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler.
func NewPayoutHandler(payoutSvc ports.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutSvc: payoutSvc}
}

// Create handles POST /api/v1/payouts.
func (h *PayoutHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}
	var req dto.CreatePayoutRequest
	if !bindJSON(c, &req) {
		return
	}
	contractorID, ok := bodyUUID(c, req.ContractorID, "contractor_id")
	if !ok {
		return
	}
	var invoiceID *uuid.UUID
	if req.InvoiceID != nil {
		id, ok := bodyUUID(c, *req.InvoiceID, "invoice_id")
		if !ok {
			return
		}
		invoiceID = &id
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	payout, err := h.payoutSvc.Create(c.Request.Context(), actor, ports.CreatePayoutRequest{
		ContractorID:   contractorID,
		InvoiceID:      invoiceID,
		Amount:         amount,
		IdempotencyKey: key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payout)
}

// Withdraw handles POST /api/v1/payouts/withdraw. Contractor sessions always
// withdraw from their own wallet; admins must name the contractor.
func (h *PayoutHandler) Withdraw(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}
	var req dto.WithdrawRequest
	if !bindJSON(c, &req) {
		return
	}

	var contractorID uuid.UUID
	if actor.Role == domain.RoleContractor {
		self, ok := contractorSelf(actor)
		if !ok {
			response.Error(c, apperror.ErrInvalidToken())
			return
		}
		if req.ContractorID != "" && req.ContractorID != self.String() {
			response.Error(c, apperror.ErrForbidden())
			return
		}
		contractorID = self
	} else {
		if req.ContractorID == "" {
			response.Error(c, apperror.Validation("contractor_id is required"))
			return
		}
		if contractorID, ok = bodyUUID(c, req.ContractorID, "contractor_id"); !ok {
			return
		}
	}

	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	payout, err := h.payoutSvc.Withdraw(c.Request.Context(), actor, ports.WithdrawRequest{
		ContractorID:        contractorID,
		Amount:              amount,
		DestinationCurrency: req.DestinationCurrency,
		IdempotencyKey:      key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payout)
}

// Get handles GET /api/v1/payouts/:id.
func (h *PayoutHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	payout, err := h.payoutSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if actor.Role == domain.RoleContractor && payout.ContractorID.String() != actor.UserID {
		response.Error(c, apperror.ErrNotFound("payout"))
		return
	}
	response.OK(c, payout)
}

// Quote handles POST /api/v1/fx/quote. Nothing is persisted.
func (h *PayoutHandler) Quote(c *gin.Context) {
	var req dto.QuoteRequest
	if !bindJSON(c, &req) {
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	quote, err := h.payoutSvc.PreviewQuote(c.Request.Context(), req.SourceCurrency, req.DestinationCurrency, amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, quote)
}
