package handler

import (
	"contractor-payouts/internal/adapter/http/dto"
	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/response"

	"github.com/gin-gonic/gin"
)

// CardHandler handles spend card endpoints.
type CardHandler struct {
	cardSvc ports.CardService
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cardSvc ports.CardService) *CardHandler {
	return &CardHandler{cardSvc: cardSvc}
}

// Issue handles POST /api/v1/cards.
func (h *CardHandler) Issue(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.IssueCardRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)
	contractorID, ok := bodyUUID(c, req.ContractorID, "contractor_id")
	if !ok {
		return
	}

	card, err := h.cardSvc.Issue(c.Request.Context(), actor, ports.IssueCardRequest{
		ContractorID: contractorID,
		Label:        req.Label,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, card)
}

// SetStatus handles PUT /api/v1/cards/:id/status.
func (h *CardHandler) SetStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.SetCardStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	card, err := h.cardSvc.SetStatus(c.Request.Context(), actor, id, domain.CardStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, card)
}

// Get handles GET /api/v1/cards/:id.
func (h *CardHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	card, err := h.cardSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, card)
}
