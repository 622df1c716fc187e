package handler

import (
	"contractor-payouts/internal/adapter/http/dto"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/response"

	"github.com/gin-gonic/gin"
)

// InvoiceHandler drives invoices through submit, approve and pay.
type InvoiceHandler struct {
	invoiceSvc ports.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoiceSvc ports.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceSvc: invoiceSvc}
}

// Submit handles POST /api/v1/invoices.
func (h *InvoiceHandler) Submit(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.SubmitInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)
	contractorID, ok := bodyUUID(c, req.ContractorID, "contractor_id")
	if !ok {
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	invoice, err := h.invoiceSvc.Submit(c.Request.Context(), actor, ports.SubmitInvoiceRequest{
		ContractorID: contractorID,
		Amount:       amount,
		Currency:     req.Currency,
		Description:  req.Description,
		DueDate:      req.DueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invoice)
}

// Approve handles POST /api/v1/invoices/:id/approve.
func (h *InvoiceHandler) Approve(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoiceSvc.Approve(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, invoice)
}

// Pay handles POST /api/v1/invoices/:id/pay. Paying an already-paid invoice
// is a no-op and still answers 200.
func (h *InvoiceHandler) Pay(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.invoiceSvc.Pay(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Get handles GET /api/v1/invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoiceSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, invoice)
}
