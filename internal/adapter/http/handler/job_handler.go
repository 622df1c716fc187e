package handler

import (
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/response"

	"github.com/gin-gonic/gin"
)

// JobHandler lets an operator trigger a settlement sweep on demand.
type JobHandler struct {
	settlementSvc ports.SettlementService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(settlementSvc ports.SettlementService) *JobHandler {
	return &JobHandler{settlementSvc: settlementSvc}
}

// Sweep handles POST /api/v1/jobs/sweep.
func (h *JobHandler) Sweep(c *gin.Context) {
	report, err := h.settlementSvc.Sweep(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
