package handler

import (
	"strconv"

	"contractor-payouts/internal/adapter/http/dto"
	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/response"

	"github.com/gin-gonic/gin"
)

// DashboardHandler handles the admin overview and audit trail.
type DashboardHandler struct {
	orgSvc        ports.OrgService
	onboardingSvc ports.OnboardingService
	contractorSvc ports.ContractorService
	auditSvc      ports.AuditService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(
	orgSvc ports.OrgService,
	onboardingSvc ports.OnboardingService,
	contractorSvc ports.ContractorService,
	auditSvc ports.AuditService,
) *DashboardHandler {
	return &DashboardHandler{
		orgSvc:        orgSvc,
		onboardingSvc: onboardingSvc,
		contractorSvc: contractorSvc,
		auditSvc:      auditSvc,
	}
}

// GetDashboard handles GET /api/v1/dashboard.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	checklist, err := h.onboardingSvc.State(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	wallet, err := h.orgSvc.OrgWallet(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	contractors, err := h.contractorSvc.List(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	counts := dto.ContractorCounts{
		Total:    len(contractors),
		ByStatus: make(map[string]int),
	}
	for i := range contractors {
		counts.ByStatus[string(contractors[i].Status)]++
		if contractors[i].KYCStatus == domain.KYCStatusPending {
			counts.KYCPending++
		}
	}

	done, total := checklist.Progress()
	response.OK(c, dto.DashboardResponse{
		Onboarding:  checklist,
		StepsDone:   done,
		StepsTotal:  total,
		OrgWallet:   wallet,
		Contractors: counts,
	})
}

// ListAudit handles GET /api/v1/audit.
func (h *DashboardHandler) ListAudit(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.auditSvc.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, logs)
}
