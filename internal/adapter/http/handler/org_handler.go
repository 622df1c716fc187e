package handler

import (
	"contractor-payouts/internal/adapter/http/dto"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/response"

	"github.com/gin-gonic/gin"
)

// OrgHandler serves the workspace profile, security policy and onboarding checklist.
type OrgHandler struct {
	orgSvc        ports.OrgService
	onboardingSvc ports.OnboardingService
}

// NewOrgHandler creates a new OrgHandler.
func NewOrgHandler(orgSvc ports.OrgService, onboardingSvc ports.OnboardingService) *OrgHandler {
	return &OrgHandler{orgSvc: orgSvc, onboardingSvc: onboardingSvc}
}

// GetOnboarding handles GET /api/v1/onboarding.
func (h *OrgHandler) GetOnboarding(c *gin.Context) {
	state, err := h.onboardingSvc.State(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, state)
}

// GetOrg handles GET /api/v1/org.
func (h *OrgHandler) GetOrg(c *gin.Context) {
	org, err := h.orgSvc.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, org)
}

// UpdateProfile handles PUT /api/v1/org/profile.
func (h *OrgHandler) UpdateProfile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.UpdateOrgProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	org, err := h.orgSvc.UpdateProfile(c.Request.Context(), actor, ports.UpdateOrgProfileRequest{
		Name:      req.Name,
		LegalName: req.LegalName,
		Country:   req.Country,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, org)
}

// UpdateSecurity handles PUT /api/v1/org/security.
func (h *OrgHandler) UpdateSecurity(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.UpdateSecurityRequest
	if !bindJSON(c, &req) {
		return
	}

	state, err := h.onboardingSvc.SetRequire2FA(c.Request.Context(), actor, *req.Require2FAForAdmins)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, state)
}

// SetApprovalRules handles POST /api/v1/org/approval-rules.
func (h *OrgHandler) SetApprovalRules(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	state, err := h.onboardingSvc.SetApprovalRules(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, state)
}

// FundWallet handles POST /api/v1/wallets/org/fund.
func (h *OrgHandler) FundWallet(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}
	var req dto.FundWalletRequest
	if !bindJSON(c, &req) {
		return
	}
	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	entry, err := h.orgSvc.FundWallet(c.Request.Context(), actor, ports.FundWalletRequest{
		Amount:         amount,
		IdempotencyKey: key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// GetOrgWallet handles GET /api/v1/wallets/org.
func (h *OrgHandler) GetOrgWallet(c *gin.Context) {
	wallet, err := h.orgSvc.OrgWallet(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}
