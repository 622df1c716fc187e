package handler

import (
	"contractor-payouts/internal/adapter/http/dto"
	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/apperror"
	"contractor-payouts/pkg/response"

	"github.com/gin-gonic/gin"
)

// ContractorHandler handles contractor onboarding endpoints.
type ContractorHandler struct {
	contractorSvc ports.ContractorService
	ledgerSvc     ports.LedgerService
	tokenSvc      ports.TokenService
}

// NewContractorHandler creates a new ContractorHandler.
func NewContractorHandler(contractorSvc ports.ContractorService, ledgerSvc ports.LedgerService, tokenSvc ports.TokenService) *ContractorHandler {
	return &ContractorHandler{contractorSvc: contractorSvc, ledgerSvc: ledgerSvc, tokenSvc: tokenSvc}
}

// Invite handles POST /api/v1/contractors.
func (h *ContractorHandler) Invite(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.InviteContractorRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.contractorSvc.Invite(c.Request.Context(), actor, ports.InviteContractorRequest{
		Name:     req.Name,
		Email:    req.Email,
		Country:  req.Country,
		Currency: req.Currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Accept handles POST /api/v1/contractors/accept. The invite token is the
// only credential, so the response carries a contractor session token.
func (h *ContractorHandler) Accept(c *gin.Context) {
	var req dto.AcceptInviteRequest
	if !bindJSON(c, &req) {
		return
	}

	contractor, err := h.contractorSvc.AcceptInvite(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, expiresAt, err := h.tokenSvc.Generate(contractor.ID.String(), domain.RoleContractor, false)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, dto.AcceptInviteResponse{
		Contractor:  contractor,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	})
}

// UpdateKYC handles PUT /api/v1/contractors/:id/kyc.
func (h *ContractorHandler) UpdateKYC(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateKYCRequest
	if !bindJSON(c, &req) {
		return
	}

	contractor, err := h.contractorSvc.UpdateKYC(c.Request.Context(), actor, id, domain.KYCStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, contractor)
}

// SetContract handles PUT /api/v1/contractors/:id/contract.
func (h *ContractorHandler) SetContract(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.SetContractRequest
	if !bindJSON(c, &req) {
		return
	}

	contractor, err := h.contractorSvc.SetContract(c.Request.Context(), actor, id, *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, contractor)
}

// SavePayoutMethod handles PUT /api/v1/contractors/:id/payout-method.
func (h *ContractorHandler) SavePayoutMethod(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.SavePayoutMethodRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	method, err := h.contractorSvc.SavePayoutMethod(c.Request.Context(), actor, ports.SavePayoutMethodRequest{
		ContractorID:  id,
		Type:          domain.PayoutMethodType(req.Type),
		Currency:      req.Currency,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, method)
}

// Get handles GET /api/v1/contractors/:id.
func (h *ContractorHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	contractor, err := h.contractorSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, contractor)
}

// List handles GET /api/v1/contractors.
func (h *ContractorHandler) List(c *gin.Context) {
	contractors, err := h.contractorSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, contractors)
}

// Me handles GET /api/v1/me for contractor sessions.
func (h *ContractorHandler) Me(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := contractorSelf(actor)
	if !ok {
		response.Error(c, apperror.ErrForbidden())
		return
	}

	contractor, err := h.contractorSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	wallet, ok := ownWallet(c, h.ledgerSvc, contractor)
	if !ok {
		return
	}

	response.OK(c, gin.H{
		"contractor": contractor,
		"wallet":     wallet,
	})
}
