package handler

import (
	"strconv"

	"contractor-payouts/internal/adapter/http/dto"
	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/apperror"
	"contractor-payouts/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler exposes wallet balances and the ledger behind them.
type WalletHandler struct {
	ledgerSvc ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService) *WalletHandler {
	return &WalletHandler{ledgerSvc: ledgerSvc}
}

// loadWallet fetches the wallet named by the :id parameter. Contractors may
// only see their own wallet.
func (h *WalletHandler) loadWallet(c *gin.Context) (*domain.Wallet, bool) {
	actor, ok := requireActor(c)
	if !ok {
		return nil, false
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return nil, false
	}

	wallet, err := h.ledgerSvc.GetWallet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if actor.Role == domain.RoleContractor &&
		(wallet.OwnerType != domain.OwnerTypeContractor || wallet.OwnerID.String() != actor.UserID) {
		response.Error(c, apperror.ErrNotFound("wallet"))
		return nil, false
	}
	return wallet, true
}

// GetWallet handles GET /api/v1/wallets/:id.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	wallet, ok := h.loadWallet(c)
	if !ok {
		return
	}
	response.OK(c, wallet)
}

// ListEntries handles GET /api/v1/wallets/:id/entries.
func (h *WalletHandler) ListEntries(c *gin.Context) {
	wallet, ok := h.loadWallet(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	entries, total, err := h.ledgerSvc.ListEntries(c.Request.Context(), wallet.ID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, response.Page{
		Items:    entries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// VerifyWallet handles GET /api/v1/wallets/:id/verify.
func (h *WalletHandler) VerifyWallet(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	check, err := h.ledgerSvc.VerifyWallet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, check)
}

// ReverseEntry handles POST /api/v1/ledger/entries/:id/reverse.
func (h *WalletHandler) ReverseEntry(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ReverseEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.SanitizeStruct(&req)

	entry, err := h.ledgerSvc.Reverse(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}

// ownWallet resolves the contractor wallet for a contractor session.
func ownWallet(c *gin.Context, ledgerSvc ports.LedgerService, contractor *domain.Contractor) (*domain.Wallet, bool) {
	wallet, err := ledgerSvc.GetWalletByOwner(c.Request.Context(), domain.OwnerTypeContractor, contractor.ID, contractor.Currency)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return wallet, true
}

// contractorSelf parses a contractor session's user id.
func contractorSelf(actor domain.Actor) (uuid.UUID, bool) {
	if actor.Role != domain.RoleContractor {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(actor.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
