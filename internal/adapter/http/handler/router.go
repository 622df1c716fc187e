package handler

import (
	"contractor-payouts/internal/adapter/http/middleware"
	redisStore "contractor-payouts/internal/adapter/storage/redis"
	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	OrgSvc         ports.OrgService
	OnboardingSvc  ports.OnboardingService
	LedgerSvc      ports.LedgerService
	ContractorSvc  ports.ContractorService
	InvoiceSvc     ports.InvoiceService
	PayoutSvc      ports.PayoutService
	SettlementSvc  ports.SettlementService
	CardSvc        ports.CardService
	AuditSvc       ports.AuditService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	RateLimitRules map[string]middleware.RateLimitRule
	HealthCheckers []ports.HealthChecker
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode == "" {
		deps.Mode = gin.ReleaseMode
	}
	gin.SetMode(deps.Mode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := deps.RateLimitRules
	if rules == nil {
		rules = middleware.RateLimitRules(0, 0)
	}

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	can := middleware.RequirePermission
	twoFA := middleware.RequireSecondFactor(deps.OnboardingSvc, deps.Logger)

	orgHandler := NewOrgHandler(deps.OrgSvc, deps.OnboardingSvc)
	walletHandler := NewWalletHandler(deps.LedgerSvc)
	contractorHandler := NewContractorHandler(deps.ContractorSvc, deps.LedgerSvc, deps.TokenSvc)
	invoiceHandler := NewInvoiceHandler(deps.InvoiceSvc)
	payoutHandler := NewPayoutHandler(deps.PayoutSvc)
	jobHandler := NewJobHandler(deps.SettlementSvc)
	cardHandler := NewCardHandler(deps.CardSvc)
	dashboardHandler := NewDashboardHandler(deps.OrgSvc, deps.OnboardingSvc, deps.ContractorSvc, deps.AuditSvc)

	v1 := r.Group("/api/v1")

	// --- Public routes (invite token is the credential) ---
	v1.POST("/contractors/accept", rl(middleware.GroupPublic), contractorHandler.Accept)

	// --- JWT-authenticated routes ---
	api := v1.Group("", middleware.JWTAuth(deps.TokenSvc, deps.Logger))

	api.GET("/onboarding", rl(middleware.GroupRead), can(domain.PermViewDashboard), orgHandler.GetOnboarding)
	api.GET("/dashboard", rl(middleware.GroupRead), can(domain.PermViewContractors), dashboardHandler.GetDashboard)
	api.GET("/audit", rl(middleware.GroupRead), can(domain.PermViewAuditLog), dashboardHandler.ListAudit)
	api.GET("/me", rl(middleware.GroupRead), can(domain.PermViewDashboard), contractorHandler.Me)

	org := api.Group("/org")
	{
		org.GET("", rl(middleware.GroupRead), can(domain.PermViewDashboard), orgHandler.GetOrg)
		org.PUT("/profile", rl(middleware.GroupWrite), can(domain.PermManageOrgSecurity), twoFA, orgHandler.UpdateProfile)
		org.PUT("/security", rl(middleware.GroupWrite), can(domain.PermManageOrgSecurity), twoFA, orgHandler.UpdateSecurity)
		org.POST("/approval-rules", rl(middleware.GroupWrite), can(domain.PermApproveInvoice), twoFA, orgHandler.SetApprovalRules)
	}

	wallets := api.Group("/wallets")
	{
		wallets.GET("/org", rl(middleware.GroupRead), can(domain.PermViewContractors), orgHandler.GetOrgWallet)
		wallets.POST("/org/fund", rl(middleware.GroupMoney), can(domain.PermCreatePayout), twoFA, orgHandler.FundWallet)
		wallets.GET("/:id", rl(middleware.GroupRead), can(domain.PermViewDashboard), walletHandler.GetWallet)
		wallets.GET("/:id/entries", rl(middleware.GroupRead), can(domain.PermViewDashboard), walletHandler.ListEntries)
		wallets.GET("/:id/verify", rl(middleware.GroupRead), can(domain.PermViewAuditLog), walletHandler.VerifyWallet)
	}

	api.POST("/ledger/entries/:id/reverse", rl(middleware.GroupMoney), can(domain.PermCreatePayout), twoFA, walletHandler.ReverseEntry)

	contractors := api.Group("/contractors")
	{
		contractors.POST("", rl(middleware.GroupWrite), can(domain.PermInviteContractor), twoFA, contractorHandler.Invite)
		contractors.GET("", rl(middleware.GroupRead), can(domain.PermViewContractors), contractorHandler.List)
		contractors.GET("/:id", rl(middleware.GroupRead), can(domain.PermViewContractors), contractorHandler.Get)
		contractors.PUT("/:id/kyc", rl(middleware.GroupWrite), can(domain.PermInviteContractor), twoFA, contractorHandler.UpdateKYC)
		contractors.PUT("/:id/contract", rl(middleware.GroupWrite), can(domain.PermInviteContractor), twoFA, contractorHandler.SetContract)
		contractors.PUT("/:id/payout-method", rl(middleware.GroupWrite), can(domain.PermInviteContractor), twoFA, contractorHandler.SavePayoutMethod)
	}

	invoices := api.Group("/invoices")
	{
		invoices.POST("", rl(middleware.GroupWrite), can(domain.PermCreateInvoice), twoFA, invoiceHandler.Submit)
		invoices.GET("/:id", rl(middleware.GroupRead), can(domain.PermViewApprovals), invoiceHandler.Get)
		invoices.POST("/:id/approve", rl(middleware.GroupWrite), can(domain.PermApproveInvoice), twoFA, invoiceHandler.Approve)
		invoices.POST("/:id/pay", rl(middleware.GroupMoney), can(domain.PermCreatePayout), twoFA, invoiceHandler.Pay)
	}

	payouts := api.Group("/payouts")
	{
		payouts.POST("", rl(middleware.GroupMoney), can(domain.PermCreatePayout), twoFA, payoutHandler.Create)
		payouts.POST("/withdraw", rl(middleware.GroupMoney), can(domain.PermWithdrawFunds), twoFA, payoutHandler.Withdraw)
		payouts.GET("/:id", rl(middleware.GroupRead), can(domain.PermViewDashboard), payoutHandler.Get)
	}

	api.POST("/fx/quote", rl(middleware.GroupRead), can(domain.PermViewDashboard), payoutHandler.Quote)
	api.POST("/jobs/sweep", rl(middleware.GroupWorker), can(domain.PermCreatePayout), jobHandler.Sweep)

	cards := api.Group("/cards")
	{
		cards.POST("", rl(middleware.GroupMoney), can(domain.PermIssueCard), twoFA, cardHandler.Issue)
		cards.GET("/:id", rl(middleware.GroupRead), can(domain.PermViewContractors), cardHandler.Get)
		cards.PUT("/:id/status", rl(middleware.GroupWrite), can(domain.PermIssueCard), twoFA, cardHandler.SetStatus)
	}

	return r
}
