package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"contractor-payouts/config"
	httpHandler "contractor-payouts/internal/adapter/http/handler"
	"contractor-payouts/internal/adapter/http/middleware"
	"contractor-payouts/internal/adapter/notify"
	"contractor-payouts/internal/adapter/provider"
	"contractor-payouts/internal/adapter/storage/memory"
	pgStorage "contractor-payouts/internal/adapter/storage/postgres"
	redisStorage "contractor-payouts/internal/adapter/storage/redis"
	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/internal/service"
	"contractor-payouts/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// repositories is the storage surface the services need, backed by either
// PostgreSQL or the in-memory store.
type repositories struct {
	orgs          ports.OrganizationRepository
	onboarding    ports.OnboardingRepository
	wallets       ports.WalletRepository
	ledger        ports.LedgerRepository
	invoices      ports.InvoiceRepository
	payouts       ports.PayoutRepository
	jobs          ports.JobRepository
	contractors   ports.ContractorRepository
	payoutMethods ports.PayoutMethodRepository
	cards         ports.CardRepository
	audit         ports.AuditRepository
	idempotency   ports.IdempotencyRepository
	transactor    ports.DBTransactor
}

// app is the fully wired process: storage, services and the shutdown hooks
// that release them.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	tokens     *service.JWTTokenService
	audit      *service.AuditServiceImpl
	onboarding *service.OnboardingServiceImpl
	ledger     *service.LedgerServiceImpl
	orgs       *service.OrgServiceImpl
	contracts  *service.ContractorServiceImpl
	invoices   *service.InvoiceServiceImpl
	payouts    *service.PayoutServiceImpl
	settlement *service.SettlementServiceImpl
	cards      *service.CardServiceImpl

	redis    *goredis.Client
	lease    ports.SweepLease
	checkers []ports.HealthChecker
	notifier ports.Notifier
	closers  []func()
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Pretty), nil
}

// newApp connects storage and builds every service. The caller must Close it.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required")
	}
	orgID, err := uuid.Parse(cfg.Org.ID)
	if err != nil {
		return nil, fmt.Errorf("org.id: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	repos, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var idempCache ports.IdempotencyCache
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = rdb
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		idempCache = redisStorage.NewIdempotencyCache(rdb)
		a.lease = redisStorage.NewSweepLease(rdb, leaseOwner())
		a.checkers = append(a.checkers, redisStorage.NewHealthCheck(rdb))
		log.Info().Str("addr", cfg.Redis.Addr()).Msg("redis connected")
	} else {
		log.Warn().Msg("redis disabled: no idempotency cache, sweep lease or rate limiting")
	}

	enc, err := service.NewAESEncryptionService(cfg.Security.PayoutMethodKey)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("payout method key: %w", err)
	}
	sig := service.NewHMACSignatureService()
	a.tokens = service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	notifyCfg := cfg.Notify
	if notifyCfg.SigningSecret == "" {
		notifyCfg.SigningSecret, err = service.DeriveSecret(cfg.Security.PayoutMethodKey, "notify-signing")
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("derive notification signing secret: %w", err)
		}
	}
	a.notifier, err = notify.New(notifyCfg, sig, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("notifier: %w", err)
	}

	a.audit = service.NewAuditService(repos.audit, log)
	// Pending audit writes finish before the notifier and storage close.
	a.closers = append(a.closers, func() { _ = a.notifier.Close() }, a.audit.Flush)
	effects := service.NewEffectDispatcher(a.notifier, a.audit, log)

	org := domain.Organization{ID: orgID, Name: cfg.Org.Name, Currency: cfg.Org.Currency}
	fx := provider.NewSimulatedFX(cfg.FX.QuoteTTL, cfg.FX.TransferETA, log)

	a.ledger = service.NewLedgerService(repos.wallets, repos.ledger, repos.transactor, effects, log)
	a.onboarding = service.NewOnboardingService(orgID, repos.onboarding, repos.transactor, effects, log)
	a.orgs = service.NewOrgService(org, repos.orgs, a.ledger, a.onboarding, repos.idempotency, idempCache, repos.transactor, effects, log)
	a.contracts = service.NewContractorService(orgID, repos.contractors, repos.payoutMethods, a.ledger, a.onboarding, enc, repos.transactor, effects, log)
	a.invoices = service.NewInvoiceService(org, repos.invoices, repos.contractors, repos.payouts, a.ledger, repos.transactor, effects, log)
	a.payouts = service.NewPayoutService(org, service.PayoutDeps{
		ContractorRepo: repos.contractors,
		MethodRepo:     repos.payoutMethods,
		InvoiceRepo:    repos.invoices,
		PayoutRepo:     repos.payouts,
		JobRepo:        repos.jobs,
		IdempRepo:      repos.idempotency,
		IdempCache:     idempCache,
		Ledger:         a.ledger,
		Onboarding:     a.onboarding,
		FX:             fx,
		Transactor:     repos.transactor,
		Effects:        effects,
	}, cfg.FX.TransferETA, log)
	a.settlement = service.NewSettlementService(org, repos.jobs, repos.payouts, a.ledger, fx, repos.transactor, effects,
		cfg.Worker.MaxAttempts, cfg.Worker.Backoff, log).WithPolling(cfg.Worker.PollWindow, cfg.Worker.StaleAfter)
	a.cards = service.NewCardService(repos.cards, repos.contractors, a.ledger, provider.NewSimulatedIssuer(log), repos.transactor, effects, log)

	if err := a.orgs.Bootstrap(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("bootstrap workspace: %w", err)
	}
	return a, nil
}

func (a *app) openStorage(ctx context.Context) (repositories, error) {
	if a.cfg.Database.Driver == "memory" {
		a.log.Warn().Msg("using in-memory storage; data is lost on exit")
		st := memory.New()
		return repositories{
			orgs:          st.Organizations(),
			onboarding:    st.Onboarding(),
			wallets:       st.Wallets(),
			ledger:        st.Ledger(),
			invoices:      st.Invoices(),
			payouts:       st.Payouts(),
			jobs:          st.Jobs(),
			contractors:   st.Contractors(),
			payoutMethods: st.PayoutMethods(),
			cards:         st.Cards(),
			audit:         st.Audit(),
			idempotency:   st.Idempotency(),
			transactor:    st,
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, a.cfg.Database, a.log)
	if err != nil {
		return repositories{}, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	if err := pgStorage.Migrate(ctx, pool, a.log); err != nil {
		return repositories{}, fmt.Errorf("migrate: %w", err)
	}
	a.checkers = append(a.checkers, pgStorage.NewHealthCheck(pool))

	return repositories{
		orgs:          pgStorage.NewOrganizationRepo(pool),
		onboarding:    pgStorage.NewOnboardingRepo(pool),
		wallets:       pgStorage.NewWalletRepo(pool),
		ledger:        pgStorage.NewLedgerRepo(pool),
		invoices:      pgStorage.NewInvoiceRepo(pool),
		payouts:       pgStorage.NewPayoutRepo(pool),
		jobs:          pgStorage.NewJobRepo(pool),
		contractors:   pgStorage.NewContractorRepo(pool),
		payoutMethods: pgStorage.NewPayoutMethodRepo(pool),
		cards:         pgStorage.NewCardRepo(pool),
		audit:         pgStorage.NewAuditRepo(pool),
		idempotency:   pgStorage.NewIdempotencyRepo(pool),
		transactor:    pgStorage.NewTransactor(pool),
	}, nil
}

// router mounts the HTTP API on the wired services. Rate limiting needs redis.
func (a *app) router() *gin.Engine {
	var rateLimitStore *redisStorage.RateLimitStore
	if a.redis != nil {
		rateLimitStore = redisStorage.NewRateLimitStore(a.redis)
	}

	return httpHandler.SetupRouter(httpHandler.RouterDeps{
		OrgSvc:         a.orgs,
		OnboardingSvc:  a.onboarding,
		LedgerSvc:      a.ledger,
		ContractorSvc:  a.contracts,
		InvoiceSvc:     a.invoices,
		PayoutSvc:      a.payouts,
		SettlementSvc:  a.settlement,
		CardSvc:        a.cards,
		AuditSvc:       a.audit,
		TokenSvc:       a.tokens,
		RateLimitStore: rateLimitStore,
		RateLimitRules: middleware.RateLimitRules(int64(a.cfg.RateLimit.Requests), a.cfg.RateLimit.Window),
		HealthCheckers: a.checkers,
		Mode:           a.cfg.Server.Mode,
		Logger:         logger.Component(a.log, "http"),
	})
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func leaseOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
