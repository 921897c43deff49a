package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"split-escrow/config"
	"split-escrow/internal/adapter/cache"
	httpHandler "split-escrow/internal/adapter/http/handler"
	"split-escrow/internal/adapter/ledger"
	pgStorage "split-escrow/internal/adapter/storage/postgres"
	redisStorage "split-escrow/internal/adapter/storage/redis"
	"split-escrow/internal/core/ports"
	"split-escrow/internal/metrics"
	"split-escrow/internal/service"
	"split-escrow/pkg/logger"
	"split-escrow/pkg/retry"
	"split-escrow/pkg/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("split-escrow", cfg.Log.Level, cfg.Log.Pretty)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("currency", cfg.Ledger.Currency).
		Msg("Starting split escrow service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing.OTLPEndpoint, cfg.Tracing.ServiceName, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(ctx, pool, "up"); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Migrations applied")
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize ledger gateway
	gateway, err := ledger.NewGateway(cfg.Ledger, logger.Component(log, "ledger"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to ledger")
	}
	defer gateway.Close()
	log.Info().Int64("chain_id", cfg.Ledger.ChainID).Msg("Ledger connected")

	// Initialize core services
	sealer, err := service.NewAESSecretSealer(cfg.Custody.MasterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize custody sealer")
	}
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	owedTolerance, err := decimal.NewFromString(cfg.Escrow.OwedTolerance)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid escrow.owed_tolerance")
	}
	syncTolerance, err := decimal.NewFromString(cfg.Escrow.SyncTolerance)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid escrow.sync_tolerance")
	}

	storePolicy := retry.Policy{
		Attempts:   cfg.Escrow.RetryAttempts,
		BaseDelay:  cfg.Escrow.RetryBaseDelay,
		Multiplier: cfg.Escrow.RetryMultiplier,
	}
	confirmPolicy := retry.Policy{
		Attempts:   cfg.Ledger.ConfirmationAttempts,
		BaseDelay:  cfg.Ledger.ConfirmationBaseDelay,
		Multiplier: 2,
	}

	// Initialize repositories
	walletRepo := pgStorage.NewEscrowWalletRepo(pool)
	splitRepo := pgStorage.NewSplitRepo(pool)
	custodyRepo := pgStorage.NewCustodyRepo(pool, sealer)
	addressRepo := pgStorage.NewAddressRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	walletCache := cache.NewWalletCache(cfg.Escrow.CacheMaxEntries, cfg.Escrow.CacheTTL)
	keys := ledger.KeyFactory{}

	// Initialize business services
	custodySvc := service.NewKeyCustodyService(custodyRepo, storePolicy, logger.Component(log, "custody"))
	syncSvc := service.NewSyncService(walletRepo, splitRepo, storePolicy, syncTolerance, logger.Component(log, "sync"))
	reconciler := service.NewReconciliationService(walletRepo, walletCache, gateway, syncSvc, cfg.Escrow.ReconcileBatch, logger.Component(log, "reconciler"))
	creationSvc := service.NewCreationService(walletRepo, walletCache, custodySvc, syncSvc, keys, addressRepo, owedTolerance, logger.Component(log, "creation"))
	paymentSvc := service.NewPaymentService(
		walletRepo,
		walletCache,
		gateway,
		custodySvc,
		syncSvc,
		reconciler,
		keys,
		idempotencyCache,
		service.PaymentConfig{
			FundRefTTL:     cfg.Escrow.FundRefTTL,
			ReservationTTL: cfg.Escrow.ReservationTTL,
			Confirmation:   confirmPolicy,
		},
		logger.Component(log, "payments"),
	)
	rouletteSvc := service.NewRouletteService(walletRepo, walletCache, syncSvc, reconciler, logger.Component(log, "roulette"))
	querySvc := service.NewQueryService(walletRepo, walletCache)
	auditSvc := service.NewAuditService(auditRepo, log)

	go reconciler.Run(ctx, cfg.Escrow.ReconcileInterval)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Creation:       creationSvc,
		Payments:       paymentSvc,
		Roulette:       rouletteSvc,
		Sync:           syncSvc,
		Query:          querySvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		AuditSvc:       auditSvc,
		HealthCheckers: []ports.HealthChecker{
			pgStorage.NewHealthCheck(pool),
			redisStorage.NewHealthCheck(rdb),
			ledger.NewHealthCheck(gateway),
		},
		Mode:   cfg.Server.Mode,
		Logger: log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Tracer shutdown failed")
	}

	log.Info().Msg("Server exited")
}
