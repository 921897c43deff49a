package handler

import (
	"split-escrow/internal/adapter/http/middleware"
	"split-escrow/internal/core/ports"
	"split-escrow/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Creation       ports.CreationService
	Payments       ports.PaymentProcessor
	Roulette       ports.RouletteSelector
	Sync           ports.DataSynchronizer
	Query          ports.QueryService
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	AuditSvc       ports.AuditService   // nil = audit logging disabled
	HealthCheckers []ports.HealthChecker
	Mode           string // gin mode; defaults to release
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(metrics.Middleware())
	r.Use(middleware.MaxBodySize(1 << 20))

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", metrics.Handler())

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	v1 := r.Group("/api/v1", jwtAuth)

	escrow := NewEscrowHandler(deps.Creation, deps.Payments, deps.Roulette, deps.Query)
	escrows := v1.Group("/escrows")
	{
		escrows.POST("", rl("escrow_create"), escrow.Create)
		escrows.GET("/:id", rl("escrow_read"), escrow.Get)
		escrows.POST("/:id/fund", rl("escrow_fund"), escrow.Fund)
		escrows.POST("/:id/extract", rl("escrow_settle"), escrow.Extract)
		escrows.POST("/:id/spin", rl("escrow_settle"), escrow.Spin)
		escrows.GET("/:id/selection/verify", rl("escrow_read"), escrow.VerifySelection)
		escrows.POST("/:id/payout", rl("escrow_settle"), escrow.Payout)
		escrows.POST("/:id/claim", rl("escrow_settle"), escrow.Claim)
		escrows.POST("/:id/cancel", rl("escrow_settle"), escrow.Cancel)
	}

	bill := NewBillHandler(deps.Sync, deps.Query)
	bills := v1.Group("/bills/:billId")
	{
		bills.GET("/escrow", rl("escrow_read"), escrow.GetByBill)
		bills.GET("/consistency", rl("escrow_read"), bill.Consistency)
		bills.POST("/sync", rl("bill_sync"), bill.Sync)
	}

	return r
}
