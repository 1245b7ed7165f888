package api

import (
	"net/http" // HTTP status codes

	"rewards_system/internal/accounts"   // Account store
	"rewards_system/internal/catalog"    // Catalog store
	"rewards_system/internal/ledger"     // Ledger engine
	"rewards_system/internal/logger"     // Request logging
	"rewards_system/internal/metrics"    // Prometheus endpoint
	"rewards_system/internal/middleware" // Auth, rate limiting, idempotency
	"rewards_system/internal/realtime"   // Websocket hub
	"rewards_system/internal/rewards"    // Reward rules

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Deps are the services the HTTP layer routes to
type Deps struct {
	DB        *gorm.DB                // Health checks and admin role lookups
	JWTSecret string                  // Token signing key
	Accounts  *accounts.Store         // Registration, login, referrals
	Catalog   *catalog.Store          // Packages, products, tasks, gifts
	Ledger    *ledger.Engine          // History and reconciliation
	Rewards   *rewards.Service        // Reward rules
	Hub       *realtime.Hub           // Balance change stream
	Limiter   *middleware.RateLimiter // Reward endpoint budget
}

// NewRouter wires every route onto a fresh gin engine
func NewRouter(d Deps, trustedProxies ...string) (*gin.Engine, error) {
	r := gin.New()                      // Gin router instance
	r.Use(gin.Recovery(), logger.Gin()) // Panics become 500s, requests are logged with logrus
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, err
	}

	auth := middleware.JWTAuthMiddleware(d.JWTSecret) // Shared JWT check

	// Auth routes
	r.POST("/user", RegisterHandler(d.Accounts))    // Registration endpoint
	r.POST("/user/login", LoginHandler(d.Accounts)) // Login endpoint
	r.GET("/user", LoginHandler(d.Accounts))        // Login endpoint, older clients

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet", auth, middleware.Idempotency())
	walletGroup.GET("", GetAccountHandler(d.Accounts))                    // Account state endpoint
	walletGroup.GET("/transactions", TransactionHistoryHandler(d.Ledger)) // Transaction history endpoint
	walletGroup.POST("/deposit", DepositHandler(d.Rewards))               // Deposit endpoint
	walletGroup.POST("/withdraw", WithdrawHandler(d.Rewards))             // Withdrawal request endpoint
	walletGroup.GET("/withdrawals", ListWithdrawalsHandler(d.Rewards))    // Withdrawal history endpoint
	walletGroup.GET("/reconcile", ReconcileHandler(d.Ledger))             // Balance check endpoint

	// Reward routes (JWT and per-account rate limit)
	rewardGroup := r.Group("/rewards", auth, d.Limiter.Handler(), middleware.Idempotency())
	rewardGroup.POST("/daily-bonus", DailyBonusHandler(d.Rewards))          // Daily bonus endpoint
	rewardGroup.POST("/tasks/:id/complete", CompleteTaskHandler(d.Rewards)) // Task completion endpoint
	rewardGroup.POST("/spin", SpinHandler(d.Rewards))                       // Spin wheel endpoint
	rewardGroup.POST("/gifts/:id/claim", ClaimGiftHandler(d.Rewards))       // Gift claim endpoint
	rewardGroup.GET("/referrals", ReferralsHandler(d.Accounts))             // Referral listing endpoint

	// Investment routes
	investGroup := r.Group("/invest", auth, middleware.Idempotency())
	investGroup.GET("", ListInvestmentsHandler(d.Rewards))              // My investments endpoint
	investGroup.POST("/packages/:id", InvestHandler(d.Rewards))         // Invest endpoint
	investGroup.POST("/:id/cancel", CancelInvestmentHandler(d.Rewards)) // Cancel endpoint

	// Shop routes
	shopGroup := r.Group("/shop", auth, middleware.Idempotency())
	shopGroup.POST("/products/:id/purchase", PurchaseHandler(d.Rewards)) // Purchase endpoint

	// Public catalog
	catalogGroup := r.Group("/catalog")
	catalogGroup.GET("/packages", PackagesHandler(d.Catalog))    // Investment packages
	catalogGroup.GET("/products", ProductsHandler(d.Catalog))    // Shop products
	catalogGroup.GET("/tasks", TasksHandler(d.Catalog))          // Tasks, ?kind=daily|intern
	catalogGroup.GET("/gifts", GiftsHandler(d.Catalog))          // Gifts
	catalogGroup.GET("/spin-wheel", SpinWheelHandler(d.Rewards)) // Wheel segments

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin", auth, middleware.AdminOnlyMiddleware(d.DB))
	adminGroup.GET("/users", ListAccountsHandler(d.Accounts))                        // List accounts endpoint
	adminGroup.PUT("/users/:id/role", SetRoleHandler(d.Accounts))                    // Role change endpoint
	adminGroup.DELETE("/users/:id", DeleteAccountHandler(d.Accounts))                // Delete account endpoint
	adminGroup.GET("/transactions", ListTransactionsHandler(d.Ledger))               // List transactions endpoint
	adminGroup.POST("/investments/:id/cancel", CancelInvestmentHandler(d.Rewards))   // Cancel any investment
	adminGroup.GET("/withdrawals", PendingWithdrawalsHandler(d.Rewards))             // Pending withdrawals endpoint
	adminGroup.POST("/withdrawals/:id/resolve", ResolveWithdrawalHandler(d.Rewards)) // Approve or reject endpoint
	adminGroup.POST("/settle", SettleHandler(d.Rewards))                             // Settlement endpoint
	registerCatalogAdmin(adminGroup.Group("/catalog"), d.Catalog)                    // Catalog CRUD

	// Realtime and operations
	r.GET("/ws", d.Hub.Handler())                   // Balance change stream
	r.GET("/metrics", gin.WrapH(metrics.Handler())) // Prometheus scrape endpoint
	r.GET("/healthz", healthHandler(d.DB))          // Liveness and DB check
	return r, nil
}

// healthHandler reports whether the database answers
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
