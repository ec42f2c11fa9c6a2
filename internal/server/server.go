package server

import (
	"context"
	"net/http"
	"time"

	"fieldwork/internal/auth"
	"fieldwork/internal/config"
	"fieldwork/internal/notify"
	"fieldwork/internal/order"
	"fieldwork/internal/payment"
	"fieldwork/internal/paystack"
	"fieldwork/internal/user"
	"fieldwork/internal/wallet"
	"fieldwork/internal/withdrawal"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notify.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	gateway := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey)

	userRepo := user.NewRepository(db)
	orderRepo := order.NewRepository(db)
	paymentRepo := payment.NewRepository(db)
	withdrawalRepo := withdrawal.NewRepository(db)
	ledger := wallet.NewRepository(db)

	orderService := order.NewService(orderRepo, notifier, cfg.RejectedOrdersReopen)
	paymentService := payment.NewService(paymentRepo, orderRepo, userRepo, ledger, gateway, notifier, cfg.WebhookSecret)
	withdrawalService := withdrawal.NewService(withdrawalRepo, userRepo, ledger, gateway, notifier, cfg.WebhookSecret)

	userHandler := user.NewHandler(db, cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
	orderHandler := order.NewHandler(orderService)
	paymentHandler := payment.NewHandler(paymentService, paymentRepo)
	withdrawalHandler := withdrawal.NewHandler(withdrawalService, withdrawalRepo)
	walletHandler := wallet.NewHandler(db)
	notifyHandler := notify.NewHandler(db)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(5, 10))
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	// Webhooks carry no JWT; authenticity comes from the body signature,
	// checked against the raw bytes inside the services.
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/payments", paymentHandler.Webhook)
		webhooks.POST("/transfers", withdrawalHandler.Webhook)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTAccessSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)
		protected.PUT("/me/bank-details", auth.RequireRole(auth.RoleAgent), userHandler.UpdateBankDetails)

		protected.POST("/orders", auth.RequireRole(auth.RoleCustomer), orderHandler.Create)
		protected.GET("/orders", orderHandler.ListMine)
		protected.GET("/orders/pool", auth.RequireRole(auth.RoleAgent), orderHandler.ListPublic)
		protected.GET("/orders/:orderID", orderHandler.Get)
		protected.POST("/orders/:orderID/accept", auth.RequireRole(auth.RoleAgent), orderHandler.Accept)
		protected.POST("/orders/:orderID/reject", orderHandler.Reject)
		protected.PATCH("/orders/:orderID/status", orderHandler.UpdateStatus)
		protected.POST("/orders/:orderID/pay", auth.RequireRole(auth.RoleCustomer), paymentHandler.Initiate)

		protected.GET("/wallet", auth.RequireRole(auth.RoleAgent), walletHandler.GetBalance)
		protected.GET("/wallet/entries", auth.RequireRole(auth.RoleAgent), walletHandler.ListEntries)

		protected.POST("/withdrawals", auth.RequireRole(auth.RoleAgent), withdrawalHandler.Initiate)
		protected.GET("/withdrawals", auth.RequireRole(auth.RoleAgent), withdrawalHandler.ListMine)

		protected.GET("/notifications", notifyHandler.ListMine)
		protected.POST("/notifications/:notificationID/read", notifyHandler.MarkRead)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/orders", orderHandler.ListAll)
		admin.GET("/orders/:orderID/payments", paymentHandler.ListByOrder)
		admin.GET("/payments", paymentHandler.ListAll)
		admin.GET("/withdrawals", withdrawalHandler.ListAll)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router is exposed for handler tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
