package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tsirk/internal/cache"
	"tsirk/internal/config"
	"tsirk/internal/database"
	"tsirk/internal/external"
	"tsirk/internal/handlers"
	"tsirk/internal/logger"
	"tsirk/internal/messaging"
	"tsirk/internal/metrics"
	"tsirk/internal/middleware"
	"tsirk/internal/pricing"
	"tsirk/internal/repository"
	"tsirk/internal/service"
)

type Server struct {
	config          *config.Config
	router          *gin.Engine
	db              *database.DB
	natsClient      *messaging.NATSClient
	valkeyClient    *cache.ValkeyClient
	handlers        *handlers.Handlers
	localDispatcher *service.LocalDispatcher
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// The availability cache is optional; the shop works without it.
	var valkeyClient *cache.ValkeyClient
	if cfg.Cache.Addr != "" {
		valkeyClient, err = cache.NewValkeyClient(cfg.Cache)
		if err != nil {
			logger.Get().Warn("Valkey unavailable, running without availability cache", "error", err)
			valkeyClient = nil
		}
	}

	var natsClient *messaging.NATSClient
	if cfg.FulfillmentMode == config.FulfillmentModeNATS {
		natsClient, err = messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", "error", err)
		}
	}

	repos := repository.NewRepositories(db)
	engine := pricing.NewEngine(cfg.Pricing)
	paymentClient := external.NewPaymentClient(cfg.Payment)
	artifactClient := external.NewArtifactClient(cfg.Artifacts)
	mailClient := external.NewMailClient(cfg.Mail)

	services := service.NewServices(repos, engine, paymentClient, artifactClient, mailClient,
		natsClient, valkeyClient, cfg.ShowCapacity, cfg.PublicURL)

	var dispatcher service.Dispatcher
	var localDispatcher *service.LocalDispatcher
	if cfg.FulfillmentMode == config.FulfillmentModeNATS {
		dispatcher = service.NewNATSDispatcher(natsClient)
	} else {
		localDispatcher = service.NewLocalDispatcher(services.Fulfillment, cfg.FulfillmentWorkers, cfg.FulfillmentBuffer)
		dispatcher = localDispatcher
	}

	s := &Server{
		config:          cfg,
		db:              db,
		natsClient:      natsClient,
		valkeyClient:    valkeyClient,
		handlers:        handlers.NewHandlers(services, dispatcher),
		localDispatcher: localDispatcher,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())
	router.Use(metrics.Middleware())

	router.GET("/health", s.healthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Public shop surface
	router.POST("/create-checkout-session", s.handlers.CreateCheckoutSession)
	router.GET("/get_tickets", s.handlers.GetTickets)
	router.POST("/success-hook", s.handlers.PaymentWebhook)
	router.GET("/availability", s.handlers.Availability)

	// Door scanner
	router.POST("/checkin", middleware.KeyAuth(s.config.ScannerKey), s.handlers.Checkin)

	// Admin dashboard
	admin := router.Group("/api", middleware.KeyAuth(s.config.AdminKey))
	admin.GET("/stats", s.handlers.Stats)
	admin.POST("/codes/:code/validate", s.handlers.ValidateCode)

	s.router = router
}

func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbHealth.Status,
		"database": dbHealth,
	})
}

// Router exposes the gin engine for the HTTP server in cmd/api.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Cleanup drains in-flight fulfillments and closes connections.
func (s *Server) Cleanup() {
	if s.localDispatcher != nil {
		s.localDispatcher.Stop()
	}
	if s.natsClient != nil {
		if err := s.natsClient.Close(); err != nil {
			logger.Get().Error("Failed to close NATS connection", "error", err)
		}
	}
	if s.valkeyClient != nil {
		if err := s.valkeyClient.Close(); err != nil {
			logger.Get().Error("Failed to close Valkey connection", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Failed to close database connection", "error", err)
		}
	}
}
