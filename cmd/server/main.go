package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/config"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/handlers"
	"github.com/momentumclips/booking-backend/internal/middleware"
	"github.com/momentumclips/booking-backend/internal/services"
	"github.com/momentumclips/booking-backend/pkg/jwt"
	"github.com/momentumclips/booking-backend/pkg/mailer"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Momentum Clips Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize repositories
	bookingRepo := database.NewBookingRepository(db)
	orderRepo := database.NewOrderRepository(db)
	waiverRepo := database.NewWaiverRepository(db)
	webhookEventRepo := database.NewWebhookEventRepository(db)
	auditRepo := database.NewPaymentAuditRepository(db, logger)
	packageRepo := database.NewPackageRepository(db)
	catalogRepo := database.NewCatalogRepository(db)
	userRepo := database.NewUserRepository(db)

	// Initialize outbound mail
	var mailGateway mailer.Gateway
	if cfg.Mail.Mode == "dev" {
		logger.Info("Mail gateway in dev mode, emails will be logged only")
		mailGateway = mailer.NewDevGateway(logger)
	} else {
		mailGateway = mailer.NewSMTPGateway(mailer.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			Sender:   cfg.Mail.Sender,
		})
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	checkoutService := services.NewCheckoutService(&cfg.Checkout, logger)
	reconcilerService := services.NewReconcilerService(
		bookingRepo, orderRepo, webhookEventRepo, auditRepo,
		checkoutService, mailGateway, logger,
	)
	bookingService := services.NewBookingService(
		bookingRepo, packageRepo, checkoutService, auditRepo, mailGateway, cfg, logger,
	)
	orderService := services.NewOrderService(
		orderRepo, packageRepo, checkoutService, auditRepo, cfg, logger,
	)
	waiverService := services.NewWaiverService(waiverRepo, orderRepo, bookingRepo, cfg, logger)
	schedulerService := services.NewSchedulerService(
		orderRepo, bookingRepo, packageRepo, auditRepo, mailGateway, cfg, logger,
	)
	adminService := services.NewAdminService(bookingRepo, auditRepo, mailGateway, logger)
	authService := services.NewAuthService(userRepo, jwtService, logger)

	// Start expiry sweep (no-op unless configured)
	expiryService := services.NewExpiryService(bookingRepo, cfg, logger)
	if err := expiryService.Start(); err != nil {
		logger.Fatalf("Failed to start expiry sweep: %v", err)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	catalogHandler := handlers.NewCatalogHandler(packageRepo, catalogRepo)
	bookingHandler := handlers.NewBookingHandler(bookingService, userRepo)
	paymentHandler := handlers.NewPaymentHandler(orderService, reconcilerService, logger)
	waiverHandler := handlers.NewWaiverHandler(waiverService, schedulerService)
	scheduleHandler := handlers.NewScheduleHandler(schedulerService)
	adminHandler := handlers.NewAdminHandler(adminService, orderService, bookingRepo, packageRepo, catalogRepo)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthCheckHandler(db))

	v1 := router.Group("/api/v1")
	{
		// Public site content
		v1.GET("/packages", catalogHandler.ListPackages)
		v1.GET("/videos", catalogHandler.ListVideos)
		v1.GET("/testimonials", catalogHandler.ListTestimonials)
		v1.GET("/waiver", catalogHandler.GetWaiverText)

		// Public payment-first flow
		v1.POST("/checkout/:package_id", paymentHandler.StartCheckout)
		v1.GET("/payments/success", paymentHandler.Success)
		v1.GET("/payments/cancelled", paymentHandler.Cancelled)
		v1.POST("/webhooks/checkout", paymentHandler.Webhook)

		// Waiver and scheduling
		v1.POST("/waiver/sign", waiverHandler.Sign)
		v1.GET("/waiver/status/:booking_id", waiverHandler.Status)
		v1.GET("/schedule/redirect/:order_id", scheduleHandler.Redirect)
		v1.GET("/schedule/confirm", scheduleHandler.Confirm)

		// Availability hints
		v1.GET("/availability", bookingHandler.CheckAvailability)
		v1.GET("/availability/calendar", bookingHandler.TakenSlots)

		// Auth
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		// Authenticated slot-first booking flow
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings.POST("", bookingHandler.Create)
			bookings.GET("", bookingHandler.List)
			bookings.GET("/:id", bookingHandler.Get)
			bookings.POST("/:id/cancel", bookingHandler.Cancel)
		}

		// Back office
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService), middleware.RequireAdmin())
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/bookings", adminHandler.ListBookings)
			admin.GET("/bookings/:id", adminHandler.GetBooking)
			admin.PATCH("/bookings/:id/status", adminHandler.UpdateBookingStatus)
			admin.POST("/bookings/:id/deliver", adminHandler.DeliverVideos)
			admin.PUT("/bookings/:id/notes", adminHandler.UpdateNotes)
			admin.GET("/orders", adminHandler.ListOrders)
			admin.GET("/packages", adminHandler.ListPackages)
			admin.POST("/packages", adminHandler.CreatePackage)
			admin.PUT("/packages/:id", adminHandler.UpdatePackage)
			admin.POST("/videos", adminHandler.CreateVideo)
			admin.PUT("/videos/:id", adminHandler.UpdateVideo)
			admin.DELETE("/videos/:id", adminHandler.DeleteVideo)
			admin.POST("/testimonials", adminHandler.CreateTestimonial)
			admin.PUT("/testimonials/:id", adminHandler.UpdateTestimonial)
			admin.DELETE("/testimonials/:id", adminHandler.DeleteTestimonial)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	expiryService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case len(c.Errors) > 0:
			entry.WithField("errors", c.Errors.String()).Error("Request failed with errors")
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"version":   version,
			"timestamp": time.Now().UTC(),
		})
	}
}
