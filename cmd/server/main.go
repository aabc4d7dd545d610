package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"invoicely-backend/internal/archive"
	"invoicely-backend/internal/auth"
	"invoicely-backend/internal/cache"
	"invoicely-backend/internal/config"
	"invoicely-backend/internal/database"
	"invoicely-backend/internal/db"
	"invoicely-backend/internal/handlers"
	apphttp "invoicely-backend/internal/http"
	"invoicely-backend/internal/mailer"
	"invoicely-backend/internal/middleware"
	"invoicely-backend/internal/monitoring"
	"invoicely-backend/internal/pdf"
	"invoicely-backend/internal/repositories"
	"invoicely-backend/internal/services"
)

func main() {
	cfg := config.Load()

	pool, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("[DB] %v", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := database.NewMigrator(pool).RunMigrations(ctx); err != nil {
		cancel()
		log.Fatalf("migrations failed: %v", err)
	}
	cancel()

	if err := cache.Init(); err != nil {
		log.Printf("[Cache] Redis unavailable, running without cache: %v", err)
	}

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	workspaceRepo := repositories.NewWorkspaceRepository(pool)
	clientRepo := repositories.NewClientRepository(pool)
	invoiceRepo := repositories.NewInvoiceRepository(pool)
	paymentRepo := repositories.NewPaymentRepository(pool)

	// Collaborators
	jwtManager := auth.NewJWTManager(cfg)
	renderer := pdf.NewInvoiceRenderer()
	gatewayMailer := mailer.NewGatewayMailer(cfg)
	archiver, err := archive.NewS3Archiver(cfg)
	if err != nil {
		log.Printf("[Archive] disabled: %v", err)
	}
	hub := monitoring.NewHub()
	statsCollector := monitoring.NewStatsCollector(pool)

	// Services
	userService := services.NewUserService(userRepo, jwtManager)
	workspaceService := services.NewWorkspaceService(workspaceRepo)
	clientService := services.NewClientService(clientRepo)
	invoiceService := services.NewInvoiceService(invoiceRepo, clientRepo, services.InvoiceServiceOpts{
		Renderer:     renderer,
		Notifier:     gatewayMailer,
		Archiver:     archiver,
		Events:       hub,
		NumberPrefix: cfg.Invoice.NumberPrefix,
		PublicURL:    cfg.Server.PublicURL,
	})
	dashboardService := services.NewDashboardService(
		workspaceRepo, invoiceRepo, clientRepo,
		cfg.Invoice.SeriesMonths,
		time.Duration(cfg.Invoice.DashboardTTLSec)*time.Second,
	)
	paymentService := services.NewPaymentService(
		cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret,
		paymentRepo, invoiceService,
	)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	workspaceHandler := handlers.NewWorkspaceHandler(workspaceService)
	clientHandler := handlers.NewClientHandler(clientService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, renderer)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	healthHandler := handlers.NewHealthHandler(pool)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)

	router := apphttp.NewRouter(
		authHandler,
		workspaceHandler,
		clientHandler,
		invoiceHandler,
		dashboardHandler,
		paymentHandler,
		healthHandler,
		authMiddleware,
		workspaceService,
		hub,
		statsCollector,
	)

	handler := middleware.PanicRecovery(
		middleware.RequestLogging(
			middleware.MetricsMiddleware(
				middleware.NewCORS(cfg)(router),
			),
		),
	)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
