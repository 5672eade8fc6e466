package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/zapdesk/golang_services/internal/platform/config"
	"github.com/zapdesk/golang_services/internal/platform/database"
	"github.com/zapdesk/golang_services/internal/platform/logger"
	"github.com/zapdesk/golang_services/internal/platform/messagebroker"
	"github.com/zapdesk/golang_services/internal/platform/secrets"
	"github.com/zapdesk/golang_services/internal/template_service/adapters/approval"
	templateApp "github.com/zapdesk/golang_services/internal/template_service/app"
	"github.com/zapdesk/golang_services/internal/template_service/repository/postgres"
	httptransport "github.com/zapdesk/golang_services/internal/template_service/transport/http"
)

const (
	serviceName     = "template_service"
	shutdownTimeout = 15 * time.Second
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger = appLogger.With("service", serviceName)
	appLogger.Info("Starting service...")

	appLogger.Info("Configuration loaded",
		"log_level", cfg.LogLevel,
		"nats_url", cfg.NATSURL,
		"postgres_dsn_present", cfg.PostgresDSN != "",
		"http_port", cfg.TemplateServiceHTTPPort,
		"approval_provider_configured", cfg.ApprovalProviderAPIURL != "",
	)

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Database connection pool initialized")

	// NATS is optional: template lifecycle events are best-effort.
	var natsClient *messagebroker.NATSClient
	if cfg.NATSURL != "" {
		natsClient, err = messagebroker.NewNATSClient(cfg.NATSURL, appLogger, serviceName)
		if err != nil {
			appLogger.Error("Failed to connect to NATS, lifecycle events disabled", "url", cfg.NATSURL, "error", err)
			natsClient = nil
		} else {
			defer natsClient.Close()
			appLogger.Info("NATS client connected", "url", cfg.NATSURL)
		}
	} else {
		appLogger.Info("NATS URL not configured, NATS client will not be initialized.")
	}

	approvalProvider := buildApprovalProvider(cfg, appLogger)

	templateRepo := postgres.NewPgTemplateRepository(dbPool, appLogger)
	application := templateApp.NewApplication(templateRepo, approvalProvider, natsClient, appLogger, cfg.TemplateMaxMessageBytes)

	validate := validator.New()
	templateHandler := httptransport.NewTemplateHandler(application, appLogger, validate)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(httptransport.PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "Template service is healthy"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(v1Router chi.Router) {
		v1Router.Use(httptransport.TenantAuthMiddleware(cfg.JWTAccessSecret, appLogger))
		templateHandler.RegisterRoutes(v1Router)
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.TemplateServiceHTTPPort),
		Handler: r,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("HTTP server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to serve", "error", err)
			return err
		}
		appLogger.Info("HTTP server stopped gracefully.")
		return nil
	})

	g.Go(func() error {
		stopSignal := make(chan os.Signal, 1)
		signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-stopSignal:
			appLogger.Info("Received termination signal", "signal", sig.String())
			mainCancel()
			return nil
		case <-groupCtx.Done():
			return nil
		}
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Initiating graceful shutdown of HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server shutdown failed", "error", err)
			return err
		}
		appLogger.Info("HTTP server has been shut down gracefully.")
		return nil
	})

	appLogger.Info("Service is ready and running.")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Service group encountered an error", "error", err)
	}

	appLogger.Info("Service shutdown complete.")
}

// buildApprovalProvider wires the external review provider. With no API URL
// configured the in-memory mock is used so the approval workflow stays
// exercisable in development. The provider API key is stored encrypted and
// only decrypted here, at startup.
func buildApprovalProvider(cfg *config.Config, appLogger *slog.Logger) approval.Provider {
	if cfg.ApprovalProviderAPIURL == "" {
		appLogger.Warn("Approval provider API URL not configured, using mock provider")
		return approval.NewMockProvider(appLogger, false, 0)
	}

	decryptor, err := secrets.NewAESGCMDecryptor(cfg.SecretsMasterKey)
	if err != nil {
		appLogger.Error("Failed to initialize secrets decryptor", "error", err)
		os.Exit(1)
	}
	apiKey, err := decryptor.Decrypt(cfg.ApprovalProviderAPIKeyEnc)
	if err != nil {
		appLogger.Error("Failed to decrypt approval provider API key", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.ApprovalProviderTimeoutSeconds) * time.Second}
	return approval.NewGraphProvider(appLogger, cfg.ApprovalProviderAPIURL, apiKey, httpClient)
}
