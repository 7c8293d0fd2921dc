package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"leavedesk/internal/domain/audit"
	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/chatbot"
	"leavedesk/internal/domain/directory"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/domain/notifications"
	"leavedesk/internal/domain/reports"
	"leavedesk/internal/platform/config"
	"leavedesk/internal/platform/db"
	"leavedesk/internal/platform/email"
	"leavedesk/internal/platform/metrics"
	audithandler "leavedesk/internal/transport/http/handlers/audit"
	authhandler "leavedesk/internal/transport/http/handlers/auth"
	chatbothandler "leavedesk/internal/transport/http/handlers/chatbot"
	directoryhandler "leavedesk/internal/transport/http/handlers/directory"
	leavehandler "leavedesk/internal/transport/http/handlers/leave"
	notificationshandler "leavedesk/internal/transport/http/handlers/notifications"
	reportshandler "leavedesk/internal/transport/http/handlers/reports"
	"leavedesk/internal/transport/http/middleware"
)

const chatbotPerMinute = 20

type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router http.Handler
}

func (a *App) Close() {
	a.DB.Close()
}

// New wires the application: pool, migrations, services, router. Run and the
// HTTP journey tests both start from here.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	mailer := email.New(cfg)
	collector := metrics.New()

	authService := auth.NewService(auth.NewStore(pool), mailer, cfg.JWTSecret, cfg.TokenTTL, cfg.TwoFactorTTL)
	directoryService := directory.NewService(directory.NewStore(pool))
	leaveStore := leave.NewStore(pool)
	leaveService := leave.NewService(leaveStore)
	notifyService := notifications.New(pool, mailer)
	auditService := audit.New(pool)
	reportsService := reports.NewService(reports.NewStore(pool))
	chatbotService := chatbot.New(cfg.ChatbotAPIURL, cfg.ChatbotAPIKey, cfg.ChatbotModel, chatbotPerMinute)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(collector))
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if cfg.MetricsEnabled {
		router.With(middleware.RequirePermission(auth.PermSystemAdmin)).Get("/metrics", metricsHandler(collector))
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authService, directoryService, auditService).RegisterRoutes(r)
		directoryhandler.NewHandler(directoryService, auditService).RegisterRoutes(r)
		leavehandler.NewHandler(leaveService, leaveStore, notifyService, auditService, cfg.CarryOverCapDays).RegisterRoutes(r)
		reportshandler.NewHandler(reportsService, leaveStore).RegisterRoutes(r)
		notificationshandler.NewHandler(notifyService).RegisterRoutes(r)
		audithandler.NewHandler(auditService).RegisterRoutes(r)
		chatbothandler.NewHandler(chatbotService).RegisterRoutes(r)
	})

	return &App{Config: cfg, DB: pool, Router: router}, nil
}

func Run() {
	cfg := config.Load()

	app, err := New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	log.Printf("leavedesk server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func metricsHandler(collector *metrics.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(collector.Snapshot()); err != nil {
			http.Error(w, "metrics unavailable", http.StatusInternalServerError)
		}
	}
}
