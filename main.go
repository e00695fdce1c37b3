package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"trueheal-portal/internal/config"
	"trueheal-portal/internal/logging"
	"trueheal-portal/internal/mailer"
	"trueheal-portal/internal/metrics"
	"trueheal-portal/internal/middleware"
	"trueheal-portal/internal/routes"
	"trueheal-portal/internal/services"
	"trueheal-portal/internal/store"
	"trueheal-portal/internal/store/gormstore"
	"trueheal-portal/internal/store/memstore"
	"trueheal-portal/internal/store/mongostore"
)

func main() {
	// A missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Component: "portal"})
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	st, err := openStore(cfg.Database)
	if err != nil {
		log.Error("error connecting to database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	log.Info("store ready", "driver", cfg.Database.Driver)

	mail := newMailer(cfg.Mailer, log)
	met := metrics.New("trueheal")

	linker := services.NewLinker(st, log, met)
	deps := routes.Deps{
		Auth: services.NewAuthService(st, linker, mail, services.AuthConfig{
			JWTSecret: cfg.JWTSecret,
			TokenTTL:  cfg.TokenTTL(),
			OTPTTL:    cfg.OTPTTL(),
			ResetTTL:  cfg.ResetTTL(),
			ClientURL: cfg.ClientURL,
		}, log, met),
		Users: services.NewUserService(st, log),
		Appointments: services.NewAppointmentService(st, st, mail, services.AppointmentConfig{
			DefaultStatus: cfg.DefaultAppointmentStatus,
			Hospital:      cfg.Hospital,
		}, log, met),
		Reports:     services.NewReportService(st, st, log),
		Messages:    services.NewMessageService(st, mail, cfg.Hospital, log, met),
		Departments: services.NewDepartmentService(st, log),
		Gate:        services.NewTokenGate(cfg.JWTSecret),
		Limiter:     middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Metrics:     met,
		Log:         log,
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery(), log.GinMiddleware(), met.Middleware())

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, deps)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go deps.Limiter.Run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server running", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func openStore(cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case "mongo":
		return mongostore.NewStore(cfg.MongoURI, cfg.MongoDatabase)
	case "memory":
		return memstore.New(), nil
	default:
		return gormstore.Open(cfg.DSN)
	}
}

func newMailer(cfg config.MailerConfig, log *logging.Logger) mailer.Mailer {
	if cfg.Transport == "smtp" {
		m, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.DefaultFrom,
			Timeout:  cfg.Timeout,
		})
		if err == nil {
			return m
		}
		log.Warn("smtp mailer unavailable, logging emails instead", "error", err)
	}
	return mailer.NewLogMailer(log.Named("mailer"))
}
