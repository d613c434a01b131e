package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/medinote/consent-service/internal/config"
	"github.com/medinote/consent-service/internal/dao"
	"github.com/medinote/consent-service/internal/database"
	"github.com/medinote/consent-service/internal/jobs"
	"github.com/medinote/consent-service/internal/router"
	"github.com/medinote/consent-service/internal/service"
	"github.com/medinote/consent-service/internal/sms"
)

// Version information (set by build script)
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	// Optional .env for local development; real deployments use env vars.
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	logger.WithFields(logrus.Fields{
		"version":    version,
		"build_date": buildDate,
	}).Info("Starting Consent Lifecycle Service...")

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	logger.WithFields(logrus.Fields{
		"jurisdiction": cfg.Consent.Jurisdiction,
		"token_expiry": cfg.Consent.TokenExpiry.String(),
		"log_level":    logger.GetLevel().String(),
	}).Info("Configuration loaded successfully")

	db, err := database.Initialize(&cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.HealthCheck(ctx); err != nil {
		logger.WithError(err).Fatal("Database health check failed")
	}

	tokenDAO := dao.NewTokenDAO(db)
	recordDAO := dao.NewRecordDAO(db)
	auditDAO := dao.NewAuditDAO(db)
	logger.Info("DAOs initialized successfully")

	smsSender := sms.NewLogSender(logger)

	tokenService := service.NewTokenService(tokenDAO, recordDAO, auditDAO, db, smsSender, &cfg.Consent, logger)
	consentService := service.NewConsentService(tokenDAO, recordDAO, auditDAO, db, &cfg.Consent, logger)
	logger.Info("Services initialized successfully")

	// Background sweeper flags expired unused tokens and audits them.
	cronRunner := cron.New()
	sweeper := jobs.NewExpirySweeper(tokenDAO, auditDAO, logger)
	if _, err := sweeper.Schedule(cronRunner, cfg.Consent.ExpirySweepEvery); err != nil {
		logger.WithError(err).Fatal("Failed to schedule token expiry sweeper")
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	ginRouter := router.SetupRouter(cfg, tokenService, consentService)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Hostname, cfg.Server.Port)
	server := &http.Server{
		Addr:           serverAddr,
		Handler:        ginRouter,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		logger.WithField("addr", serverAddr).Info("Starting HTTP server...")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited gracefully")
}
