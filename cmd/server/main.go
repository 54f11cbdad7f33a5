package main

import (
	"context"
	"os"
	"strings"

	"nine-pos/internal/ai"
	"nine-pos/internal/auth"
	"nine-pos/internal/cache"
	"nine-pos/internal/config"
	"nine-pos/internal/database"
	"nine-pos/internal/handlers"
	"nine-pos/internal/logging"
	"nine-pos/internal/service"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseDSN, cfg.DBLogLevel, log)
	if err != nil {
		log.WithError(err).Fatal("could not connect to the database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("could not migrate the database")
	}

	// The dashboard cache is optional; a nil SummaryCache disables it.
	var summaries service.SummaryCache
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisSummaryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rc.Ping(context.Background()); err != nil {
			log.WithError(err).Warn("redis unavailable, dashboard cache disabled")
			_ = rc.Close()
		} else {
			defer rc.Close()
			summaries = rc
			log.WithField("addr", cfg.RedisAddr).Info("dashboard cache enabled")
		}
	}

	resets := auth.NewTokenManager(cfg.ResetSecret, cfg.ResetTTL)
	notifier := service.LogNotifier{Log: log, BaseURL: cfg.BaseURL}

	h := &handlers.Handler{
		Products:  service.NewProductService(db, log, summaries),
		Inventory: service.NewInventoryService(db, log, summaries),
		Sales:     service.NewSaleService(db, log, summaries),
		Reports:   service.NewReportService(db, log),
		Users:     service.NewUserService(db, log, summaries, resets, notifier),
		Dashboard: service.NewDashboardService(db, log, summaries, cfg.DashboardCacheTTL),
		Tokens:    auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
		Log:       log,
	}
	if cfg.GeminiAPIKey != "" {
		h.Assistant = ai.NewAgent(cfg.GeminiAPIKey, cfg.GeminiModel, h.Products, h.Inventory, h.Reports, log)
	} else {
		log.Info("GEMINI_API_KEY not set, assistant disabled")
	}

	r := handlers.NewRouter(h, handlers.RouterOptions{
		AllowedOrigins:    strings.Split(cfg.AllowedOrigin, ","),
		AllowRegistration: cfg.AllowRegistration,
	})

	log.WithField("baseUrl", cfg.BaseURL).Info("server starting")
	if err := r.Run(cfg.Address()); err != nil {
		log.WithError(err).Error("server failed to start")
		os.Exit(1)
	}
}
