package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"riskjournal/internal/audit"
	"riskjournal/internal/config"
	cronrunner "riskjournal/internal/cron"
	"riskjournal/internal/db"
	"riskjournal/internal/handler"
	"riskjournal/internal/insights"
	"riskjournal/internal/logger"
	gormrepository "riskjournal/internal/repository/gorm"
	"riskjournal/internal/risk"
	"riskjournal/internal/service"
	"riskjournal/internal/stream"
	"riskjournal/internal/tagger"

	_ "riskjournal/docs"
)

const appVersion = "0.1.0"

func main() {
	started := time.Now().UTC()
	cfgPath := os.Getenv("RJ_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("RJ_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	entryTagger := tagger.New(logger)

	var hub *stream.Hub
	if cfg.Stream.Enabled && settingsSvc.IsEnabled(context.Background(), service.FeatureStream, true) {
		hub = stream.NewHub(cfg.Stream.Buffer, logger)
	}

	riskMgr := &risk.Manager{
		Config: cfg.Journal,
		Repo:   store,
		Logger: logger,
		Hub:    hub,
		Tagger: entryTagger,
	}
	entrySvc := &service.EntryService{
		Config: cfg.Journal,
		Repo:   store,
		Logger: logger,
		Hub:    hub,
		Tagger: entryTagger,
	}
	insightsEngine := &insights.Engine{
		Config: cfg.Insights,
		Repo:   store,
		Logger: logger,
	}

	auditClient := initAuditClient(cfg.Audit, logger)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(handler.RequireTokenMiddleware(cfg.Auth.Token))
	engine.Use(audit.InjectClientMiddleware(auditClient))
	engine.Use(audit.WriteAuditMiddleware(auditClient, logger))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, App: "riskjournal", Version: appVersion, Started: started}
	healthHandler.Register(engine)
	handler.RegisterDocs(engine)

	entriesHandler := &handler.EntryHandler{Service: entrySvc}
	entriesHandler.Register(engine)
	risksHandler := &handler.RiskHandler{Manager: riskMgr, Tagger: entryTagger}
	risksHandler.Register(engine)
	insightsHandler := &handler.InsightsHandler{Engine: insightsEngine}
	insightsHandler.Register(engine)
	statsHandler := &handler.StatsHandler{Repo: store}
	statsHandler.Register(engine)
	settingsHandler := &handler.SystemSettingsHandler{Repo: store, Settings: settingsSvc}
	settingsHandler.Register(engine)
	streamHandler := &handler.StreamHandler{Hub: hub, Logger: logger}
	streamHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseCtx := ctx
	if auditClient != nil {
		baseCtx = audit.WithClient(ctx, auditClient)
	}

	if hub != nil {
		go func() {
			if err := hub.Run(baseCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("stream hub stopped", zap.Error(err))
			}
		}()
	}

	dailyStats := &service.DailyStatsService{
		Repo:   store,
		Logger: logger,
		Flags:  settingsSvc,
	}
	reviewSvc := &service.ReviewReminderService{
		Insights: insightsEngine,
		Logger:   logger,
		Flags:    settingsSvc,
	}

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, baseCtx)
		_, err = cronRunner.Add("daily_stats", cfg.Cron.DailyStats, func(ctx context.Context) {
			if err := dailyStats.RunOnce(ctx); err != nil {
				logger.Warn("cron daily stats failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register daily stats failed", zap.Error(err))
		}
		_, err = cronRunner.Add("review_check", cfg.Cron.ReviewCheck, func(ctx context.Context) {
			if err := reviewSvc.RunOnce(ctx); err != nil {
				logger.Warn("cron review check failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register review check failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	} else {
		go func() {
			if err := dailyStats.Run(baseCtx, 6*time.Hour); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("daily stats service stopped", zap.Error(err))
			}
		}()
		go func() {
			if err := reviewSvc.Run(baseCtx, 24*time.Hour); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("review reminder service stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func initAuditClient(cfg config.AuditConfig, logger *zap.Logger) *audit.Client {
	if !cfg.Enabled {
		return nil
	}
	url := strings.TrimSpace(cfg.WebhookURL)
	if url == "" {
		if logger != nil {
			logger.Warn("audit enabled but audit.webhook_url is empty (audit disabled)")
		}
		return nil
	}
	if logger != nil {
		logger.Info("audit webhook enabled", zap.String("agent", cfg.Agent))
	}
	return &audit.Client{
		WebhookURL: url,
		Token:      cfg.Token,
		Agent:      cfg.Agent,
	}
}
