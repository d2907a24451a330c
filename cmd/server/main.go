package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/config"
	"github.com/iliyamo/agency-portal/internal/database"
	"github.com/iliyamo/agency-portal/internal/handler"
	"github.com/iliyamo/agency-portal/internal/middleware"
	"github.com/iliyamo/agency-portal/internal/queue"
	"github.com/iliyamo/agency-portal/internal/repository"
	"github.com/iliyamo/agency-portal/internal/router"
	"github.com/iliyamo/agency-portal/internal/service"
	"github.com/iliyamo/agency-portal/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB.User, cfg.DB.Pass, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if cfg.DB.Migrate {
		if err := database.RunMigrations(db, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warn("redis unavailable, using in-process rate limiting and no response cache")
	} else {
		defer rdb.Close()
	}

	pub := queue.NewPublisher(cfg.AMQPURL, logger)
	defer pub.Close()
	if pub.Enabled() {
		consumer := queue.NewConsumer(cfg.AMQPURL, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("RABBITMQ_URL not set, domain events are not published")
	}

	blobs, err := storage.NewLocal(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("init upload dir: %w", err)
	}

	// ---- stores ----
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	briefings := repository.NewBriefingRepo(db)
	projects := repository.NewProjectRepo(db)
	files := repository.NewFileRepo(db)
	notifications := repository.NewNotificationRepo(db)
	plans := repository.NewPlanRepo(db)

	// ---- services ----
	cache := middleware.NewResponseCache(cfg.Cache, rdb, router.APIPrefix, logger)
	notifier := service.NewNotifier(notifications, pub, logger)
	authSvc := service.NewAuthService(users, tokens, pub, service.AuthConfig{
		JWTSecret:       cfg.JWTSecret,
		AccessTTLMin:    cfg.AccessTTLMin,
		RefreshTTLDays:  cfg.RefreshTTLDays,
		BcryptCost:      cfg.BcryptCost,
		VerificationTTL: cfg.VerificationTTL,
		BaseURL:         strings.TrimRight(cfg.BaseURL, "/") + router.APIPrefix,
	}, logger)
	verifySvc := service.NewVerificationService(tokens, logger)
	briefingSvc := service.NewBriefingService(briefings, notifier, logger)
	projectSvc := service.NewProjectService(projects, files, notifier, logger)
	fileSvc := service.NewFileService(files, blobs, projects, cfg.Uploads.MaxBytes, logger)
	clientSvc := service.NewClientService(users, tokens, notifier, pub, logger)
	planSvc := service.NewPlanService(plans, cache, logger)
	notificationSvc := service.NewNotificationService(notifications)
	metricsSvc := service.NewMetricsService(users, briefings, projects, files)
	retentionSvc := service.NewRetentionService(tokens, notifications, briefings, service.RetentionPolicy{
		ReadNotificationDays: cfg.Retention.ReadNotificationDays,
		DraftBriefingDays:    cfg.Retention.DraftBriefingDays,
	}, logger)

	// ---- HTTP ----
	timeout := cfg.DB.Timeout
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: splitList(cfg.CORSOrigins),
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.OptionalJWTAuth(authSvc))
	e.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb, logger))

	briefingH := handler.NewBriefingHandler(briefingSvc, logger, timeout)
	projectH := handler.NewProjectHandler(projectSvc, logger, timeout)
	planH := handler.NewPlanHandler(planSvc, logger, timeout)

	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, planH, cache)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, verifySvc, cfg.FrontendURL, logger, timeout), authSvc)
	router.RegisterClient(e, router.ClientHandlers{
		Briefings: briefingH,
		Projects:  projectH,
		// Uploads stream the body to disk inside the handler deadline.
		Files:         handler.NewFileHandler(fileSvc, logger, 4*timeout),
		Notifications: handler.NewNotificationHandler(notificationSvc, logger, timeout),
	}, authSvc)
	router.RegisterAdmin(e, router.AdminHandlers{
		Admin:     handler.NewAdminHandler(clientSvc, metricsSvc, logger, timeout),
		Briefings: briefingH,
		Projects:  projectH,
		Plans:     planH,
	}, authSvc)
	// Retention deletes in bulk and may outlast a request-sized deadline.
	router.RegisterCron(e, handler.NewCronHandler(retentionSvc, logger, 12*timeout), cfg.CronSecret)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
