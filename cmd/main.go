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

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imsulglobal/community-portal/internal/cache"
	"github.com/imsulglobal/community-portal/internal/config"
	"github.com/imsulglobal/community-portal/internal/database"
	"github.com/imsulglobal/community-portal/internal/handler"
	"github.com/imsulglobal/community-portal/internal/logger"
	"github.com/imsulglobal/community-portal/internal/notification"
	"github.com/imsulglobal/community-portal/internal/repository"
	"github.com/imsulglobal/community-portal/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	redisClient, err := cache.NewClient(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	listCache := cache.New(redisClient, cfg.Cache.TTL, log)

	mailer := notification.NewMailer(cfg.SMTP, log)
	dispatcher := notification.NewDispatcher(mailer, cfg.Notify.Workers, cfg.Notify.BufferSize, log)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	validate := validator.New()

	workshopRepo := repository.NewWorkshopRepository(pool)
	positionRepo := repository.NewPositionRepository(pool)
	articleRepo := repository.NewArticleRepository(pool)
	newsletterRepo := repository.NewNewsletterRepository(pool)

	workshopSvc := service.NewWorkshopService(workshopRepo, dispatcher, listCache, validate, log)
	volunteerSvc := service.NewVolunteerService(positionRepo, dispatcher, listCache, validate, log)
	articleSvc := service.NewArticleService(articleRepo, listCache, validate, log)
	newsletterSvc := service.NewNewsletterService(newsletterRepo, validate, log)
	homeSvc := service.NewHomeService(workshopSvc, volunteerSvc, articleSvc, listCache, log)
	authSvc := service.NewAuthService(cfg.Auth, log)

	router := handler.NewRouter(cfg, handler.Handlers{
		Workshops:  handler.NewWorkshopHandler(workshopSvc),
		Volunteers: handler.NewVolunteerHandler(volunteerSvc),
		Articles:   handler.NewArticleHandler(articleSvc),
		Newsletter: handler.NewNewsletterHandler(newsletterSvc),
		Home:       handler.NewHomeHandler(homeSvc),
		Auth:       handler.NewAuthHandler(authSvc),
		AuthSvc:    authSvc,
	}, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
