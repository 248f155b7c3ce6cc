package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jordanlanch/leadrouter/config"
	"github.com/jordanlanch/leadrouter/pkg/api"
	"github.com/jordanlanch/leadrouter/pkg/api/handlers"
	"github.com/jordanlanch/leadrouter/pkg/auth"
	"github.com/jordanlanch/leadrouter/pkg/boardsync"
	"github.com/jordanlanch/leadrouter/pkg/cache"
	"github.com/jordanlanch/leadrouter/pkg/database"
	"github.com/jordanlanch/leadrouter/pkg/distribution"
	"github.com/jordanlanch/leadrouter/pkg/events"
	"github.com/jordanlanch/leadrouter/pkg/ingest"
	"github.com/jordanlanch/leadrouter/pkg/jobs"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/presence"
	"github.com/jordanlanch/leadrouter/pkg/store"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewClient(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := cache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("failed connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	leadStore := store.NewLeadStore(db.Pool)
	agentStore := store.NewAgentStore(db.Pool)
	configStore := store.NewConfigStore(db.Pool)
	assignmentStore := store.NewAssignmentStore(db.Pool)
	sessionStore := store.NewSessionStore(db.Pool)

	hub := events.NewHub()

	presenceSvc := presence.NewService(agentStore, sessionStore, hub, logger.Component(log, "presence"), presence.Options{
		Staleness:    cfg.PresenceStaleness,
		RecentWindow: cfg.RecentActivityWindow,
		Roles:        cfg.AgentRoles,
	})

	board := boardsync.NewService(cfg.BoardAPIBase, cfg.BoardAPIKey, cfg.BoardAPIToken, cfg.BoardListConfirmed, logger.Component(log, "boardsync"))

	distributor := distribution.NewService(
		leadStore, configStore, assignmentStore, presenceSvc,
		distribution.NewSelector(), hub, redisClient, board, logger.Component(log, "distribution"),
		distribution.Options{
			MinDelay:         cfg.AssignmentMinDelay,
			BatchLimit:       cfg.BatchAssignLimit,
			BalancedFallback: cfg.BalancedFallback,
			CacheTTL:         cfg.ConfigCacheTTL,
		},
	)

	watcher := ingest.NewWatcher(cfg.LeadsDir, cfg.IngestDelay, leadStore, distributor, logger.Component(log, "ingest"))
	if cfg.IngestAutoStart {
		if err := watcher.Start(context.Background()); err != nil {
			log.Error("failed starting ingestion watcher", "error", err)
			os.Exit(1)
		}
	}
	defer watcher.Stop()

	scheduler := jobs.NewScheduler(distributor, sessionStore, leadStore, cfg.PresenceStaleness, logger.Component(log, "jobs"))
	if err := scheduler.Start(); err != nil {
		log.Error("failed starting background jobs", "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpirationHours)
	blacklist := auth.NewBlacklist(redisClient, time.Duration(cfg.JWTExpirationHours)*time.Hour)

	leadsHandler := handlers.NewLeadsHandler(leadStore, distributor, presenceSvc, hub, log)
	router := &api.Router{
		Auth:      handlers.NewAuthHandler(agentStore, jwtService, blacklist, log),
		Leads:     leadsHandler,
		Admin:     handlers.NewAdminHandler(distributor, presenceSvc, watcher, hub, leadsHandler, log),
		JWT:       jwtService,
		Blacklist: blacklist,
		DB:        db,
		Cache:     redisClient,
	}
	e := router.New(cfg)

	go func() {
		addr := cfg.APIHost + ":" + cfg.APIPort
		log.Info("server starting", "addr", addr, "environment", cfg.APIEnvironment)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
