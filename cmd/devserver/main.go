package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/shopdesk/shopdesk/internal/auth"
	"github.com/shopdesk/shopdesk/internal/config"
	"github.com/shopdesk/shopdesk/internal/devserver"
	"github.com/shopdesk/shopdesk/internal/log"
	"github.com/shopdesk/shopdesk/store"
	"github.com/shopdesk/shopdesk/store/message"
	"github.com/shopdesk/shopdesk/store/user"
)

var addr = flag.String("addr", "", "http service address (overrides ADDR)")

func main() {
	flag.Parse()

	cfg, err := config.LoadServer()
	if err != nil {
		l := log.L()
		l.Fatal().Err(err).Msg("load config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	log.Init(log.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, ServiceName: "shopdesk-devserver"}, nil)
	logger := log.L()

	seeds, err := cfg.Seeds()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse SEED_USERS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		users    user.Store
		messages message.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("open database")
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("close database")
			}
		}()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal().Err(err).Msg("database unreachable")
		}
		if _, err := db.ExecContext(ctx, store.Schema); err != nil {
			logger.Fatal().Err(err).Msg("apply schema")
		}
		logger.Info().Msg("connected to database")
		users = user.NewSQLStore(db)
		messages = message.NewSQLStore(db)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, keeping data in memory")
		users = user.NewMemoryStore()
		messages = message.NewMemoryStore()
	}

	srv := devserver.New(devserver.Deps{
		Users:    users,
		Messages: messages,
		Auth:     auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL),
		TokenTTL: cfg.TokenTTL,
		WS:       devserver.DefaultWSConfig(),
		Logger:   logger,
	})
	if err := srv.Seed(ctx, seeds); err != nil {
		logger.Fatal().Err(err).Msg("seed users")
	}
	go srv.Run(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("addr", cfg.Addr).Msg("server starting")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("listen and serve")
	}
}
