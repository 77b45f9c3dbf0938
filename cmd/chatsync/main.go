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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/chatsync/internal/adapters/http"
	"github.com/dkeye/chatsync/internal/adapters/identity"
	wssignal "github.com/dkeye/chatsync/internal/adapters/signal"
	"github.com/dkeye/chatsync/internal/app"
	"github.com/dkeye/chatsync/internal/app/orch"
	"github.com/dkeye/chatsync/internal/config"
	"github.com/dkeye/chatsync/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	// No identity, no engine.
	local, err := identity.FileProvider{Path: cfg.IdentityFile}.Current()
	if err != nil {
		log.Error().Err(err).Str("file", cfg.IdentityFile).Msg("no current user")
		if errors.Is(err, domain.ErrIdentityMissing) {
			os.Exit(2)
		}
		os.Exit(1)
	}

	o := orch.New(local, app.DefaultToastTimeouts())
	defer o.Toasts.Close()

	session := wssignal.NewSession(wssignal.WSDialer{URL: cfg.ServerURL}, o, wssignal.Options{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		WriteTimeout: cfg.WriteTimeout,
		DefaultRoom:  domain.RoomName(cfg.DefaultRoom),
		SendLimit:    cfg.SendLimit,
		SendInterval: cfg.SendInterval,
	})
	log.Info().Str("server", cfg.ServerURL).Msg("connection starts with the first live view")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.SetupRouter(ctx, cfg, o, session),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("chatsync started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		session.Close()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("exited gracefully")
}
