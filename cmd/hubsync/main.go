package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"golang.org/x/sync/errgroup"

	alertadapter "github.com/ericfisherdev/hubsync/internal/adapter/driven/alert"
	feedadapter "github.com/ericfisherdev/hubsync/internal/adapter/driven/feed"
	googleadapter "github.com/ericfisherdev/hubsync/internal/adapter/driven/google"
	hubadapter "github.com/ericfisherdev/hubsync/internal/adapter/driven/hub"
	sqliteadapter "github.com/ericfisherdev/hubsync/internal/adapter/driven/sqlite"
	youtubeadapter "github.com/ericfisherdev/hubsync/internal/adapter/driven/youtube"
	httphandler "github.com/ericfisherdev/hubsync/internal/adapter/driving/http"
	"github.com/ericfisherdev/hubsync/internal/application"
	"github.com/ericfisherdev/hubsync/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"callback_url", cfg.CallbackURL,
		"reconcile_interval", cfg.ReconcileInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire store adapters.
	subscriptionStore := sqliteadapter.NewSubscriptionRepo(db)
	queueStore := sqliteadapter.NewQueueRepo(db)
	channelStore := sqliteadapter.NewChannelRepo(db)
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)

	// 6. Wire outbound clients.
	hubClient := hubadapter.NewClient(cfg.HubURL, cfg.FeedURL, cfg.CallbackURL)
	lister := youtubeadapter.NewClient()
	exchanger := googleadapter.NewExchanger(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL)
	notifier := alertadapter.NewClient(cfg.AlertWebhookURL)

	// 7. Create application components.
	tokenManager, err := application.NewTokenManager(ctx, credentialStore, exchanger, notifier, exchanger.AuthCodeURL())
	if err != nil {
		return err
	}
	consumer := application.NewQueueConsumer(queueStore, hubClient)
	scheduler := application.NewRenewalScheduler(subscriptionStore, consumer, cfg.RenewalWindow, cfg.RenewalDelay, cfg.RenewalFallback)
	reconciler := application.NewReconciler(subscriptionStore, channelStore, consumer, tokenManager, lister, cfg.ReconcileInterval)

	// 8. Create HTTP handler: webhook callback, admin auth, status API.
	handler := httphandler.NewHandler(subscriptionStore, queueStore, channelStore, tokenManager, feedadapter.NewLogSink(), slog.Default())
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 9. Supervise the background tasks; any task failing shuts everything
	// down.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return consumer.Start(gctx) })
	g.Go(func() error { return scheduler.Start(gctx) })
	g.Go(func() error { return reconciler.Start(gctx) })

	g.Go(func() error {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	slog.Info("hubsync started", "listen_addr", cfg.ListenAddr)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("shutdown complete")
	return nil
}
