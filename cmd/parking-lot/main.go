package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-occupancy/internal/config"
	"parking-occupancy/internal/logging"
	"parking-occupancy/internal/notify"
	"parking-occupancy/internal/parking"
	"parking-occupancy/internal/server"
	"parking-occupancy/internal/store"
)

var (
	mode = flag.String("mode", "", "Mode to run: cli, server, or both (default from APP_MODE)")
	port = flag.String("port", "", "Port for HTTP server (default from APP_PORT)")
)

type app struct {
	cfg       *config.Config
	telemetry *parking.TelemetryProvider
	store     parking.SlotStore
	cache     *parking.SnapshotCache
	entry     *parking.EntryController
	exit      *parking.ExitController
	view      *parking.OccupiedView
	toast     *notify.Toast
	hub       *notify.Hub
}

func main() {
	flag.Parse()

	cfg := config.Load()
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *port != "" {
		cfg.Port = *port
	}

	logging.Init(cfg.IsDevelopment(), cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryProvider := parking.NewNoopTelemetryProvider()
	if cfg.TelemetryOn {
		tp, err := parking.NewTelemetryProvider(ctx, parking.TelemetryConfig{
			ServiceName: cfg.OTelServiceName,
			Endpoint:    cfg.OTelEndpoint,
			SampleRatio: cfg.OTelSampleRatio,
		})
		if err != nil {
			logging.Logger().Fatal().Err(err).Msg("Failed to initialize telemetry")
		}
		telemetryProvider = tp
	}

	slotStore, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		logging.Logger().Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to open slot store")
	}
	defer closeStore()

	a, err := newApp(ctx, cfg, telemetryProvider, slotStore)
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("Failed to initialize parking lot")
	}
	defer a.toast.Stop()

	go a.hub.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch cfg.Mode {
	case "cli":
		runCLI(ctx, cancel, a, sigChan)
	case "server":
		runServer(ctx, cancel, a, sigChan)
	case "both":
		runBoth(ctx, cancel, a, sigChan)
	default:
		logging.Logger().Fatal().Str("mode", cfg.Mode).Msg("Invalid mode. Must be cli, server, or both")
	}
}

func newApp(ctx context.Context, cfg *config.Config, telemetry *parking.TelemetryProvider, slotStore parking.SlotStore) (*app, error) {
	instrumented, err := parking.NewInstrumentedStore(slotStore, telemetry)
	if err != nil {
		return nil, err
	}

	toast := notify.NewToast(cfg.NotificationTTL)
	hub := notify.NewHub()
	notifier := notify.Fanout{toast, hub, notify.Log}

	cache := parking.NewSnapshotCache(instrumented)
	cache.Subscribe(hub.PublishSnapshot)

	guard := parking.NewSlotGuard()
	biller := parking.NewBiller(cfg.RatePerHour, parking.SystemClock)

	a := &app{
		cfg:       cfg,
		telemetry: telemetry,
		store:     instrumented,
		cache:     cache,
		entry:     parking.NewEntryController(instrumented, cache, guard, notifier, parking.SystemClock),
		exit:      parking.NewExitController(instrumented, cache, guard, notifier, biller, parking.SystemClock),
		view:      parking.NewOccupiedView(cache, cfg.PageSize),
		toast:     toast,
		hub:       hub,
	}

	// An unreachable store at startup leaves an empty snapshot; "refresh"
	// or POST /api/slots/refresh retries.
	if err := cache.Refresh(ctx); err != nil {
		logging.Warn(ctx).Err(err).Msg("Initial slot load failed")
	}

	return a, nil
}

func (a *app) newServer() *server.Server {
	return server.NewServer(a.cfg.Port, server.Deps{
		Store:        a.store,
		Cache:        a.cache,
		Entry:        a.entry,
		Exit:         a.exit,
		Toast:        a.toast,
		Hub:          a.hub,
		PageSize:     a.cfg.PageSize,
		ServiceName:  a.cfg.OTelServiceName,
		RateLimitRPS: a.cfg.RateLimitRPS,
	})
}

func (a *app) newShell() *parking.Shell {
	return parking.NewShell(a.cache, a.entry, a.exit, a.view, a.telemetry, os.Stdin, os.Stdout)
}

func runCLI(ctx context.Context, cancel context.CancelFunc, a *app, sigChan chan os.Signal) {
	go func() {
		<-sigChan
		logging.Info(ctx).Msg("Shutting down...")
		cancel()
	}()

	a.newShell().Run(ctx)

	shutdownTelemetry(a.telemetry)
}

func runServer(ctx context.Context, cancel context.CancelFunc, a *app, sigChan chan os.Signal) {
	srv := a.newServer()

	go func() {
		<-sigChan
		logging.Info(ctx).Msg("Received shutdown signal...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error(ctx).Err(err).Msg("Server shutdown error")
		}

		cancel()
	}()

	logging.Info(ctx).Str("port", a.cfg.Port).Msg("Starting server mode")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error(ctx).Err(err).Msg("Server error")
	}

	shutdownTelemetry(a.telemetry)
}

func runBoth(ctx context.Context, cancel context.CancelFunc, a *app, sigChan chan os.Signal) {
	srv := a.newServer()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan bool, 1)
	go func() {
		a.newShell().Run(ctx)
		cliDone <- true
	}()

	go func() {
		<-sigChan
		logging.Info(ctx).Msg("Received shutdown signal...")
		cancel()
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx).Err(err).Msg("Server error")
		}
	case <-cliDone:
		logging.Info(ctx).Msg("CLI exited")
	case <-ctx.Done():
		logging.Info(ctx).Msg("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx).Err(err).Msg("Server shutdown error")
	}

	shutdownTelemetry(a.telemetry)
}

func shutdownTelemetry(telemetryProvider *parking.TelemetryProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logging.Info(ctx).Msg("Shutting down telemetry...")
	if err := telemetryProvider.Shutdown(ctx); err != nil {
		logging.Error(ctx).Err(err).Msg("Error shutting down telemetry")
	}
}
