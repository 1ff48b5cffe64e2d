package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/config"
	httptransport "github.com/example/room-booking/internal/http"
	"github.com/example/room-booking/internal/notify"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/presence"
	"github.com/example/room-booking/internal/sweep"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("room booking service stopped", "error", err)
		os.Exit(1)
	}
}

// app holds the wired components of the service.
type app struct {
	handler http.Handler
	runner  *sweep.Runner
	closers []func(context.Context) error
}

// close releases resources in reverse construction order.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	storeCfg := sqlite.DefaultConfig(cfg.SQLiteDSN)
	storeCfg.QueryTimeout = cfg.StoreTimeout
	store, err := sqlite.Open(ctx, storeCfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })

	hubCfg := presence.DefaultConfig()
	hubCfg.AllowedOrigins = cfg.CORSOrigins
	hubCfg.WriteTimeout = cfg.DeliveryTimeout
	hub := presence.NewHub(hubCfg, logger)
	a.closers = append(a.closers, func(context.Context) error {
		hub.Close()
		return nil
	})

	var target application.BookingEventPublisher = notify.NewLogPublisher(logger)
	if cfg.AMQPURL != "" {
		amqpPublisher, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return amqpPublisher.Close() })
		target = amqpPublisher
	}

	dispatchCfg := notify.DefaultDispatcherConfig()
	dispatchCfg.Workers = cfg.DispatchWorkers
	dispatchCfg.TaskTimeout = cfg.DeliveryTimeout
	dispatchCfg.Retry.MaxRetries = cfg.DispatchRetries
	dispatcher := notify.NewDispatcher(dispatchCfg, logger)
	a.closers = append(a.closers, dispatcher.Close)
	events := notify.NewAsyncPublisher(dispatcher, target)

	now := func() time.Time { return time.Now().UTC() }

	bookings := application.NewBookingServiceWithLogger(store.Meetings, store.Rooms, events, uuid.NewString, now, logger)
	rooms := application.NewRoomServiceWithLogger(store.Rooms, store.Meetings, uuid.NewString, now, logger)
	directory := application.NewDirectoryServiceWithLogger(store.Users, uuid.NewString, now, logger)
	reconciler := application.NewLifecycleReconciler(store.Meetings, logger)
	reminders, err := application.NewReminderScheduler(store.Meetings, hub, hub, application.ReminderConfig{
		LeadTimes:       cfg.ReminderLeadTimes,
		DeliveryTimeout: cfg.DeliveryTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	a.runner, err = sweep.NewRunner(reconciler, reminders, sweep.Config{Interval: cfg.SweepInterval}, now, logger)
	if err != nil {
		return nil, err
	}

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Rooms:          httptransport.NewRoomHandler(rooms, logger),
		Meetings:       httptransport.NewMeetingHandler(bookings, logger),
		Directory:      httptransport.NewDirectoryHandler(directory, logger),
		Health:         httptransport.NewHealthHandler(store, cfg.StoreTimeout, logger),
		Presence:       hub,
		AllowedOrigins: cfg.CORSOrigins,
		Logger:         logger,
	})
	return a, nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.close(closeCtx); err != nil {
			logger.Error("failed to release resources", "error", err)
		}
	}()

	sweepDone := make(chan error, 1)
	go func() {
		sweepDone <- a.runner.Run(ctx)
	}()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("room booking API listening", "addr", server.Addr)
	serveErr := server.ListenAndServe()
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	cancel()
	return errors.Join(serveErr, <-sweepDone)
}
