package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"faculty-availability-backend/config"
	"faculty-availability-backend/internal/api"
	"faculty-availability-backend/internal/auth"
	"faculty-availability-backend/internal/availability"
	"faculty-availability-backend/internal/bus"
	"faculty-availability-backend/internal/db"
	"faculty-availability-backend/internal/hub"
	"faculty-availability-backend/internal/metrics"
	"faculty-availability-backend/internal/notification"
	"faculty-availability-backend/internal/qr"
	"faculty-availability-backend/internal/store"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and realtime channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), config.FromContext(cmd.Context()))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return errors.New("no config found in context")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	statusHub := hub.New(cfg.Realtime.SendBuffer, hub.WithObserver(m))

	// Without a broker the service publishes straight into the local hub.
	var publisher hub.Publisher = statusHub
	if cfg.Broker.NATSURL != "" {
		nc, err := bus.Connect(cfg.Broker.NATSURL)
		if err != nil {
			return err
		}
		defer nc.Drain()

		conn := bus.Wrap(nc)
		relay, err := bus.StartRelay(conn, cfg.Broker.SubjectPrefix, statusHub)
		if err != nil {
			return err
		}
		defer relay.Close()
		publisher = bus.NewPublisher(conn, cfg.Broker.SubjectPrefix)
		log.Printf("status events bridged through NATS at %s", cfg.Broker.NATSURL)
	}

	svcOpts := []availability.Option{availability.WithRecorder(m)}

	var webpushOptions *webpush.Options
	var workerPool *notification.WorkerPool
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool = notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions)
		workerPool.Start(ctx)
		svcOpts = append(svcOpts, availability.WithDispatcher(workerPool))
	} else {
		log.Println("VAPID keys are not configured; push notifications are disabled")
	}

	creds := auth.NewCredentials(&cfg.Auth)
	svc := availability.NewService(appStore, creds, publisher, svcOpts...)

	encoder := qr.NewCachedEncoder(
		qr.NewPNGEncoder(cfg.QR.Size),
		time.Duration(cfg.QR.CacheTTLSeconds)*time.Second,
	)

	router := api.NewRouter(api.Deps{
		Config:      cfg,
		Store:       appStore,
		Service:     svc,
		Hub:         statusHub,
		Credentials: creds,
		QR:          encoder,
		Metrics:     m,
		WebPush:     webpushOptions,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Println("Shutdown signal received, stopping services...")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	cancel()
	if workerPool != nil {
		workerPool.Wait()
	}

	log.Println("Server gracefully stopped")
	return nil
}
