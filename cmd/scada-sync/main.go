package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	gormdb "scada-sync/internal/adapters/gorm"
	natspub "scada-sync/internal/adapters/nats"
	"scada-sync/internal/config"
	"scada-sync/internal/core/catalog"
	"scada-sync/internal/core/heartbeat"
	"scada-sync/internal/core/stream"
	"scada-sync/internal/core/telemetry"
	api "scada-sync/internal/delivery/http"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().
		Str("svc", "scada-sync").Logger()

	cfg := config.MustLoad()
	log.Info().Interface("cfg", cfg).Msg("boot")

	// Metadata catalog. A failed initial load is not fatal: the pipeline
	// runs with an empty catalog until a refresh succeeds.
	client := catalog.NewClient(cfg.GatewayBaseURL, cfg.ConnectTimeout, log)
	store := catalog.NewStore(client)

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial metadata load failed; starting with empty catalog")
	}

	// Optional snapshot sinks.
	var sinks []telemetry.Sink

	if cfg.PostgresDSN != "" {
		db, err := gormdb.New(cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres connect")
		}
		sinks = append(sinks, gormdb.NewRecorder(db, log))
	}

	if cfg.NATSURL != "" {
		pub, err := natspub.NewPublisher(cfg.NATSURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("nats connect")
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}

	// Telemetry channel: stream → hub.
	hub := telemetry.NewHub(store, log, sinks...)
	telem := stream.NewManager("telemetry", cfg.TelemetryWSURL, cfg.ConnectTimeout, cfg.ReconnectDelay, log)
	unsubTelem := telem.Subscribe(hub.HandleEnvelope)
	defer unsubTelem()
	telem.Connect()
	defer telem.Disconnect()

	// Heartbeat channel: stream → tracker. Independent of telemetry.
	tracker := heartbeat.NewTracker(log)
	hb := stream.NewManager("heartbeat", cfg.HeartbeatWSURL, cfg.ConnectTimeout, cfg.ReconnectDelay, log)
	unsubHB := hb.Subscribe(tracker.HandleEnvelope)
	defer unsubHB()
	hb.Connect()
	defer hb.Disconnect()

	// Periodic reconciling catalog refresh, when enabled. Values flow
	// over the socket; this only keeps the metadata join current.
	if cfg.MetadataRefresh > 0 {
		go func() {
			t := time.NewTicker(cfg.MetadataRefresh)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					if err := store.Refresh(ctx); err != nil {
						log.Warn().Err(err).Msg("periodic metadata refresh failed")
					}
				}
			}
		}()
	}

	handler := api.New(hub, tracker, telem, store, log)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}

	go func() {
		log.Info().Str("listen", cfg.ListenAddr).Msg("HTTP up")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http")
		}
	}()

	<-ctx.Done()
	_ = srv.Shutdown(context.Background())
	log.Info().Msg("bye")
}
