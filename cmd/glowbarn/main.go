package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bad-antics/glowbarn/internal/baselinestore"
	"github.com/bad-antics/glowbarn/internal/config"
	"github.com/bad-antics/glowbarn/internal/env"
	"github.com/bad-antics/glowbarn/internal/events"
	"github.com/bad-antics/glowbarn/internal/livefeed"
	"github.com/bad-antics/glowbarn/internal/logging"
	"github.com/bad-antics/glowbarn/internal/metrics"
	"github.com/bad-antics/glowbarn/internal/notifications"
	"github.com/bad-antics/glowbarn/internal/pipeline"
	"github.com/bad-antics/glowbarn/internal/recorder"
	"github.com/bad-antics/glowbarn/internal/triggerstate"
)

func main() {
	cfg := config.Load()
	env.Cfg = &cfg
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().Msg("Starting GlowBarn fusion core")

	notifications.Init()
	metrics.Init()

	var rec *recorder.Recorder
	if cfg.Recorder.BaseDir != "" {
		r, err := recorder.New(cfg.Recorder.BaseDir)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize recorder")
		}
		rec = r
		if cfg.Recorder.AutoRecord {
			if err := rec.StartSession(cfg.Recorder.SessionName, cfg.Recorder.SessionLocation); err != nil {
				log.Error().Err(err).Msg("failed to auto-start recording session")
			}
		}
	}

	var hub *livefeed.Hub
	if cfg.LiveFeed.Enabled {
		hub = livefeed.NewHub(cfg.LiveFeed.AllowedOrigin)
		mux := http.NewServeMux()
		mux.Handle("/live", hub)
		go func() {
			if err := http.ListenAndServe(cfg.LiveFeed.ListenAddr, mux); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("live feed server stopped")
			}
		}()
		log.Info().Str("addr", cfg.LiveFeed.ListenAddr).Msg("live feed listening")
	}

	var store *baselinestore.Store
	if cfg.BaselineStore.Enabled {
		s, err := baselinestore.Open(cfg.BaselineStore.DBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open baseline store")
		}
		store = s
		defer store.Close()
	}

	handler := events.LoggingHandler{}
	pipe := pipeline.New(cfg, rec, hub, store, handler)

	if store != nil {
		count, err := store.Restore(pipe.Engine().Registry())
		if err != nil {
			log.Error().Err(err).Msg("failed to restore baseline checkpoint")
		} else {
			log.Info().Int("sensors", count).Msg("restored baselines")
		}
	}

	stateStore := triggerstate.New(cfg.Recorder.BaseDir + "/trigger_state.json")
	if snap, err := stateStore.Load(); err != nil {
		log.Warn().Err(err).Msg("failed to load trigger cooldown state")
	} else {
		pipe.Manager().RestoreCooldowns(snap)
	}

	source := pipeline.NewChannelSource(cfg.EventChannelCapacity)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		pipe.Run(ctx, source)
		close(done)
	}()

	stopCheckpoint := make(chan struct{})
	if store != nil {
		interval, err := time.ParseDuration(cfg.BaselineStore.CheckpointEvery)
		if err != nil {
			interval = 30 * time.Second
		}
		go store.RunPeriodicCheckpoints(pipe.Engine().Registry(), interval, stopCheckpoint)
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pipe.SweepOfflineSensors(time.Now())
				if err := stateStore.Save(pipe.Manager().CooldownSnapshot()); err != nil {
					log.Warn().Err(err).Msg("failed to checkpoint trigger cooldown state")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	<-sig
	log.Info().Msg("shutdown signal received")
	cancel()
	close(stopCheckpoint)
	source.Close()
	<-done

	if err := stateStore.Save(pipe.Manager().CooldownSnapshot()); err != nil {
		log.Warn().Err(err).Msg("failed to save final trigger cooldown state")
	}
	if hub != nil {
		hub.Stop()
	}

	log.Info().Msg("GlowBarn shutdown complete")
}
