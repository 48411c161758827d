package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/voxgate/voxgate/internal/app"
	"github.com/voxgate/voxgate/internal/config"
	"github.com/voxgate/voxgate/internal/domains/voice/command"
	"github.com/voxgate/voxgate/pkg/Logger"
	"github.com/voxgate/voxgate/pkg/audio/wavsrc"
)

// Entry point for the voice gateway.
// Captures microphone audio, gates it through wake-word detection and
// speaker verification, and serves the control API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := Logger.New(cfg.Debug)
	logger.Info("Logger initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Dispatched commands are published on the status stream; connected
	// player clients execute them.
	a, err := app.NewApp(ctx, cfg, logger, command.DispatcherFunc(func(cmd command.Command) {
		logger.Infow("command ready", "action", string(cmd.Action), "raw", cmd.Raw)
	}))
	if err != nil {
		logger.Fatalf("Failed to wire application: %v", err)
	}

	if err := a.Voice.Init(); err != nil {
		logger.Fatalf("Failed to load voiceprint: %v", err)
	}

	if cfg.Audio.WavPath != "" {
		src, err := wavsrc.Load(afero.NewOsFs(), cfg.Audio.WavPath)
		if err != nil {
			logger.Fatalf("Failed to load wav input: %v", err)
		}
		go func() {
			if err := src.Pump(ctx, cfg.Audio.ChunkSize, true, a.Analyser, a.Recognizer); err != nil && err != context.Canceled {
				logger.Errorf("Wav replay stopped: %v", err)
			}
		}()
	} else {
		if err := a.Mic.Start(); err != nil {
			logger.Fatalf("Failed to open microphone: %v", err)
		}
		defer a.Mic.Stop()
	}

	if err := a.Voice.StartListening(); err != nil {
		logger.Errorf("Listening not started: %v", err)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: a.Router.Handler(),
	}
	go func() {
		logger.Infof("Control API listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server exiting: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	a.Voice.StopListening()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown: %v", err)
	}
}
