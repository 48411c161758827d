package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis"
	"github.com/spf13/afero"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/voxgate/voxgate/internal/config"
	voice "github.com/voxgate/voxgate/internal/domains/voice"
	"github.com/voxgate/voxgate/internal/domains/voice/command"
	"github.com/voxgate/voxgate/internal/domains/voice/enroll"
	"github.com/voxgate/voxgate/internal/domains/voice/verify"
	"github.com/voxgate/voxgate/internal/domains/voice/voiceprint"
	"github.com/voxgate/voxgate/internal/domains/voice/wake"
	"github.com/voxgate/voxgate/internal/handlers"
	wshandler "github.com/voxgate/voxgate/internal/handlers/websocket"
	"github.com/voxgate/voxgate/internal/server"
	"github.com/voxgate/voxgate/internal/status"
	"github.com/voxgate/voxgate/pkg/Logger"
	"github.com/voxgate/voxgate/pkg/audio/analyser"
	"github.com/voxgate/voxgate/pkg/audio/mic"
	"github.com/voxgate/voxgate/pkg/audio/vad"
	"github.com/voxgate/voxgate/pkg/io/playback"
	"github.com/voxgate/voxgate/pkg/io/stt/wsremote"
)

// App represents the application with all its dependencies
type App struct {
	Config     *config.Settings
	Logger     *Logger.Logger
	Analyser   *analyser.FFTAnalyser
	Mic        *mic.Source
	Recognizer *wsremote.Client
	Store      voiceprint.Store
	Publisher  *status.Publisher
	Playback   *playback.Memory
	Voice      *voice.Service
	Router     *gin.Engine
}

// NewApp creates a new application instance with all dependencies properly
// wired. The context bounds the voice subsystem lifetime; the dispatcher
// receives parsed commands and the caller decides how they reach the player.
func NewApp(ctx context.Context, cfg *config.Settings, logger *Logger.Logger, dispatch command.Dispatcher) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}
	if err := a.setupDependencies(ctx, dispatch); err != nil {
		return nil, err
	}
	return a, nil
}

// setupDependencies initializes all application dependencies
func (a *App) setupDependencies(ctx context.Context, dispatch command.Dispatcher) error {
	store, err := newStore(a.Config.Store)
	if err != nil {
		return err
	}
	a.Store = store

	a.Publisher = status.NewPublisher()
	a.Playback = playback.NewMemory(1.0)

	// Audio capture fans out to the analyser and the recognition stream.
	a.Analyser = analyser.New(a.Config.Audio.SampleRate, a.Config.Audio.FFTSize)
	a.Recognizer = wsremote.New(a.Config.STT.URL, a.Config.Audio.SampleRate, a.Logger)
	a.Mic = mic.New(a.Config.Audio.SampleRate, a.Logger, a.Analyser, a.Recognizer)

	engine := verify.NewEngine(a.Logger)
	ducker := wake.NewDucker(a.Playback, a.Config.Voice.DuckFactor)

	wakeCfg := wake.DefaultConfig()
	wakeCfg.WakeToken = a.Config.Voice.WakeToken
	wakeCfg.CommandWindow = a.Config.Voice.CommandWindow()
	wakeCfg.RestartBackoff = a.Config.Voice.RestartBackoff()
	wakeCfg.StartRetry = a.Config.Voice.StartRetry()
	wakeCfg.DuckFactor = a.Config.Voice.DuckFactor
	machine := wake.NewMachine(wakeCfg, a.Logger, a.Recognizer, a.Analyser, engine, ducker, a.Publisher, dispatch)

	vadCfg := vad.DefaultConfig()
	vadCfg.Threshold = a.Config.Voice.VADThreshold
	detector := vad.New(a.Analyser, vadCfg, a.Logger, machine.EnsureSession)

	enrollCfg := enroll.DefaultConfig()
	if len(a.Config.Voice.Phrases) > 0 {
		enrollCfg.Phrases = a.Config.Voice.Phrases
	}
	enroller := enroll.NewController(enrollCfg, a.Recognizer, a.Analyser, store, a.Publisher, a.Logger)

	a.Voice = voice.NewService(ctx, a.Logger, machine, detector, enroller, store, a.Publisher)

	voiceHandler := handlers.NewVoiceHandler(a.Voice, a.Config.Server.AuthSecret, a.Logger)
	statusHandler := wshandler.NewStatusHandler(a.Publisher, a.Logger)
	a.Router = server.NewRouter(a.Config, voiceHandler, statusHandler, a.Logger)

	return nil
}

// newStore selects the voiceprint backend from configuration.
func newStore(cfg config.StoreConfig) (voiceprint.Store, error) {
	switch cfg.Backend {
	case "", "file":
		return voiceprint.NewFileStore(afero.NewOsFs(), cfg.Path), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping().Err(); err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		return voiceprint.NewRedisStore(client), nil
	case "mysql":
		db, err := gorm.Open(mysql.Open(cfg.DB.DSN()), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("mysql store: %w", err)
		}
		return voiceprint.NewGormStore(db)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
