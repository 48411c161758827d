package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	AuthSecret string `mapstructure:"auth_secret"`
}

type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate"`
	FFTSize    int `mapstructure:"fft_size"`
	ChunkSize  int `mapstructure:"chunk_size"`
	// WavPath replays a recorded file instead of opening the microphone.
	WavPath string `mapstructure:"wav_path"`
}

type VoiceConfig struct {
	WakeToken        string   `mapstructure:"wake_token"`
	Phrases          []string `mapstructure:"phrases"`
	VADThreshold     float64  `mapstructure:"vad_threshold"`
	CommandWindowMs  int      `mapstructure:"command_window_ms"`
	RestartBackoffMs int      `mapstructure:"restart_backoff_ms"`
	StartRetryMs     int      `mapstructure:"start_retry_ms"`
	DuckFactor       float64  `mapstructure:"duck_factor"`
}

func (v VoiceConfig) CommandWindow() time.Duration {
	return time.Duration(v.CommandWindowMs) * time.Millisecond
}

func (v VoiceConfig) RestartBackoff() time.Duration {
	return time.Duration(v.RestartBackoffMs) * time.Millisecond
}

func (v VoiceConfig) StartRetry() time.Duration {
	return time.Duration(v.StartRetryMs) * time.Millisecond
}

type STTConfig struct {
	URL string `mapstructure:"url"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StoreConfig selects where the voiceprint is persisted.
// Backend is one of "file", "redis" or "mysql".
type StoreConfig struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
	DB      DBConfig    `mapstructure:"database"`
}

type Settings struct {
	Server ServerConfig `mapstructure:"server"`
	Audio  AudioConfig  `mapstructure:"audio"`
	Voice  VoiceConfig  `mapstructure:"voice"`
	STT    STTConfig    `mapstructure:"stt"`
	Store  StoreConfig  `mapstructure:"store"`
	Env    string       `mapstructure:"env"`
	Debug  bool         `mapstructure:"debug" default:"false"`
}

func setDefaults() {
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("audio.sample_rate", 16000)
	viper.SetDefault("audio.fft_size", 2048)
	viper.SetDefault("audio.chunk_size", 1024)
	viper.SetDefault("voice.wake_token", "hey youtube")
	viper.SetDefault("voice.phrases", []string{
		"hey youtube",
		"youtube play",
		"youtube pause",
		"youtube volume up",
		"youtube skip ahead thirty seconds",
	})
	viper.SetDefault("voice.vad_threshold", 32.0)
	viper.SetDefault("voice.command_window_ms", 4000)
	viper.SetDefault("voice.restart_backoff_ms", 300)
	viper.SetDefault("voice.start_retry_ms", 1000)
	viper.SetDefault("voice.duck_factor", 0.2)
	viper.SetDefault("stt.url", "ws://localhost:2700")
	viper.SetDefault("store.backend", "file")
	viper.SetDefault("store.path", "voiceprint.json")
}

func Load() (*Settings, error) {
	// Load settings from a configuration file or environment variables
	viper.SetConfigName("config_" + genEnv())
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &settings, nil
}

func genEnv() string {
	env := viper.GetString("ENV")
	if env == "" {
		return "dev"
	}
	return env
}
