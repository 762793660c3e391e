package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shopdesk/shopdesk/internal/log"
)

const envPrefix = "SHOPDESK"

// Config is the console configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Push    PushConfig    `mapstructure:"push"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Session SessionConfig `mapstructure:"session"`
	Log     log.Config    `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	Burst     int           `mapstructure:"burst"`
}

type PushConfig struct {
	URL            string        `mapstructure:"url"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type ChatConfig struct {
	PageSize   int `mapstructure:"page_size"`
	RosterSize int `mapstructure:"roster_size"`
}

type SessionConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads shopdesk.yaml from path (a file) or the default search
// directories, then applies SHOPDESK_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("shopdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if dir := defaultDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Push.URL == "" {
		cfg.Push.URL = pushURLFromBase(cfg.API.BaseURL)
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = filepath.Join(defaultDir(), "session.json")
	}
	if cfg.Chat.PageSize <= 0 {
		cfg.Chat.PageSize = 100
	}
	if cfg.Chat.RosterSize <= 0 {
		cfg.Chat.RosterSize = 50
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:9005/api")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.burst", 5)
	v.SetDefault("push.url", "")
	v.SetDefault("push.ping_interval", "30s")
	v.SetDefault("push.pong_wait", "60s")
	v.SetDefault("push.write_wait", "10s")
	v.SetDefault("push.max_message_size", 4096)
	v.SetDefault("chat.page_size", 100)
	v.SetDefault("chat.roster_size", 50)
	v.SetDefault("session.path", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.pretty", true)
	v.SetDefault("log.service_name", "shopdesk")
}

// defaultDir is $HOME/.config/shopdesk, or empty when no home is known.
func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "shopdesk")
}

// pushURLFromBase derives the websocket endpoint served next to the REST API:
// http://host:port/api -> ws://host:port/ws.
func pushURLFromBase(base string) string {
	u := strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	u = strings.TrimSuffix(u, "/api")
	return u + "/ws"
}
