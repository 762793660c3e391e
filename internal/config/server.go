package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig configures the development backend. It is read from the
// environment only.
type ServerConfig struct {
	Addr        string        `env:"ADDR" envDefault:":9005"`
	DatabaseURL string        `env:"DATABASE_URL"`
	JWTSecret   string        `env:"JWT_SECRET" envDefault:"shopdesk-dev-secret"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"shopdesk-dev"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	SeedUsers   []string      `env:"SEED_USERS" envSeparator:","`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty   bool          `env:"LOG_PRETTY" envDefault:"false"`
}

// SeedUser is one SEED_USERS entry in name:email:password:role form.
type SeedUser struct {
	Name     string
	Email    string
	Password string
	Role     string
}

func LoadServer() (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Seeds parses SeedUsers.
func (c *ServerConfig) Seeds() ([]SeedUser, error) {
	seeds := make([]SeedUser, 0, len(c.SeedUsers))
	for _, raw := range c.SeedUsers {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid seed user %q: want name:email:password:role", raw)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("invalid seed user %q: email and password are required", raw)
		}
		seeds = append(seeds, SeedUser{Name: parts[0], Email: parts[1], Password: parts[2], Role: parts[3]})
	}
	return seeds, nil
}
