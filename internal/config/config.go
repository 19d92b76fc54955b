// Package config provides runtime configuration values for the service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/fairyhunter13/product-composite-service/internal/obs"
)

// Modes select how collaborators and channels are reached.
const (
	// ModeEmbedded runs in-process collaborators over an in-memory broker.
	ModeEmbedded = "embedded"
	// ModeRemote calls collaborators over HTTP and publishes to Redis.
	ModeRemote = "remote"
)

// Config holds configuration knobs for the HTTP server, collaborators and
// event channels.
type Config struct {
	HTTPAddr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	Mode             string        `env:"MODE" envDefault:"embedded"`
	LogMode          string        `env:"LOG_MODE" envDefault:"production"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	CompositeAddress string        `env:"COMPOSITE_ADDRESS"`

	ProductServiceURL        string        `env:"PRODUCT_SERVICE_URL"`
	RecommendationServiceURL string        `env:"RECOMMENDATION_SERVICE_URL"`
	ReviewServiceURL         string        `env:"REVIEW_SERVICE_URL"`
	CallTimeout              time.Duration `env:"CALL_TIMEOUT" envDefault:"2s"`

	RedisAddr          string `env:"REDIS_ADDR"`
	RedisChannelPrefix string `env:"REDIS_CHANNEL_PREFIX"`

	QueueBuffer        int `env:"QUEUE_BUFFER" envDefault:"128"`
	QueueHighWatermark int `env:"QUEUE_HIGH_WATERMARK" envDefault:"5000"`

	Tracing obs.TracingConfig
}

// Load collects configuration from the process environment with defaults.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom collects configuration from the given variables only.
func LoadFrom(environ map[string]string) (Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.CompositeAddress == "" {
		if h, err := os.Hostname(); err == nil {
			c.CompositeAddress = h
		}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects combinations the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Mode {
	case ModeEmbedded:
	case ModeRemote:
		if c.ProductServiceURL == "" || c.RecommendationServiceURL == "" || c.ReviewServiceURL == "" {
			errs = append(errs, errors.New("remote mode requires PRODUCT_SERVICE_URL, RECOMMENDATION_SERVICE_URL and REVIEW_SERVICE_URL"))
		}
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("remote mode requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MODE %q", c.Mode))
	}
	if c.CallTimeout < 0 {
		errs = append(errs, errors.New("CALL_TIMEOUT must be >= 0"))
	}
	if c.QueueBuffer <= 0 {
		errs = append(errs, errors.New("QUEUE_BUFFER must be > 0"))
	}
	return errors.Join(errs...)
}
