package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env  string `env:"APP_ENV" env-default:"dev"`
	Port int    `env:"PORT" env-default:"8080"`

	Server   ServerConfig
	Pipeline PipelineConfig
	Geocoder GeocoderConfig
	Redis    RedisConfig
	Tracing  TracingConfig
	Sources  SourcesConfig
}

type ServerConfig struct {
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"35s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" env-separator:"," env-default:"*"`
	RateLimit       int           `env:"RATE_LIMIT" env-default:"60"`
	RateWindow      time.Duration `env:"RATE_WINDOW" env-default:"1m"`
}

type PipelineConfig struct {
	RequestTimeout time.Duration `env:"PIPELINE_REQUEST_TIMEOUT" env-default:"30s"`
	CallTimeout    time.Duration `env:"PIPELINE_CALL_TIMEOUT" env-default:"10s"`
	MaxConcurrency int           `env:"PIPELINE_MAX_CONCURRENCY" env-default:"0"`
}

type GeocoderConfig struct {
	BaseURL     string        `env:"GEOCODER_URL" env-default:"https://nominatim.openstreetmap.org"`
	UserAgent   string        `env:"GEOCODER_USER_AGENT" env-default:"WhatToDo/1.0 (whattodo@example.com)"`
	MinInterval time.Duration `env:"GEOCODER_MIN_INTERVAL" env-default:"1s"`
	Timeout     time.Duration `env:"GEOCODER_TIMEOUT" env-default:"5s"`
	CacheTTL    time.Duration `env:"GEOCODER_CACHE_TTL" env-default:"24h"`
}

// RedisConfig is optional; an empty address keeps the geocode cache in process.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:""`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type TracingConfig struct {
	ServiceName  string  `env:"OTEL_SERVICE_NAME" env-default:"whattodo"`
	OTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:""`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_ARG" env-default:"1"`
}

type SourcesConfig struct {
	SeatGeek     SourceConfig `env-prefix:"SEATGEEK_"`
	Ticketmaster SourceConfig `env-prefix:"TICKETMASTER_"`
	Eventbrite   SourceConfig `env-prefix:"EVENTBRITE_"`
	Yelp         SourceConfig `env-prefix:"YELP_"`
}

// SourceConfig is handed to an adapter at construction. An adapter whose credentials are
// missing is not registered.
type SourceConfig struct {
	Enabled          bool          `env:"ENABLED" env-default:"true"`
	BaseURL          string        `env:"API_URL" env-default:""`
	APIKey           string        `env:"API_KEY" env-default:""`
	APISecret        string        `env:"API_SECRET" env-default:""`
	PageSize         int           `env:"PAGE_SIZE" env-default:"10"`
	RatePerSecond    float64       `env:"RATE_PER_SECOND" env-default:"5"`
	Burst            int           `env:"BURST" env-default:"5"`
	MaxRetries       int           `env:"MAX_RETRIES" env-default:"2"`
	Backoff          time.Duration `env:"BACKOFF" env-default:"250ms"`
	MaxBackoff       time.Duration `env:"MAX_BACKOFF" env-default:"2s"`
	BreakerThreshold int           `env:"BREAKER_THRESHOLD" env-default:"5"`
	BreakerCooldown  time.Duration `env:"BREAKER_COOLDOWN" env-default:"30s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", c.Port)
	}
	if c.Pipeline.CallTimeout <= 0 {
		return fmt.Errorf("config: PIPELINE_CALL_TIMEOUT must be positive")
	}
	if c.Pipeline.RequestTimeout < c.Pipeline.CallTimeout {
		return fmt.Errorf("config: PIPELINE_REQUEST_TIMEOUT must not be shorter than PIPELINE_CALL_TIMEOUT")
	}
	if strings.TrimSpace(c.Geocoder.UserAgent) == "" {
		return fmt.Errorf("config: GEOCODER_USER_AGENT is required by the Nominatim usage policy")
	}
	return nil
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
