package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Log       Log       `yaml:"log"`
	Store     string    `yaml:"store" env:"STORE" env-default:"memory"`
	Redis     Redis     `yaml:"redis"`
	Game      Game      `yaml:"game"`
	Session   Session   `yaml:"session"`
	Telemetry Telemetry `yaml:"telemetry"`
}

type HTTP struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"debug"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Game struct {
	DefaultSize       int           `yaml:"default-size" env:"GAME_DEFAULT_SIZE" env-default:"3"`
	// MaxSize caps requested board sizes. The hard bot searches the whole
	// game tree, which only finishes within a turn on 3x3; a 4x4 board
	// already takes hours per move while holding the session.
	MaxSize           int           `yaml:"max-size" env:"GAME_MAX_SIZE" env-default:"3"`
	DefaultDifficulty string        `yaml:"default-difficulty" env:"GAME_DEFAULT_DIFFICULTY" env-default:"hard"`
	AIDelay           time.Duration `yaml:"ai-delay" env:"GAME_AI_DELAY" env-default:"500ms"`
}

type Session struct {
	TTL         time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"24h"`
	TokenSecret string        `yaml:"token-secret" env:"SESSION_TOKEN_SECRET" env-required:"true"`
	TokenTTL    time.Duration `yaml:"token-ttl" env:"SESSION_TOKEN_TTL" env-default:"72h"`
}

type Telemetry struct {
	Enabled        bool   `yaml:"enabled" env:"OTEL_ENABLED" env-default:"false"`
	Endpoint       string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"otel-collector:4317"`
	ServiceName    string `yaml:"service-name" env:"OTEL_SERVICE_NAME" env-default:"tic-tac-toe"`
	ServiceVersion string `yaml:"service-version" env-default:"v0.1.0"`
}

// Load reads the YAML file at path, or only the environment when path is empty,
// and validates the result.
func Load(path string) (*Config, error) {
	config := &Config{}

	var err error
	if path == "" {
		err = cleanenv.ReadEnv(config)
	} else {
		err = cleanenv.ReadConfig(path, config)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// MustLoad - load all configurations, panicking on failure.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}
	return config
}

// Validate checks values cleanenv cannot express with tags.
func (that *Config) Validate() error {
	switch that.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("invalid config: unknown store %q", that.Store)
	}
	if that.Game.DefaultSize < 1 || that.Game.MaxSize < that.Game.DefaultSize {
		return fmt.Errorf("invalid config: board sizes default=%d max=%d", that.Game.DefaultSize, that.Game.MaxSize)
	}
	if that.Game.AIDelay < 0 {
		return fmt.Errorf("invalid config: negative ai delay %s", that.Game.AIDelay)
	}
	if that.Session.TokenSecret == "" {
		return fmt.Errorf("invalid config: empty session token secret")
	}
	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
