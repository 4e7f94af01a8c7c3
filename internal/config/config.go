package config

import (
	"errors"
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"time"
)

var (
	ErrConfigNotLoaded = errors.New("config not loaded")
)

type Environment string

const (
	Production  Environment = "prod"
	Development Environment = "dev"
)

func (e *Environment) SetValue(s string) error {
	*e = Environment(s)
	if *e != Production && *e != Development {
		return configNotLoadedErr(`only "prod" and "dev" environments are allowed`)
	}
	return nil
}

type Config struct {
	App struct {
		Env     Environment `yaml:"env" env:"ENV" env-default:"dev"`
		Name    string      `yaml:"name" env:"NAME" env-default:"BMI Calculator API"`
		Version string      `yaml:"version" env:"VERSION" env-default:"1.0.0"`
	} `yaml:"app" env-prefix:"APP_"`

	Server struct {
		Host            string        `yaml:"host" env:"HOST" env-default:"127.0.0.1"`
		Port            int           `yaml:"port" env:"PORT" env-default:"8000"`
		BasePath        string        `yaml:"base_path" env:"BASE_PATH" env-default:"/api/v1"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"5s"`
	} `yaml:"server" env-prefix:"SERVER_"`

	DB struct {
		Driver string `yaml:"driver" env:"DRIVER" env-default:"sqlite3"`
		DSN    string `yaml:"dsn" env:"DSN" env-default:"bmi.db"`
		Seed   bool   `yaml:"seed" env:"SEED" env-default:"true"`
	} `yaml:"db" env-prefix:"DB_"`

	JWT struct {
		AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"30m"`
		Secret         string        `yaml:"secret" env:"SECRET" env-required:""`
	} `yaml:"jwt" env-prefix:"JWT_"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:5173,http://127.0.0.1:5173,http://localhost:5174,http://127.0.0.1:5174"`
	} `yaml:"cors" env-prefix:"CORS_"`

	BMI struct {
		StrictUnits bool `yaml:"strict_units" env:"STRICT_UNITS" env-default:"false"`
	} `yaml:"bmi" env-prefix:"BMI_"`
}

func Load(filePath string) (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadConfig(filePath, cfg); err != nil {
		return nil, configNotLoadedErr("config not loaded: %w", err)
	}

	return cfg, nil
}

// LoadEnv reads the configuration from environment variables only.
func LoadEnv() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, configNotLoadedErr("config not loaded: %w", err)
	}

	return cfg, nil
}

// MustLoad reads filePath, or only the environment when filePath is empty.
func MustLoad(filePath string) *Config {
	load := func() (*Config, error) { return Load(filePath) }
	if filePath == "" {
		load = LoadEnv
	}

	cfg, err := load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func configNotLoadedErr(format string, args ...any) error {
	return errors.Join(fmt.Errorf(format, args...), ErrConfigNotLoaded)
}
