package config

import (
	"flag"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvLocal = "local"
	EnvTest  = "test"
	EnvProd  = "prod"
)

type Config struct {
	Env         string        `yaml:"env" env:"ENV" env-default:"local"`
	HttpPort    string        `yaml:"http_port" env:"PORT" env-default:"3001"`
	JWTSecret   string        `yaml:"jwt_secret" env:"SECRET_KEY" env-default:"not-bored"`
	DatabaseURL string        `yaml:"database_url" env:"DATABASE_URL" env-default:"postgres://localhost:5432/bored"`
	BcryptCost  int           `yaml:"bcrypt_work_factor" env:"BCRYPT_WORK_FACTOR" env-default:"12"`
	TokenTTL    time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"0s"`
	LogLevel    string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

// MustLoad reads the config file named by -config or CONFIG_PATH, or the
// environment alone when neither is set.
func MustLoad() *Config {
	cfg, err := Load(fetchConfigPath())
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrap(err, "config file does not exist: ")
		}
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, errors.Wrap(err, "cleanenv.ReadConfig failed: ")
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "cleanenv.ReadEnv failed: ")
	}

	// tests always hash with the cheapest cost
	if cfg.Env == EnvTest {
		cfg.BcryptCost = bcrypt.MinCost
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, errors.Errorf("bcrypt work factor %d out of range [%d, %d]", cfg.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return cfg, nil
}

func fetchConfigPath() string {
	var path string
	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}
