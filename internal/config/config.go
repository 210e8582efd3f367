package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Game        GameConfig        `mapstructure:"game"`
	Archive     ArchiveConfig     `mapstructure:"archive"`
	Development DevelopmentConfig `mapstructure:"development"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type GameConfig struct {
	// Clock is each player's starting time.
	Clock time.Duration `mapstructure:"clock"`
}

type ArchiveConfig struct {
	Backend  string         `mapstructure:"backend"` // "file", "redis", "postgres" or "s3"
	File     FileConfig     `mapstructure:"file"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	S3       S3Config       `mapstructure:"s3"`
}

type FileConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type S3Config struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

type DevelopmentConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3000)
	v.SetDefault("game.clock", 10*time.Minute)
	v.SetDefault("archive.backend", "file")
	v.SetDefault("archive.file.path", "db.jsonl")
	v.SetDefault("archive.redis.url", "redis://localhost:6379/0")
	v.SetDefault("archive.redis.key", "clockchess:games")
	v.SetDefault("archive.postgres.url", "")
	v.SetDefault("archive.s3.bucket", "")
	v.SetDefault("archive.s3.prefix", "games")
	v.SetDefault("development.debug", false)
	v.SetDefault("development.log_level", "info")
}

// Load reads config.yaml from the working directory or ./config, then applies
// CLOCKCHESS_* environment overrides. A missing file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Enable environment variables
	v.SetEnvPrefix("CLOCKCHESS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Game.Clock <= 0 {
		return fmt.Errorf("game.clock must be positive, got %s", c.Game.Clock)
	}
	switch c.Archive.Backend {
	case "file", "redis", "postgres", "s3":
	default:
		return fmt.Errorf("unknown archive.backend %q", c.Archive.Backend)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
