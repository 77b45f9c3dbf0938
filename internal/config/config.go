package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string        `mapstructure:"mode" validate:"oneof=debug release test"`
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	StaticPath   string        `mapstructure:"static_path"`
	ServerURL    string        `mapstructure:"server_url" validate:"required,url"`
	IdentityFile string        `mapstructure:"identity_file" validate:"required"`
	ReadLimit    int64         `mapstructure:"read_limit" validate:"min=0"`
	PingPeriod   time.Duration `mapstructure:"ping_period" validate:"min=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	LogLevel     string        `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	DefaultRoom  string        `mapstructure:"default_room" validate:"required"`
	SendLimit    int           `mapstructure:"send_limit" validate:"min=0"`
	SendInterval time.Duration `mapstructure:"send_interval" validate:"min=0"`
}

var validate = validator.New()

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default), then lets
// CHATSYNC_* variables and a local .env file override it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile is Load with an explicit file. A missing file falls back to defaults.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("CHATSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("server_url", "ws://127.0.0.1:3000/ws")
	v.SetDefault("identity_file", "./current_user.json")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("log_level", "info")
	v.SetDefault("default_room", "main")
	v.SetDefault("send_limit", 0)
	v.SetDefault("send_interval", "1s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log.Info().Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("server", cfg.ServerURL).
		Msg("config ready")
	return &cfg, nil
}
