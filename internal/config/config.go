// Package config loads pulse settings from flags, environment, and an
// optional .pulse.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. PULSE_API_URL.
const EnvPrefix = "PULSE"

// Config is the resolved settings.
type Config struct {
	APIURL         string        `mapstructure:"api_url" validate:"required,url"`
	WSURL          string        `mapstructure:"ws_url" validate:"required,url"`
	ConnectDelay   time.Duration `mapstructure:"connect_delay" validate:"gte=0"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay" validate:"gt=0"`
	TokenFile      string        `mapstructure:"token_file" validate:"required"`
	Listen         string        `mapstructure:"listen" validate:"required"`
	LogLevel       string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat      string        `mapstructure:"log_format" validate:"oneof=console json"`
}

// FeedURL is the WebSocket endpoint of the realtime event feed.
func (c Config) FeedURL() string {
	return strings.TrimRight(c.WSURL, "/") + "/ws/logs"
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8000")
	v.SetDefault("ws_url", "ws://localhost:8000")
	v.SetDefault("connect_delay", 500*time.Millisecond)
	v.SetDefault("reconnect_delay", 3*time.Second)
	v.SetDefault("token_file", defaultTokenFile())
	v.SetDefault("listen", ":7070")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Init points v at the config file and environment. An explicit file must
// exist; the default .pulse.yaml lookup is optional.
func Init(v *viper.Viper, file string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".pulse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.TokenFile = expandHome(cfg.TokenFile)
	if err := validate.Struct(cfg); err != nil {
		return Config{}, formatValidationError(err)
	}
	return cfg, nil
}

func defaultTokenFile() string {
	return filepath.Join("~", ".pulse", "token.json")
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, "~"+string(filepath.Separator)) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}

var validate = validator.New()

func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
