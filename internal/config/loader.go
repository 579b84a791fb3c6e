// Package config loads player settings from defaults, an optional YAML file,
// PLAYER_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/thesyncim/player"
	"github.com/thesyncim/player/internal/logging"
)

// LogSettings configures logging.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Settings is the complete application configuration.
type Settings struct {
	player.Config `mapstructure:",squash"`

	Log LogSettings `mapstructure:"log"`
}

// Flag names bound to configuration keys.
var flagKeys = map[string]string{
	"accel":      "accel",
	"hw-device":  "hw_device",
	"threads":    "decoder_threads",
	"scale-mode": "scale_mode",
	"queue":      "queue.enabled",
	"pacing":     "queue.pacing",
	"vsync":      "window.vsync",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// Load resolves settings. An empty path searches the user config directory
// and the working directory for config.yaml; a missing file is not an error
// then. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PLAYER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Settings{}, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	if err := readConfigFile(v, path); err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return s, nil
}

// Validate checks player and logging settings.
func (s Settings) Validate() error {
	var errs []error
	if err := s.Config.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(s.Log.Format); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Logging returns the logging configuration. Settings must be valid.
func (s Settings) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level, _ = logging.ParseLevel(s.Log.Level)
	cfg.Format, _ = logging.ParseFormat(s.Log.Format)
	return cfg
}

func setDefaults(v *viper.Viper) {
	d := player.DefaultConfig()
	v.SetDefault("accel", d.Accel)
	v.SetDefault("hw_device", d.HWDevice)
	v.SetDefault("decoder_threads", d.DecoderThreads)
	v.SetDefault("scale_mode", d.ScaleMode)
	v.SetDefault("queue.enabled", d.Queue.Enabled)
	v.SetDefault("queue.capacity", d.Queue.Capacity)
	v.SetDefault("queue.pacing", d.Queue.Pacing)
	v.SetDefault("window.title", d.Window.Title)
	v.SetDefault("window.width", d.Window.Width)
	v.SetDefault("window.height", d.Window.Height)
	v.SetDefault("window.vsync", d.Window.VSync)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file at %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "player"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
	}
	return nil
}
