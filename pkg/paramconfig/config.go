// Package paramconfig loads alias mappings and cache settings for a
// paramcache.ParameterCache from a config file, with environment overrides.
package paramconfig

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/illmade-knight/go-paramstore/pkg/paramcache"
)

// Settings is the file shape. MaxAge accepts either a duration string
// ("90s", "1h") or a bare number of seconds.
type Settings struct {
	WithDecryption bool              `mapstructure:"WithDecryption"`
	MaxAge         time.Duration     `mapstructure:"MaxAge"`
	Aliases        map[string]string `mapstructure:"Aliases"`
}

// CacheConfig converts the loaded settings into a paramcache.Config.
func (s *Settings) CacheConfig() *paramcache.Config {
	withDecryption := s.WithDecryption
	maxAge := s.MaxAge
	return &paramcache.Config{
		WithDecryption: &withDecryption,
		MaxAge:         &maxAge,
	}
}

// Load reads and validates the settings file at path. Any value can be
// overridden through PARAMSTORE_* environment variables.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PARAMSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var s Settings
	if err := v.Unmarshal(&s, viper.DecodeHook(secondsDurationHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("WithDecryption", true)
	v.SetDefault("MaxAge", paramcache.DefaultMaxAge)
}

func (s *Settings) validate() error {
	if s.MaxAge < 0 {
		return fmt.Errorf("MaxAge must not be negative, got %s", s.MaxAge)
	}
	if len(s.Aliases) == 0 {
		return fmt.Errorf("at least one alias must be configured")
	}
	for alias, path := range s.Aliases {
		if strings.TrimSpace(alias) == "" || strings.TrimSpace(path) == "" {
			return fmt.Errorf("alias and path must be non-empty, got %q -> %q", alias, path)
		}
	}
	return nil
}

// secondsDurationHook decodes duration fields from either duration strings
// or bare numbers, which are read as seconds.
func secondsDurationHook() mapstructure.DecodeHookFunc {
	durationType := reflect.TypeOf(time.Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType {
			return data, nil
		}

		switch value := data.(type) {
		case string:
			if parsed, err := time.ParseDuration(value); err == nil {
				return parsed, nil
			}
			if seconds, err := strconv.ParseFloat(value, 64); err == nil {
				return time.Duration(seconds * float64(time.Second)), nil
			}
			return nil, fmt.Errorf("cannot parse duration from %q", value)
		case int:
			return time.Duration(value) * time.Second, nil
		case int64:
			return time.Duration(value) * time.Second, nil
		case float64:
			return time.Duration(value * float64(time.Second)), nil
		default:
			return data, nil
		}
	}
}
