package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "ECONSOM"

// Sentinel errors wrapped by Load.
var (
	ErrConfigFileNotFound = errors.New("config: file not found")
	ErrConfigParseError   = errors.New("config: parse error")
	ErrConfigValidation   = errors.New("config: validation failed")
)

var (
	globalMu  sync.RWMutex
	globalCfg *Config
)

// Get returns the configuration produced by the last successful Load.
func Get() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalCfg
}

// Option adjusts how Load finds and merges configuration.
type Option func(*loadOptions)

type loadOptions struct {
	path        string
	searchPaths []string
	overrides   map[string]interface{}
}

// WithConfigPath reads exactly this file.
func WithConfigPath(path string) Option {
	return func(o *loadOptions) { o.path = path }
}

// WithSearchPaths looks for config.yaml in each directory.  A missing file is
// not an error when only search paths are given.
func WithSearchPaths(dirs ...string) Option {
	return func(o *loadOptions) { o.searchPaths = append(o.searchPaths, dirs...) }
}

// WithOverrides sets keys after file and environment, e.g. from CLI flags.
func WithOverrides(values map[string]interface{}) Option {
	return func(o *loadOptions) { o.overrides = values }
}

// newViper builds a Viper instance with YAML file type, the ECONSOM_ env
// prefix and a "." → "_" key replacer, so "database.host" resolves to
// ECONSOM_DATABASE_HOST.  Every known key is bound so environment-only values
// reach Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, reflect.TypeOf(Config{}), "")
	return v
}

func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := f.Tag.Get("mapstructure")
		if key == "" || key == "-" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if f.Type.Kind() == reflect.Struct && f.Type.PkgPath() != "time" {
			bindEnvs(v, f.Type, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// Load reads YAML configuration, merges ECONSOM_* environment overrides and
// explicit overrides, applies defaults and validates.  With no options it
// behaves like LoadFromEnv.
func Load(opts ...Option) (*Config, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	v := newViper()
	switch {
	case o.path != "":
		if _, err := os.Stat(o.path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, o.path)
		}
		v.SetConfigFile(o.path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrConfigParseError, o.path, err)
		}
	case len(o.searchPaths) > 0:
		v.SetConfigName("config")
		for _, dir := range o.searchPaths {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("%w: %v", ErrConfigParseError, err)
			}
		}
	}
	for k, val := range o.overrides {
		v.Set(k, val)
	}

	cfg, err := unmarshalAndFinalize(v)
	if err != nil {
		return nil, err
	}
	globalMu.Lock()
	globalCfg = cfg
	globalMu.Unlock()
	return cfg, nil
}

// LoadFromFile is Load(WithConfigPath(path)).
func LoadFromFile(path string) (*Config, error) {
	return Load(WithConfigPath(path))
}

// LoadFromEnv builds a Config from ECONSOM_* environment variables only.
//
//	ECONSOM_<SECTION>_<FIELD>   e.g.  ECONSOM_DATABASE_HOST, ECONSOM_ANALYSIS_ROWS
func LoadFromEnv() (*Config, error) {
	return Load()
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParseError, err)
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}
	return cfg, nil
}

// Watch re-reads configPath whenever it changes and passes valid results to
// onChange.  Invalid revisions are reported to onError when it is non-nil.
// Only hot-reloadable settings such as the log level should be applied.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigParseError, configPath, err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad panics on any error.  Meant for main().
func MustLoad(opts ...Option) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
