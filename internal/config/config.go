// Package config loads the CLI configuration for the demo applications
// using viper. The transport library itself takes explicit parameters and
// never reads this.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores the parameters the hero CLI applications run with.
type Config struct {
	Host           string        `mapstructure:"host"`            // client: server host to connect to
	Port           int           `mapstructure:"port"`            // server listen port / client target port
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // client handshake deadline
	ReceiveTimeout time.Duration `mapstructure:"receive_timeout"` // per-receive poll window
	StaleTimeout   time.Duration `mapstructure:"stale_timeout"`   // server: idle peer eviction threshold
	EchoPrefix     string        `mapstructure:"echo_prefix"`     // serve: prefix prepended to echoed payloads
	Debug          bool          `mapstructure:"debug"`           // enable debug logging
}

// Load reads a YAML/TOML/JSON config file and applies HERO_* environment
// overrides. An empty path yields the defaults (still honouring the
// environment).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HERO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	// Unmarshal only sees keys viper knows of; bind every key so its
	// HERO_* variable applies even when no file sets it.
	for _, key := range []string{"host", "port", "connect_timeout", "receive_timeout", "stale_timeout", "echo_prefix", "debug"} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		dir := filepath.Dir(path)
		filename := filepath.Base(path)
		ext := filepath.Ext(filename)

		v.SetConfigName(strings.TrimSuffix(filename, ext))
		v.SetConfigType(strings.TrimPrefix(ext, "."))
		v.AddConfigPath(dir)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills in the transport defaults for anything the file and
// environment left unset.
func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 9999
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.ReceiveTimeout == 0 {
		cfg.ReceiveTimeout = 100 * time.Millisecond
	}
	if cfg.StaleTimeout == 0 {
		cfg.StaleTimeout = 30 * time.Second
	}
	if cfg.EchoPrefix == "" {
		cfg.EchoPrefix = "Echo: "
	}
}
