// Package config loads the signer configuration: defaults, then an optional
// YAML file, then OTS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ots/go-core/internal/chain"
	"ots/go-core/internal/seedlang"
)

// Config is the resolved signer configuration. DefaultLanguage covers the
// families it supports that have no entry in Languages. A zero KeyRetention
// keeps released keys until they are removed.
type Config struct {
	Network         chain.Network
	Languages       map[seedlang.Family]string
	DefaultLanguage string
	LogLevel        slog.Level
	LogFormat       string
	Metrics         bool
	KeyRetention    time.Duration
	DecryptRate     float64
	DecryptBurst    int
	LockoutBase     time.Duration
	LockoutMax      time.Duration
	WalletAccounts  uint32
	WalletSubAddrs  uint32
}

func Default() Config {
	return Config{
		Network:        chain.Main,
		Languages:      map[seedlang.Family]string{},
		LogLevel:       slog.LevelInfo,
		LogFormat:      "json",
		DecryptRate:    0.5,
		DecryptBurst:   3,
		LockoutBase:    time.Second,
		LockoutMax:     32 * time.Second,
		WalletAccounts: 5,
		WalletSubAddrs: 50,
	}
}

type FileConfig struct {
	Network         string            `yaml:"network"`
	Languages       map[string]string `yaml:"languages"`
	DefaultLanguage string            `yaml:"defaultLanguage"`
	Log             struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Metrics *bool `yaml:"metrics"`
	KeyJar  struct {
		Retention time.Duration `yaml:"retention"`
	} `yaml:"keyJar"`
	Decrypt struct {
		Rate        float64       `yaml:"rate"`
		Burst       int           `yaml:"burst"`
		LockoutBase time.Duration `yaml:"lockoutBase"`
		LockoutMax  time.Duration `yaml:"lockoutMax"`
	} `yaml:"decrypt"`
	Wallet struct {
		Accounts     uint32 `yaml:"accounts"`
		SubAddresses uint32 `yaml:"subAddresses"`
	} `yaml:"wallet"`
}

// LoadFromPath reads configPath, or the first default candidate that
// exists. A missing default file is not an error; a malformed one is.
func LoadFromPath(configPath string) (Config, error) {
	cfg := Default()

	candidates := []string{configPath}
	if configPath == "" {
		candidates = []string{"configs/ots.yaml", "ots.yaml"}
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) && configPath == "" {
			continue
		}
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		var parsed FileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := Merge(&cfg, parsed); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
		break
	}
	if err := ApplyEnvOverrides(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func Merge(dst *Config, src FileConfig) error {
	if src.Network != "" {
		net, err := chain.ParseNetwork(src.Network)
		if err != nil {
			return err
		}
		dst.Network = net
	}
	for rawFamily, code := range src.Languages {
		family, err := seedlang.ParseFamily(rawFamily)
		if err != nil {
			return err
		}
		dst.Languages[family] = code
	}
	if src.DefaultLanguage != "" {
		dst.DefaultLanguage = src.DefaultLanguage
	}
	if src.Log.Level != "" {
		if err := dst.LogLevel.UnmarshalText([]byte(src.Log.Level)); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}
	if src.Log.Format != "" {
		dst.LogFormat = src.Log.Format
	}
	if src.Metrics != nil {
		dst.Metrics = *src.Metrics
	}
	if src.KeyJar.Retention != 0 {
		dst.KeyRetention = src.KeyJar.Retention
	}
	if src.Decrypt.Rate != 0 {
		dst.DecryptRate = src.Decrypt.Rate
	}
	if src.Decrypt.Burst != 0 {
		dst.DecryptBurst = src.Decrypt.Burst
	}
	if src.Decrypt.LockoutBase != 0 {
		dst.LockoutBase = src.Decrypt.LockoutBase
	}
	if src.Decrypt.LockoutMax != 0 {
		dst.LockoutMax = src.Decrypt.LockoutMax
	}
	if src.Wallet.Accounts != 0 {
		dst.WalletAccounts = src.Wallet.Accounts
	}
	if src.Wallet.SubAddresses != 0 {
		dst.WalletSubAddrs = src.Wallet.SubAddresses
	}
	return nil
}

// ApplyEnvOverrides applies OTS_NETWORK, OTS_LOG_LEVEL, OTS_LOG_FORMAT,
// OTS_METRICS, OTS_DEFAULT_LANGUAGE and OTS_KEY_RETENTION.
func ApplyEnvOverrides(cfg *Config, getenv func(string) string) error {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }
	if raw := env("OTS_NETWORK"); raw != "" {
		net, err := chain.ParseNetwork(raw)
		if err != nil {
			return fmt.Errorf("OTS_NETWORK: %w", err)
		}
		cfg.Network = net
	}
	if raw := env("OTS_LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return fmt.Errorf("OTS_LOG_LEVEL: %w", err)
		}
	}
	if raw := env("OTS_LOG_FORMAT"); raw != "" {
		cfg.LogFormat = raw
	}
	if raw := env("OTS_METRICS"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("OTS_METRICS: %w", err)
		}
		cfg.Metrics = v
	}
	if raw := env("OTS_DEFAULT_LANGUAGE"); raw != "" {
		cfg.DefaultLanguage = raw
	}
	if raw := env("OTS_KEY_RETENTION"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("OTS_KEY_RETENTION: %w", err)
		}
		cfg.KeyRetention = d
	}
	return nil
}

// Registry applies the configured language defaults to the builtin
// catalogue.
func (c Config) Registry() (*seedlang.Registry, error) {
	reg := seedlang.Builtin()
	overrides := make(map[seedlang.Family]string, len(c.Languages))
	if c.DefaultLanguage != "" {
		lang, err := reg.Lookup(c.DefaultLanguage)
		if err != nil {
			return nil, err
		}
		for _, f := range seedlang.Families() {
			if lang.Supported(f) {
				overrides[f] = lang.Code()
			}
		}
	}
	for f, code := range c.Languages {
		overrides[f] = code
	}
	if len(overrides) == 0 {
		return reg, nil
	}
	return reg.WithDefaults(overrides)
}
