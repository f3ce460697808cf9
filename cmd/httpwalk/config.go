package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/httpwalk/httpwalk/pkg/backoff"
	"github.com/httpwalk/httpwalk/pkg/client"
	"github.com/httpwalk/httpwalk/pkg/paginate"
)

// Duration decodes YAML scalars in time.ParseDuration form ("30s",
// "1m") as well as plain integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var ns int64
	if err := value.Decode(&ns); err == nil {
		*d = Duration(ns)
		return nil
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// FileConfig is the YAML configuration of the httpwalk binary.
type FileConfig struct {
	UserAgent string             `yaml:"user_agent"`
	Timeout   Duration           `yaml:"timeout"`
	Retry     RetryFileConfig    `yaml:"retry"`
	Redirect  RedirectFileConfig `yaml:"redirect"`
	Paginate  PaginateFileConfig `yaml:"paginate"`
	Logging   LoggingFileConfig  `yaml:"logging"`
}

type DelayFileConfig struct {
	Min Duration `yaml:"min"`
	Max Duration `yaml:"max"`
}

func (d DelayFileConfig) toRange() backoff.Range {
	return backoff.Range{Min: d.Min.Std(), Max: d.Max.Std()}
}

type RetryFileConfig struct {
	MaxAttempts int             `yaml:"max_attempts"`
	Delay       DelayFileConfig `yaml:"delay"`
}

type RedirectFileConfig struct {
	MaxRedirects int             `yaml:"max_redirects"`
	Delay        DelayFileConfig `yaml:"delay"`
}

type PaginateFileConfig struct {
	MaxPages int             `yaml:"max_pages"`
	Delay    DelayFileConfig `yaml:"delay"`
	Strict   bool            `yaml:"strict_link_header"`
}

type LoggingFileConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultFileConfig mirrors the library defaults.
func DefaultFileConfig() FileConfig {
	base := client.DefaultConfig(defaultUserAgent())
	return FileConfig{
		UserAgent: base.UserAgent,
		Timeout:   Duration(base.Timeout),
		Retry: RetryFileConfig{
			MaxAttempts: base.Retry.MaxAttempts,
			Delay:       DelayFileConfig{Min: Duration(base.Retry.Delay.Min), Max: Duration(base.Retry.Delay.Max)},
		},
		Redirect: RedirectFileConfig{
			MaxRedirects: base.Redirect.MaxRedirects,
			Delay:        DelayFileConfig{Min: Duration(base.Redirect.Delay.Min), Max: Duration(base.Redirect.Delay.Max)},
		},
		Paginate: PaginateFileConfig{MaxPages: paginate.Unlimited},
		Logging:  LoggingFileConfig{Level: "info"},
	}
}

func defaultUserAgent() string {
	if ua := os.Getenv("HTTPWALK_USER_AGENT"); ua != "" {
		return ua
	}
	return "httpwalk/0.1.0"
}

// LoadFileConfig reads the YAML file at path over the defaults. An
// empty path returns the defaults unchanged.
func LoadFileConfig(path string) (FileConfig, error) {
	cfg := DefaultFileConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c FileConfig) clientConfig() client.Config {
	return client.Config{
		UserAgent: c.UserAgent,
		Timeout:   c.Timeout.Std(),
		Retry: client.RetryConfig{
			MaxAttempts: c.Retry.MaxAttempts,
			Delay:       c.Retry.Delay.toRange(),
		},
		Redirect: client.RedirectConfig{
			MaxRedirects: c.Redirect.MaxRedirects,
			Delay:        c.Redirect.Delay.toRange(),
		},
	}
}

func (c FileConfig) paginateConfig() paginate.Config {
	return paginate.Config{
		MaxPages:         c.Paginate.MaxPages,
		Delay:            c.Paginate.Delay.toRange(),
		StrictLinkHeader: c.Paginate.Strict,
	}
}

func newClient() (*client.Client, error) {
	return client.New(cfg.clientConfig())
}
