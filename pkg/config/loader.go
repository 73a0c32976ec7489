package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Option customises how environment variables are read.
type Option func(*env.Options)

// WithPrefix makes every `env` tag resolve against PREFIX + name, so several
// storefront instances can share one environment.
func WithPrefix(prefix string) Option {
	return func(o *env.Options) {
		o.Prefix = prefix
	}
}

// WithEnvironment replaces the process environment with the given map.
func WithEnvironment(vars map[string]string) Option {
	return func(o *env.Options) {
		o.Environment = vars
	}
}

// Load parses environment variables into the struct pointed to by cfg using
// its `env` and `envDefault` tags.
func Load(cfg any, opts ...Option) error {
	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}
	if err := env.ParseWithOptions(cfg, o); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
