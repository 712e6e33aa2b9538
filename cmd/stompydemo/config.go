package main

import (
	"context"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/maleck13/stompy/stompspec"
)

// config is the configuration surface for this demo binary. The core
// session/failover/parser packages take plain Go values; only this
// transport binding reads the environment.
type config struct {
	URI         string        `env:"STOMPY_URI,default=tcp://localhost:61613"`
	Login       string        `env:"STOMPY_LOGIN"`
	Passcode    string        `env:"STOMPY_PASSCODE"`
	Host        string        `env:"STOMPY_HOST"`
	Destination string        `env:"STOMPY_DESTINATION,default=/queue/stompy-demo"`
	Versions    string        `env:"STOMPY_VERSIONS,default=1.0,1.1"`
	DialTimeout time.Duration `env:"STOMPY_DIAL_TIMEOUT,default=5s"`
}

func loadConfig(ctx context.Context) (*config, error) {
	cfg := &config{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *config) versions() []stompspec.Version {
	parts := strings.Split(c.Versions, ",")
	out := make([]stompspec.Version, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if v, ok := stompspec.ParseVersion(p); ok {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		out = append(out, stompspec.DefaultVersion)
	}
	return out
}
