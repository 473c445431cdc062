package config

import (
	"errors"
	"os"
	"time"
)

type RPCConfig struct {
	RPCUrl          string
	RefreshInterval time.Duration
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = os.Getenv("RPC_URL")

	r.RefreshInterval = 2 * time.Second
	if raw := os.Getenv("REFRESH_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		r.RefreshInterval = d
	}
	return r.Validate()
}

func (r *RPCConfig) Validate() error {
	if r.RPCUrl == "" {
		return errors.New("invalid rpc config: RPC_URL is required")
	}
	if r.RefreshInterval <= 0 {
		return errors.New("invalid rpc config: refresh interval must be positive")
	}
	return nil
}
