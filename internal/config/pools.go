package config

import (
	"errors"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// PoolsConfig lists the CLMM pools the quote service mirrors. The program that
// owns them is read from the pool accounts themselves at startup.
type PoolsConfig struct {
	PoolKeys []solana.PublicKey
}

func (pc *PoolsConfig) Load() error {
	raw := os.Getenv("POOL_KEYS")
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, err := solana.PublicKeyFromBase58(part)
		if err != nil {
			return errors.New("invalid pool key in POOL_KEYS: " + part)
		}
		pc.PoolKeys = append(pc.PoolKeys, key)
	}
	return pc.Validate()
}

func (pc *PoolsConfig) Validate() error {
	if len(pc.PoolKeys) == 0 {
		return errors.New("invalid pools config: POOL_KEYS is required")
	}
	return nil
}
