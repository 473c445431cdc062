package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/swapio-fi/clmm-adapter/internal/amm"
	"github.com/swapio-fi/clmm-adapter/internal/metrics"
)

// ErrPoolNotFound is returned for queries against an unregistered pool.
var ErrPoolNotFound = errors.New("pool not registered")

// Registry holds the adapters under refresh, keyed by pool address. Its lock
// covers adapter state as well as the map: updates run under the write lock,
// queries under the read lock, so a query never observes a half-applied
// refresh cycle.
type Registry struct {
	mu   sync.RWMutex
	amms map[solana.PublicKey]amm.Amm
}

func NewRegistry() *Registry {
	return &Registry{amms: make(map[solana.PublicKey]amm.Amm)}
}

func (r *Registry) Add(a amm.Amm) {
	r.mu.Lock()
	r.amms[a.Key()] = a
	size := len(r.amms)
	r.mu.Unlock()
	metrics.TrackedPools.Set(float64(size))
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.amms)
}

// Keys returns the registered pool addresses.
func (r *Registry) Keys() []solana.PublicKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]solana.PublicKey, 0, len(r.amms))
	for key := range r.amms {
		out = append(out, key)
	}
	return out
}

// AccountsToUpdate returns the deduplicated union of every adapter's
// dependency set, preserving first-seen order.
func (r *Registry) AccountsToUpdate() []solana.PublicKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[solana.PublicKey]struct{})
	var keys []solana.PublicKey
	for _, a := range r.amms {
		for _, key := range a.GetAccountsToUpdate() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

// ApplyUpdate feeds one fetched snapshot to every adapter under the write
// lock. A failing adapter is skipped and keeps its previous state; failures
// are reported per pool.
func (r *Registry) ApplyUpdate(snapshot amm.AccountMap) map[solana.PublicKey]error {
	r.mu.Lock()
	defer r.mu.Unlock()

	failures := make(map[solana.PublicKey]error)
	for key, a := range r.amms {
		if err := a.Update(snapshot); err != nil {
			failures[key] = err
		}
	}
	return failures
}

// Quote runs a quote against the named pool under the read lock.
func (r *Registry) Quote(key solana.PublicKey, params *amm.QuoteParams) (*amm.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.amms[key]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return a.Quote(params)
}

// SwapAccounts builds the swap instruction for the named pool under the read
// lock.
func (r *Registry) SwapAccounts(key solana.PublicKey, params *amm.SwapParams) (*amm.SwapAndAccountMetas, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.amms[key]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return a.GetSwapAndAccountMetas(params)
}

// Refresher drives the registry through periodic fetch-and-update cycles.
type Refresher struct {
	registry *Registry
	fetcher  Fetcher
	interval time.Duration
}

func NewRefresher(registry *Registry, fetcher Fetcher, interval time.Duration) *Refresher {
	return &Refresher{registry: registry, fetcher: fetcher, interval: interval}
}

// RefreshOnce runs a single cycle: one batched fetch of the union dependency
// set, then one locked application pass.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	started := time.Now()
	keys := r.registry.AccountsToUpdate()
	if len(keys) == 0 {
		return nil
	}

	snapshot, err := r.fetcher.FetchAccounts(ctx, keys)
	if err != nil {
		metrics.UpdateFailures.WithLabelValues("fetch").Inc()
		return err
	}

	for pool, updateErr := range r.registry.ApplyUpdate(snapshot) {
		metrics.UpdateFailures.WithLabelValues("update").Inc()
		log.Warn().
			Err(updateErr).
			Str("pool", pool.String()).
			Msg("pool update skipped, keeping previous state")
	}

	metrics.UpdateCycles.Inc()
	metrics.UpdateDuration.Observe(time.Since(started).Seconds())
	return nil
}

// Run refreshes on the configured interval until ctx is cancelled. The first
// cycle runs immediately.
func (r *Refresher) Run(ctx context.Context) {
	if err := r.RefreshOnce(ctx); err != nil {
		log.Error().Err(err).Msg("initial pool refresh failed")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("refresher stopped")
			return
		case <-ticker.C:
			if err := r.RefreshOnce(ctx); err != nil {
				log.Error().Err(err).Msg("pool refresh failed")
			}
		}
	}
}
