// Package scheduler owns account fetching and the periodic refresh loop that
// feeds adapters. Adapters never talk to RPC themselves; they declare
// addresses and receive snapshots.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/swapio-fi/clmm-adapter/internal/amm"
)

// Fetcher loads a set of accounts into one snapshot map. Implementations must
// put an entry with nil Data for addresses that do not exist on chain, so
// that absence of an entry always means "not fetched".
type Fetcher interface {
	FetchAccounts(ctx context.Context, keys []solana.PublicKey) (amm.AccountMap, error)
}

const (
	fetchBatchSize  = 100
	fetchRetries    = 3
	fetchRetryDelay = 100 * time.Millisecond
)

// RPCFetcher fetches snapshots over getMultipleAccounts, batched and retried.
type RPCFetcher struct {
	client *rpc.Client
}

func NewRPCFetcher(client *rpc.Client) *RPCFetcher {
	return &RPCFetcher{client: client}
}

func (f *RPCFetcher) FetchAccounts(ctx context.Context, keys []solana.PublicKey) (amm.AccountMap, error) {
	snapshot := make(amm.AccountMap, len(keys))

	for start := 0; start < len(keys); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		var result *rpc.GetMultipleAccountsResult
		var err error
		for retry := 0; retry < fetchRetries; retry++ {
			result, err = f.client.GetMultipleAccounts(ctx, batch...)
			if err == nil && result != nil {
				break
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(retry+1) * fetchRetryDelay):
			}
		}
		if err != nil {
			return nil, fmt.Errorf("getMultipleAccounts batch of %d: %w", len(batch), err)
		}
		if result == nil || len(result.Value) != len(batch) {
			return nil, fmt.Errorf("getMultipleAccounts returned %d results for %d addresses", resultLen(result), len(batch))
		}

		for i, info := range result.Value {
			if info == nil {
				// Address does not exist; record that explicitly.
				snapshot[batch[i]] = &amm.Account{}
				continue
			}
			snapshot[batch[i]] = &amm.Account{
				Owner:    info.Owner,
				Data:     info.Data.GetBinary(),
				Lamports: info.Lamports,
			}
		}
	}
	return snapshot, nil
}

func resultLen(result *rpc.GetMultipleAccountsResult) int {
	if result == nil {
		return 0
	}
	return len(result.Value)
}
