// Package adapter exposes one swap-io concentrated liquidity pool through the
// amm.Amm plugin contract: construction from the raw pool account, dependency
// enumeration, atomic refresh from fetched snapshots, quoting and swap
// instruction assembly against the local mirror.
package adapter

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/swapio-fi/clmm-adapter/internal/amm"
	"github.com/swapio-fi/clmm-adapter/internal/clmm"
)

// Label identifies this venue to the routing engine.
const Label = "SWAP_IO_CLMM"

// swapTag is the dispatch tag carried in SwapAndAccountMetas.
const swapTag = "SwapIoClmm"

// ClmmAdapter wraps a synchronized pool mirror behind the amm.Amm contract.
// The pool's identity (key, program, mints, vaults, price state) is fixed at
// construction; Update refreshes the fee config, mints, bitmap extension and
// tick-array neighborhood.
type ClmmAdapter struct {
	pm *clmm.PoolManager
}

var _ amm.Amm = (*ClmmAdapter)(nil)

// NewFromKeyedAccount builds an adapter from the raw pool account as fetched
// by the engine. The owner of the account is taken as the pool program. The
// epoch is recorded for engines that key refresh generations on it.
func NewFromKeyedAccount(ka *amm.KeyedAccount, epoch uint64) (*ClmmAdapter, error) {
	if len(ka.Account.Data) < clmm.AnchorDiscriminatorLen {
		return nil, fmt.Errorf("pool account %s: %w", ka.Key, amm.ErrMalformedAccount)
	}
	pm, err := clmm.NewPoolManager(epoch, ka.Key, ka.Account.Owner, ka.Account.Data)
	if err != nil {
		var df *clmm.DecodeFailure
		if errors.As(err, &df) {
			return nil, &amm.DecodeError{Kind: df.Kind, Address: ka.Key, Err: df.Err}
		}
		return nil, err
	}
	return &ClmmAdapter{pm: pm}, nil
}

func (a *ClmmAdapter) Label() string {
	return Label
}

func (a *ClmmAdapter) ProgramID() solana.PublicKey {
	return a.pm.ProgramID()
}

func (a *ClmmAdapter) Key() solana.PublicKey {
	return a.pm.PoolKey()
}

func (a *ClmmAdapter) GetReserveMints() []solana.PublicKey {
	return a.pm.ReserveMints()
}

// GetAccountsToUpdate enumerates the refresh dependency set: fee config, both
// mints, the bitmap extension, then the up and down tick-array neighborhoods.
// The pool account itself is not refreshed; its state is fixed at
// construction. Order is stable between calls as long as Update has not
// changed the neighborhood.
func (a *ClmmAdapter) GetAccountsToUpdate() []solana.PublicKey {
	keys := make([]solana.PublicKey, 0, 4+len(a.pm.UpTickArrayKeys)+len(a.pm.DownTickArrayKeys))
	keys = append(keys,
		a.pm.PoolState.AmmConfig,
		a.pm.PoolState.TokenMint0,
		a.pm.PoolState.TokenMint1,
		a.pm.TickArrayBitmapExtensionKey(),
	)
	keys = append(keys, a.pm.UpTickArrayKeys...)
	keys = append(keys, a.pm.DownTickArrayKeys...)
	return keys
}

// Update applies one fetched snapshot to the mirror. Every declared address
// must be present in the map; tick arrays and the bitmap extension may be
// present with nil data, meaning the account does not exist on chain. Any
// missing address or undecodable buffer aborts the whole update and leaves
// the mirror exactly as it was.
func (a *ClmmAdapter) Update(accounts amm.AccountMap) error {
	lookup := func(key solana.PublicKey) ([]byte, error) {
		acc, ok := accounts[key]
		if !ok {
			return nil, &amm.MissingAccountError{Address: key}
		}
		return acc.Data, nil
	}

	configData, err := lookup(a.pm.PoolState.AmmConfig)
	if err != nil {
		return err
	}
	mint0Data, err := lookup(a.pm.PoolState.TokenMint0)
	if err != nil {
		return err
	}
	mint1Data, err := lookup(a.pm.PoolState.TokenMint1)
	if err != nil {
		return err
	}
	bitmapData, err := lookup(a.pm.TickArrayBitmapExtensionKey())
	if err != nil {
		return err
	}

	upKeys := a.pm.UpTickArrayKeys
	downKeys := a.pm.DownTickArrayKeys
	upData := make([][]byte, len(upKeys))
	for i, key := range upKeys {
		if upData[i], err = lookup(key); err != nil {
			return err
		}
	}
	downData := make([][]byte, len(downKeys))
	for i, key := range downKeys {
		if downData[i], err = lookup(key); err != nil {
			return err
		}
	}

	if err := a.pm.Update(configData, mint0Data, mint1Data, bitmapData, upData, downData); err != nil {
		var df *clmm.DecodeFailure
		if errors.As(err, &df) {
			return &amm.DecodeError{Kind: df.Kind, Address: a.decodeFailureAddress(df, upKeys, downKeys), Err: df.Err}
		}
		return err
	}
	return nil
}

// decodeFailureAddress maps a staged decode failure back to the address the
// bad buffer was fetched from.
func (a *ClmmAdapter) decodeFailureAddress(df *clmm.DecodeFailure, upKeys, downKeys []solana.PublicKey) solana.PublicKey {
	switch df.Kind {
	case clmm.KindAmmConfig:
		return a.pm.PoolState.AmmConfig
	case clmm.KindMint0:
		return a.pm.PoolState.TokenMint0
	case clmm.KindMint1:
		return a.pm.PoolState.TokenMint1
	case clmm.KindBitmapExtension:
		return a.pm.TickArrayBitmapExtensionKey()
	case clmm.KindTickArray:
		if df.Index >= 0 && df.Index < len(upKeys) {
			return upKeys[df.Index]
		}
		if i := df.Index - len(upKeys); i >= 0 && i < len(downKeys) {
			return downKeys[i]
		}
	}
	return solana.PublicKey{}
}

// direction resolves a mint pair against the pool's reserves. It returns
// whether the swap trades token 0 for token 1.
func (a *ClmmAdapter) direction(inputMint, outputMint solana.PublicKey) (bool, error) {
	mint0 := a.pm.PoolState.TokenMint0
	mint1 := a.pm.PoolState.TokenMint1
	switch {
	case inputMint.Equals(mint0) && outputMint.Equals(mint1):
		return true, nil
	case inputMint.Equals(mint1) && outputMint.Equals(mint0):
		return false, nil
	default:
		return false, fmt.Errorf("%s -> %s: %w", inputMint, outputMint, amm.ErrUnknownMint)
	}
}

// Quote simulates a swap against the last synchronized state.
func (a *ClmmAdapter) Quote(params *amm.QuoteParams) (*amm.Quote, error) {
	zeroForOne, err := a.direction(params.InputMint, params.OutputMint)
	if err != nil {
		return nil, err
	}
	result, err := clmm.CalculateQuote(a.pm, zeroForOne, params.SwapMode == amm.SwapModeExactIn, params.Amount)
	if err != nil {
		return nil, err
	}
	return &amm.Quote{
		InAmount:  result.InAmount,
		OutAmount: result.OutAmount,
		FeeAmount: result.FeeAmount,
		FeeMint:   params.InputMint,
		FeePct:    float64(result.FeeRate) / 10_000,
	}, nil
}

// GetSwapAndAccountMetas assembles the swap instruction for the engine's
// transaction builder. Amount is treated as exact input.
func (a *ClmmAdapter) GetSwapAndAccountMetas(params *amm.SwapParams) (*amm.SwapAndAccountMetas, error) {
	if _, err := a.direction(params.SourceMint, params.DestinationMint); err != nil {
		return nil, err
	}
	ix, err := clmm.BuildSwapInstruction(
		a.pm,
		params.SourceMint, params.DestinationMint,
		params.SourceTokenAccount, params.DestinationTokenAccount,
		params.TokenTransferAuthority,
		params.InAmount,
		true,
	)
	if err != nil {
		return nil, err
	}
	return &amm.SwapAndAccountMetas{
		Swap:         swapTag,
		Instruction:  ix,
		AccountMetas: ix.Accounts(),
	}, nil
}

// CloneAmm returns an independent adapter over a deep copy of the mirror.
func (a *ClmmAdapter) CloneAmm() amm.Amm {
	return &ClmmAdapter{pm: a.pm.Clone()}
}

func (a *ClmmAdapter) HasDynamicAccounts() bool { return false }

func (a *ClmmAdapter) RequiresUpdateForReserveMints() bool { return false }

func (a *ClmmAdapter) SupportsExactOut() bool { return true }

func (a *ClmmAdapter) Unidirectional() bool { return false }

// IsActive reports whether the pool accepts swaps. Status bit flags disable
// pool operations; zero means fully enabled.
func (a *ClmmAdapter) IsActive() bool {
	return a.pm.PoolState.Status == 0
}

// GetAccountsLen is the fixed account-meta count of a built swap instruction:
// the base set, the bitmap extension and both neighborhood sides.
func (a *ClmmAdapter) GetAccountsLen() int {
	return clmm.BaseSwapAccounts + 1 + 2*clmm.NeighborhoodSize
}

func (a *ClmmAdapter) GetUserSetup() *amm.UserSetup { return nil }

func (a *ClmmAdapter) ProgramDependencies() []amm.ProgramDependency { return nil }

func (a *ClmmAdapter) UnderlyingLiquidities() []solana.PublicKey { return nil }
