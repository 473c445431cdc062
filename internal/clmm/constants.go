// Package clmm is the pool-level SDK for the swap-io concentrated liquidity
// program: account layouts, PDA derivation, the synchronized pool mirror, the
// quote calculator and the swap instruction builder. Adapter-facing policy
// (which accounts to refresh, when to fail) lives in internal/adapter; this
// package only knows how to decode, derive and compute.
package clmm

import "github.com/holiman/uint256"

const (
	// TickArraySize is the number of consecutive ticks stored in one
	// tick-array account.
	TickArraySize = 60

	// NeighborhoodSize is the number of tick arrays tracked on each side of
	// the current price. It is shared with the instruction builder: a swap
	// instruction references the full up+down neighborhood.
	NeighborhoodSize = 5

	// MinTick and MaxTick bound the tick domain of the program.
	MinTick int32 = -443636
	MaxTick int32 = 443636

	// FeeRateDenominator converts an AmmConfig trade fee rate (parts per
	// million) into a fraction.
	FeeRateDenominator uint64 = 1_000_000

	// BaseSwapAccounts is the number of account metas in a swap instruction
	// before the bitmap extension and the tick-array neighborhood: payer,
	// amm config, pool, two user token accounts, two vaults, observation
	// state, three programs and two mints.
	BaseSwapAccounts = 13

	tickArraySeed       = "tick_array"
	bitmapExtensionSeed = "pool_tick_array_bitmap_extension"
)

var (
	// MinSqrtPriceX64 and MaxSqrtPriceX64 are the Q64.64 sqrt prices at the
	// tick domain bounds.
	MinSqrtPriceX64 = uint256.NewInt(4295048016)
	MaxSqrtPriceX64 = uint256.MustFromDecimal("79226673521066979257578248091")

	// swapV2Discriminator is the Anchor instruction discriminator for the
	// program's swap_v2 entrypoint.
	swapV2Discriminator = [8]byte{43, 4, 237, 11, 26, 201, 30, 98}
)
