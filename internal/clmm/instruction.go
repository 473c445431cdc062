package clmm

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/swapio-fi/clmm-adapter/internal/common"
)

type swapV2Args struct {
	Amount               uint64
	OtherAmountThreshold uint64
	SqrtPriceLimitX64    bin.Uint128
	IsBaseInput          bool
}

// BuildSwapInstruction assembles the program's swap_v2 instruction for the
// pool mirrored by pm. sourceMint selects the direction; the account list is
// the fixed base set followed by the bitmap extension and the full tick-array
// neighborhood, so the transaction stays valid wherever the price lands
// within the tracked range. A zero sqrtPriceLimitX64 and threshold are
// encoded, leaving slippage bounds to the caller's outer transaction checks.
func BuildSwapInstruction(
	pm *PoolManager,
	sourceMint, destinationMint solana.PublicKey,
	sourceTokenAccount, destinationTokenAccount solana.PublicKey,
	authority solana.PublicKey,
	amount uint64,
	isBaseInput bool,
) (solana.Instruction, error) {
	state := pm.PoolState

	var inputVault, outputVault solana.PublicKey
	switch {
	case sourceMint.Equals(state.TokenMint0) && destinationMint.Equals(state.TokenMint1):
		inputVault, outputVault = state.TokenVault0, state.TokenVault1
	case sourceMint.Equals(state.TokenMint1) && destinationMint.Equals(state.TokenMint0):
		inputVault, outputVault = state.TokenVault1, state.TokenVault0
	default:
		return nil, fmt.Errorf("mint pair %s/%s is not traded by pool %s", sourceMint, destinationMint, pm.poolKey)
	}

	metas := make(solana.AccountMetaSlice, 0, BaseSwapAccounts+1+len(pm.UpTickArrayKeys)+len(pm.DownTickArrayKeys))
	metas = append(metas,
		solana.Meta(authority).SIGNER(),
		solana.Meta(state.AmmConfig),
		solana.Meta(pm.poolKey).WRITE(),
		solana.Meta(sourceTokenAccount).WRITE(),
		solana.Meta(destinationTokenAccount).WRITE(),
		solana.Meta(inputVault).WRITE(),
		solana.Meta(outputVault).WRITE(),
		solana.Meta(state.ObservationKey).WRITE(),
		solana.Meta(common.TokenProgramID),
		solana.Meta(common.Token2022ID),
		solana.Meta(common.MemoProgramID),
		solana.Meta(sourceMint),
		solana.Meta(destinationMint),
		solana.Meta(pm.bitmapExtensionKey).WRITE(),
	)
	for _, key := range pm.UpTickArrayKeys {
		metas = append(metas, solana.Meta(key).WRITE())
	}
	for _, key := range pm.DownTickArrayKeys {
		metas = append(metas, solana.Meta(key).WRITE())
	}

	var buf bytes.Buffer
	buf.Write(swapV2Discriminator[:])
	if err := bin.NewBorshEncoder(&buf).Encode(swapV2Args{
		Amount:      amount,
		IsBaseInput: isBaseInput,
	}); err != nil {
		return nil, fmt.Errorf("encode swap args: %w", err)
	}

	return solana.NewInstruction(pm.programID, metas, buf.Bytes()), nil
}
