package clmm

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	// AnchorDiscriminatorLen is the length of the account format
	// discriminator every program-owned account starts with.
	AnchorDiscriminatorLen = 8

	splMintLen = 82
)

// PoolState mirrors the on-chain pool account. Addresses referenced here
// (amm config, mints, vaults, observation) are fixed for the pool's lifetime;
// the price and liquidity fields are the state the pool was constructed from
// and are not refreshed afterwards — per-cycle refresh covers the config,
// mints, bitmap extension and tick arrays.
type PoolState struct {
	Bump           uint8
	AmmConfig      solana.PublicKey
	Owner          solana.PublicKey
	TokenMint0     solana.PublicKey
	TokenMint1     solana.PublicKey
	TokenVault0    solana.PublicKey
	TokenVault1    solana.PublicKey
	ObservationKey solana.PublicKey
	MintDecimals0  uint8
	MintDecimals1  uint8
	TickSpacing    uint16
	Liquidity      bin.Uint128
	SqrtPriceX64   bin.Uint128
	TickCurrent    int32
	Padding3       uint16
	Padding4       uint16

	FeeGrowthGlobal0X64 bin.Uint128
	FeeGrowthGlobal1X64 bin.Uint128
	ProtocolFeesToken0  uint64
	ProtocolFeesToken1  uint64

	SwapInAmountToken0  bin.Uint128
	SwapOutAmountToken1 bin.Uint128
	SwapInAmountToken1  bin.Uint128
	SwapOutAmountToken0 bin.Uint128

	Status  uint8
	Padding [7]uint8

	RewardInfos [3]RewardInfo

	// TickArrayBitmap flags initialized tick arrays in the inline range;
	// arrays beyond it live in the bitmap extension account.
	TickArrayBitmap [16]uint64

	TotalFeesToken0        uint64
	TotalFeesClaimedToken0 uint64
	TotalFeesToken1        uint64
	TotalFeesClaimedToken1 uint64
	FundFeesToken0         uint64
	FundFeesToken1         uint64
	OpenTime               uint64
	RecentEpoch            uint64
	Padding1               [24]uint64
}

type RewardInfo struct {
	RewardState           uint8
	OpenTime              uint64
	EndTime               uint64
	LastUpdateTime        uint64
	EmissionsPerSecondX64 bin.Uint128
	RewardTotalEmissioned uint64
	RewardClaimed         uint64
	TokenMint             solana.PublicKey
	TokenVault            solana.PublicKey
	Authority             solana.PublicKey
	RewardGrowthGlobalX64 bin.Uint128
}

// AmmConfig mirrors the fee/config account shared by pools of one fee tier.
type AmmConfig struct {
	Bump            uint8
	Index           uint16
	Owner           solana.PublicKey
	ProtocolFeeRate uint32
	// TradeFeeRate is the swap fee in parts per million of the input amount.
	TradeFeeRate uint32
	TickSpacing  uint16
	FundFeeRate  uint32
	PaddingU32   uint32
	FundOwner    solana.PublicKey
	Padding      [3]uint64
}

// MintState mirrors an SPL token mint account (raw token-program layout,
// no Anchor discriminator).
type MintState struct {
	MintAuthorityOption   uint32
	MintAuthority         solana.PublicKey
	Supply                uint64
	Decimals              uint8
	IsInitialized         bool
	FreezeAuthorityOption uint32
	FreezeAuthority       solana.PublicKey
}

// TickState is one tick inside a tick array. A tick with zero LiquidityGross
// is uninitialized and never crossed.
type TickState struct {
	Tick                    int32
	LiquidityNet            bin.Int128
	LiquidityGross          bin.Uint128
	FeeGrowthOutside0X64    bin.Uint128
	FeeGrowthOutside1X64    bin.Uint128
	RewardGrowthsOutsideX64 [3]bin.Uint128
	Padding                 [13]uint32
}

// TickArrayState is a fixed-size batch of TickArraySize consecutive ticks
// stored as one account, anchored at StartTickIndex.
type TickArrayState struct {
	PoolID               solana.PublicKey
	StartTickIndex       int32
	Ticks                [TickArraySize]TickState
	InitializedTickCount uint8
	RecentEpoch          uint64
	Padding              [107]uint8
}

// TickArrayBitmapExtension indicates which tick arrays exist beyond the
// pool's inline bitmap capacity.
type TickArrayBitmapExtension struct {
	PoolID                  solana.PublicKey
	PositiveTickArrayBitmap [14][8]uint64
	NegativeTickArrayBitmap [14][8]uint64
}

// DecodePoolState parses a raw pool account. The caller has already verified
// the buffer carries at least the discriminator header.
func DecodePoolState(data []byte) (*PoolState, error) {
	if len(data) < AnchorDiscriminatorLen {
		return nil, fmt.Errorf("pool account of %d bytes is shorter than the discriminator header", len(data))
	}
	var state PoolState
	if err := bin.NewBinDecoder(data[AnchorDiscriminatorLen:]).Decode(&state); err != nil {
		return nil, fmt.Errorf("pool state: %w", err)
	}
	return &state, nil
}

func DecodeAmmConfig(data []byte) (*AmmConfig, error) {
	if len(data) < AnchorDiscriminatorLen {
		return nil, fmt.Errorf("amm config account of %d bytes is shorter than the discriminator header", len(data))
	}
	var cfg AmmConfig
	if err := bin.NewBinDecoder(data[AnchorDiscriminatorLen:]).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("amm config: %w", err)
	}
	return &cfg, nil
}

func DecodeMint(data []byte) (*MintState, error) {
	if len(data) < splMintLen {
		return nil, fmt.Errorf("mint account of %d bytes is shorter than the SPL mint span %d", len(data), splMintLen)
	}
	var mint MintState
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	return &mint, nil
}

func DecodeTickArray(data []byte) (*TickArrayState, error) {
	if len(data) < AnchorDiscriminatorLen {
		return nil, fmt.Errorf("tick array account of %d bytes is shorter than the discriminator header", len(data))
	}
	var arr TickArrayState
	if err := bin.NewBinDecoder(data[AnchorDiscriminatorLen:]).Decode(&arr); err != nil {
		return nil, fmt.Errorf("tick array: %w", err)
	}
	return &arr, nil
}

func DecodeBitmapExtension(data []byte) (*TickArrayBitmapExtension, error) {
	if len(data) < AnchorDiscriminatorLen {
		return nil, fmt.Errorf("bitmap extension account of %d bytes is shorter than the discriminator header", len(data))
	}
	var ext TickArrayBitmapExtension
	if err := bin.NewBinDecoder(data[AnchorDiscriminatorLen:]).Decode(&ext); err != nil {
		return nil, fmt.Errorf("bitmap extension: %w", err)
	}
	return &ext, nil
}
