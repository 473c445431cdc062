package clmm

import (
	"testing"

	bin "github.com/gagliardetto/binary"
)

func TestDecodePoolState(t *testing.T) {
	want := testPoolState()
	got, err := DecodePoolState(encodeAccount(t, want, true))
	if err != nil {
		t.Fatalf("DecodePoolState: %v", err)
	}

	if !got.AmmConfig.Equals(want.AmmConfig) {
		t.Errorf("AmmConfig = %s, want %s", got.AmmConfig, want.AmmConfig)
	}
	if !got.TokenMint0.Equals(want.TokenMint0) || !got.TokenMint1.Equals(want.TokenMint1) {
		t.Errorf("mints = %s/%s, want %s/%s", got.TokenMint0, got.TokenMint1, want.TokenMint0, want.TokenMint1)
	}
	if !got.TokenVault0.Equals(want.TokenVault0) || !got.TokenVault1.Equals(want.TokenVault1) {
		t.Error("vaults do not round-trip")
	}
	if got.TickSpacing != want.TickSpacing {
		t.Errorf("TickSpacing = %d, want %d", got.TickSpacing, want.TickSpacing)
	}
	if got.TickCurrent != want.TickCurrent {
		t.Errorf("TickCurrent = %d, want %d", got.TickCurrent, want.TickCurrent)
	}
	if got.Liquidity.Lo != want.Liquidity.Lo || got.Liquidity.Hi != want.Liquidity.Hi {
		t.Errorf("Liquidity = %v, want %v", got.Liquidity, want.Liquidity)
	}
	if got.SqrtPriceX64.Lo != want.SqrtPriceX64.Lo || got.SqrtPriceX64.Hi != want.SqrtPriceX64.Hi {
		t.Errorf("SqrtPriceX64 = %v, want %v", got.SqrtPriceX64, want.SqrtPriceX64)
	}
}

func TestDecodePoolStateShortBuffer(t *testing.T) {
	for _, size := range []int{0, 1, 7} {
		if _, err := DecodePoolState(make([]byte, size)); err == nil {
			t.Errorf("DecodePoolState accepted a %d-byte buffer", size)
		}
	}
	// Header present but body truncated.
	if _, err := DecodePoolState(make([]byte, 100)); err == nil {
		t.Error("DecodePoolState accepted a truncated body")
	}
}

func TestDecodeAmmConfig(t *testing.T) {
	want := testAmmConfig()
	got, err := DecodeAmmConfig(encodeAccount(t, want, true))
	if err != nil {
		t.Fatalf("DecodeAmmConfig: %v", err)
	}
	if got.TradeFeeRate != want.TradeFeeRate {
		t.Errorf("TradeFeeRate = %d, want %d", got.TradeFeeRate, want.TradeFeeRate)
	}
	if got.ProtocolFeeRate != want.ProtocolFeeRate {
		t.Errorf("ProtocolFeeRate = %d, want %d", got.ProtocolFeeRate, want.ProtocolFeeRate)
	}
	if got.TickSpacing != want.TickSpacing {
		t.Errorf("TickSpacing = %d, want %d", got.TickSpacing, want.TickSpacing)
	}

	if _, err := DecodeAmmConfig(nil); err == nil {
		t.Error("DecodeAmmConfig accepted an empty buffer")
	}
}

func TestDecodeMint(t *testing.T) {
	want := testMintState()
	got, err := DecodeMint(encodeAccount(t, want, false))
	if err != nil {
		t.Fatalf("DecodeMint: %v", err)
	}
	if got.Decimals != want.Decimals {
		t.Errorf("Decimals = %d, want %d", got.Decimals, want.Decimals)
	}
	if got.Supply != want.Supply {
		t.Errorf("Supply = %d, want %d", got.Supply, want.Supply)
	}
	if !got.IsInitialized {
		t.Error("IsInitialized lost in round-trip")
	}

	if _, err := DecodeMint(make([]byte, splMintLen-1)); err == nil {
		t.Error("DecodeMint accepted a buffer below the SPL mint span")
	}
}

func TestDecodeTickArray(t *testing.T) {
	want := tickArrayWith(t, -600, 10, map[int32]int64{-10: 5_000, -300: -7_000})
	got, err := DecodeTickArray(encodeAccount(t, want, true))
	if err != nil {
		t.Fatalf("DecodeTickArray: %v", err)
	}
	if got.StartTickIndex != -600 {
		t.Errorf("StartTickIndex = %d, want -600", got.StartTickIndex)
	}
	if got.InitializedTickCount != 2 {
		t.Errorf("InitializedTickCount = %d, want 2", got.InitializedTickCount)
	}

	j := (int32(-10) - got.StartTickIndex) / 10
	ts := got.Ticks[j]
	if ts.Tick != -10 || ts.LiquidityGross.Lo != 1 {
		t.Errorf("tick -10 slot holds tick %d gross %d", ts.Tick, ts.LiquidityGross.Lo)
	}
	if net := ts.LiquidityNet.BigInt().Int64(); net != 5_000 {
		t.Errorf("LiquidityNet = %d, want 5000", net)
	}

	j = (int32(-300) - got.StartTickIndex) / 10
	if net := got.Ticks[j].LiquidityNet.BigInt().Int64(); net != -7_000 {
		t.Errorf("negative LiquidityNet = %d, want -7000", net)
	}
}

func TestDecodeBitmapExtension(t *testing.T) {
	want := &TickArrayBitmapExtension{PoolID: testPoolKey}
	want.PositiveTickArrayBitmap[3][1] = 0xdeadbeef
	want.NegativeTickArrayBitmap[0][7] = 1

	got, err := DecodeBitmapExtension(encodeAccount(t, want, true))
	if err != nil {
		t.Fatalf("DecodeBitmapExtension: %v", err)
	}
	if !got.PoolID.Equals(testPoolKey) {
		t.Errorf("PoolID = %s, want %s", got.PoolID, testPoolKey)
	}
	if got.PositiveTickArrayBitmap[3][1] != 0xdeadbeef {
		t.Error("positive bitmap word lost in round-trip")
	}
	if got.NegativeTickArrayBitmap[0][7] != 1 {
		t.Error("negative bitmap word lost in round-trip")
	}
}

func TestUint128ToU256(t *testing.T) {
	v := uint128ToU256(bin.Uint128{Lo: 7, Hi: 3})
	want := "55340232221128654855" // 3<<64 | 7
	if v.Dec() != want {
		t.Fatalf("uint128ToU256 = %s, want %s", v.Dec(), want)
	}
}
