package clmm

import (
	"bytes"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	testProgramID = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
	testPoolKey   = keyFromByte(0x01)
	testConfigKey = keyFromByte(0x02)
	testMint0     = keyFromByte(0x03)
	testMint1     = keyFromByte(0x04)
	testVault0    = keyFromByte(0x05)
	testVault1    = keyFromByte(0x06)
	testObsKey    = keyFromByte(0x07)
)

func keyFromByte(b byte) solana.PublicKey {
	return solana.PublicKeyFromBytes(bytes.Repeat([]byte{b}, 32))
}

// encodeAccount serializes v the way the chain stores it, with the 8-byte
// discriminator header prepended when the account format carries one.
func encodeAccount(t *testing.T, v interface{}, discriminated bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	if discriminated {
		buf.Write(make([]byte, AnchorDiscriminatorLen))
	}
	if err := bin.NewBinEncoder(&buf).Encode(v); err != nil {
		t.Fatalf("encode %T: %v", v, err)
	}
	return buf.Bytes()
}

func mustEncode(v interface{}) []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, AnchorDiscriminatorLen))
	if err := bin.NewBinEncoder(&buf).Encode(v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func mustEncodeRaw(v interface{}) []byte {
	var buf bytes.Buffer
	if err := bin.NewBinEncoder(&buf).Encode(v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// testPoolState is a pool parked at tick 0 with sqrt price exactly 1<<64,
// spacing 10 and deep constant liquidity.
func testPoolState() *PoolState {
	return &PoolState{
		AmmConfig:      testConfigKey,
		TokenMint0:     testMint0,
		TokenMint1:     testMint1,
		TokenVault0:    testVault0,
		TokenVault1:    testVault1,
		ObservationKey: testObsKey,
		MintDecimals0:  9,
		MintDecimals1:  6,
		TickSpacing:    10,
		Liquidity:      bin.Uint128{Lo: 1_000_000_000_000_000_000},
		SqrtPriceX64:   bin.Uint128{Hi: 1},
		TickCurrent:    0,
	}
}

func testAmmConfig() *AmmConfig {
	return &AmmConfig{
		Index:           4,
		ProtocolFeeRate: 120_000,
		TradeFeeRate:    2_500,
		TickSpacing:     10,
		FundFeeRate:     40_000,
	}
}

func testMintState() *MintState {
	return &MintState{
		Supply:        1 << 40,
		Decimals:      9,
		IsInitialized: true,
	}
}

// newTestPool builds a PoolManager from state and runs one update with the
// given tick arrays (nil entries meaning the array does not exist on chain).
func newTestPool(t *testing.T, state *PoolState, upArrays, downArrays []*TickArrayState) *PoolManager {
	t.Helper()
	pm, err := NewPoolManager(7, testPoolKey, testProgramID, encodeAccount(t, state, true))
	if err != nil {
		t.Fatalf("NewPoolManager: %v", err)
	}

	upData := make([][]byte, len(pm.UpTickArrayKeys))
	for i := range upData {
		if upArrays != nil && i < len(upArrays) && upArrays[i] != nil {
			upData[i] = encodeAccount(t, upArrays[i], true)
		}
	}
	downData := make([][]byte, len(pm.DownTickArrayKeys))
	for i := range downData {
		if downArrays != nil && i < len(downArrays) && downArrays[i] != nil {
			downData[i] = encodeAccount(t, downArrays[i], true)
		}
	}

	err = pm.Update(
		encodeAccount(t, testAmmConfig(), true),
		encodeAccount(t, testMintState(), false),
		encodeAccount(t, testMintState(), false),
		nil,
		upData,
		downData,
	)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	return pm
}

// tickArrayWith builds a tick array anchored at start with the given ticks
// initialized at unit gross liquidity and the supplied net liquidity.
func tickArrayWith(t *testing.T, start int32, spacing uint16, nets map[int32]int64) *TickArrayState {
	t.Helper()
	arr := &TickArrayState{
		PoolID:         testPoolKey,
		StartTickIndex: start,
	}
	for tick, net := range nets {
		j := (tick - start) / int32(spacing)
		if j < 0 || j >= TickArraySize {
			t.Fatalf("tick %d not in array starting at %d", tick, start)
		}
		arr.Ticks[j].Tick = tick
		arr.Ticks[j].LiquidityGross = bin.Uint128{Lo: 1}
		if net >= 0 {
			arr.Ticks[j].LiquidityNet = bin.Int128{Lo: uint64(net)}
		} else {
			// two's complement over 128 bits
			arr.Ticks[j].LiquidityNet = bin.Int128{Lo: uint64(net), Hi: ^uint64(0)}
		}
		arr.InitializedTickCount++
	}
	return arr
}
