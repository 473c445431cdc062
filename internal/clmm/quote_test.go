package clmm

import (
	"errors"
	"math"
	"math/big"
	"testing"

	bin "github.com/gagliardetto/binary"
)

func TestSqrtPriceAtTickZero(t *testing.T) {
	got, err := sqrtPriceAtTick(0)
	if err != nil {
		t.Fatalf("sqrtPriceAtTick(0): %v", err)
	}
	if !got.Eq(oneX64) {
		t.Fatalf("sqrtPriceAtTick(0) = %s, want exactly 1<<64", got.Dec())
	}
}

func TestSqrtPriceAtTickMonotonic(t *testing.T) {
	ticks := []int32{MinTick, -300_000, -44_000, -600, -11, -1, 0, 1, 11, 600, 44_000, 300_000, MaxTick}
	var prev *big.Int
	for _, tick := range ticks {
		got, err := sqrtPriceAtTick(tick)
		if err != nil {
			t.Fatalf("sqrtPriceAtTick(%d): %v", tick, err)
		}
		cur := got.ToBig()
		if prev != nil && cur.Cmp(prev) <= 0 {
			t.Fatalf("sqrtPriceAtTick not strictly increasing at tick %d", tick)
		}
		prev = cur
	}
}

func TestSqrtPriceAtTickAgainstFloat(t *testing.T) {
	for _, tick := range []int32{-50_000, -600, -10, 1, 10, 600, 50_000} {
		got, err := sqrtPriceAtTick(tick)
		if err != nil {
			t.Fatalf("sqrtPriceAtTick(%d): %v", tick, err)
		}
		gotF, _ := new(big.Float).SetInt(got.ToBig()).Float64()
		want := math.Pow(1.0001, float64(tick)/2) * math.Pow(2, 64)
		if rel := math.Abs(gotF-want) / want; rel > 1e-9 {
			t.Errorf("sqrtPriceAtTick(%d) off by %.2e relative", tick, rel)
		}
	}
}

func TestSqrtPriceAtTickOutOfRange(t *testing.T) {
	if _, err := sqrtPriceAtTick(MaxTick + 1); err == nil {
		t.Error("accepted tick above MaxTick")
	}
	if _, err := sqrtPriceAtTick(MinTick - 1); err == nil {
		t.Error("accepted tick below MinTick")
	}
}

func TestCalculateQuoteBeforeFirstSync(t *testing.T) {
	pm, err := NewPoolManager(7, testPoolKey, testProgramID, encodeAccount(t, testPoolState(), true))
	if err != nil {
		t.Fatalf("NewPoolManager: %v", err)
	}
	if _, err := CalculateQuote(pm, true, true, 1_000); !errors.Is(err, ErrPoolNotSynchronized) {
		t.Fatalf("quote before sync returned %v, want ErrPoolNotSynchronized", err)
	}
}

func TestCalculateQuoteZeroAmount(t *testing.T) {
	pm := newTestPool(t, testPoolState(), nil, nil)
	if _, err := CalculateQuote(pm, true, true, 0); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("zero amount returned %v, want ErrZeroAmount", err)
	}
}

// With the price parked at exactly 1<<64 and liquidity deep enough that the
// price barely moves, the output of an exact-in swap is the net input minus
// step rounding.
func TestCalculateQuoteExactInNearUnitPrice(t *testing.T) {
	pm := newTestPool(t, testPoolState(), nil, nil)

	const amount = 1_000_000
	feeRate := uint64(pm.AmmConfig.TradeFeeRate)
	wantFee := amount * feeRate / FeeRateDenominator
	netIn := amount - wantFee

	for _, zeroForOne := range []bool{true, false} {
		quote, err := CalculateQuote(pm, zeroForOne, true, amount)
		if err != nil {
			t.Fatalf("CalculateQuote(zeroForOne=%v): %v", zeroForOne, err)
		}
		if quote.InAmount != amount {
			t.Errorf("InAmount = %d, want %d", quote.InAmount, amount)
		}
		if quote.FeeAmount != wantFee {
			t.Errorf("FeeAmount = %d, want %d", quote.FeeAmount, wantFee)
		}
		if quote.OutAmount > netIn || quote.OutAmount < netIn-2 {
			t.Errorf("OutAmount = %d, want within [%d, %d]", quote.OutAmount, netIn-2, netIn)
		}
		if quote.FeeRate != pm.AmmConfig.TradeFeeRate {
			t.Errorf("FeeRate = %d, want %d", quote.FeeRate, pm.AmmConfig.TradeFeeRate)
		}
	}
}

func TestCalculateQuoteExactOutNearUnitPrice(t *testing.T) {
	pm := newTestPool(t, testPoolState(), nil, nil)

	const wantOut = 500_000
	quote, err := CalculateQuote(pm, true, false, wantOut)
	if err != nil {
		t.Fatalf("CalculateQuote: %v", err)
	}
	if quote.OutAmount != wantOut {
		t.Fatalf("OutAmount = %d, want %d", quote.OutAmount, wantOut)
	}
	if quote.InAmount <= quote.OutAmount {
		t.Errorf("InAmount %d should exceed OutAmount %d at unit price with a fee", quote.InAmount, quote.OutAmount)
	}

	// The fee is the gross-up over the net input at the configured rate.
	netIn := quote.InAmount - quote.FeeAmount
	grossLow := netIn * FeeRateDenominator / (FeeRateDenominator - uint64(quote.FeeRate))
	if quote.InAmount < grossLow || quote.InAmount > grossLow+1 {
		t.Errorf("InAmount = %d, want gross-up of %d to be %d or %d", quote.InAmount, netIn, grossLow, grossLow+1)
	}

	// Feeding the quoted input back as exact-in must produce at least the
	// requested output minus rounding.
	back, err := CalculateQuote(pm, true, true, quote.InAmount)
	if err != nil {
		t.Fatalf("round-trip quote: %v", err)
	}
	if back.OutAmount+2 < wantOut {
		t.Errorf("round-trip OutAmount = %d, want at least %d", back.OutAmount, wantOut-2)
	}
}

func TestCalculateQuoteDoesNotMutateMirror(t *testing.T) {
	pm := newTestPool(t, testPoolState(), nil, nil)
	priceBefore := pm.PoolState.SqrtPriceX64
	tickBefore := pm.PoolState.TickCurrent

	if _, err := CalculateQuote(pm, true, true, 5_000_000); err != nil {
		t.Fatalf("CalculateQuote: %v", err)
	}
	if pm.PoolState.SqrtPriceX64 != priceBefore || pm.PoolState.TickCurrent != tickBefore {
		t.Fatal("quote mutated the mirror")
	}
}

func TestCalculateQuoteInsufficientLiquidity(t *testing.T) {
	state := testPoolState()
	state.Liquidity = bin.Uint128{Lo: 1_000}
	pm := newTestPool(t, state, nil, nil)

	_, err := CalculateQuote(pm, true, true, 1_000_000_000_000)
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("draining swap returned %v, want ErrInsufficientLiquidity", err)
	}
}

// Crossing the initialized tick below the price decides the outcome: a tick
// whose net liquidity adds depth on the way down lets the swap fill, one that
// removes all of it leaves the swap stranded.
func TestCalculateQuoteTickCrossing(t *testing.T) {
	const liq = 1_000_000_000

	run := func(net int64) (*QuoteResult, error) {
		state := testPoolState()
		state.Liquidity = bin.Uint128{Lo: liq}
		down := make([]*TickArrayState, NeighborhoodSize)
		down[0] = tickArrayWith(t, -600, 10, map[int32]int64{-10: net})
		pm := newTestPool(t, state, nil, down)
		return CalculateQuote(pm, true, true, 1_000_000)
	}

	// Net +liq at the lower tick means all depth vanishes when the price
	// drops through it.
	if _, err := run(liq); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("swap through a draining tick returned %v, want ErrInsufficientLiquidity", err)
	}

	// Net -liq doubles the depth below the tick; the same swap fills.
	quote, err := run(-liq)
	if err != nil {
		t.Fatalf("swap through a deepening tick: %v", err)
	}
	if quote.OutAmount == 0 {
		t.Fatal("filled swap produced zero output")
	}
}

func TestNextInitializedTick(t *testing.T) {
	up := make([]*TickArrayState, NeighborhoodSize)
	up[0] = tickArrayWith(t, 0, 10, map[int32]int64{20: -500})
	down := make([]*TickArrayState, NeighborhoodSize)
	down[0] = tickArrayWith(t, -600, 10, map[int32]int64{-10: 500})
	pm := newTestPool(t, testPoolState(), up, down)

	tick, net, found := pm.nextInitializedTick(0, true)
	if !found || tick != -10 {
		t.Fatalf("down search found tick %d (found=%v), want -10", tick, found)
	}
	if got := net.BigInt().Int64(); got != 500 {
		t.Errorf("down tick net = %d, want 500", got)
	}

	tick, net, found = pm.nextInitializedTick(0, false)
	if !found || tick != 20 {
		t.Fatalf("up search found tick %d (found=%v), want 20", tick, found)
	}
	if got := net.BigInt().Int64(); got != -500 {
		t.Errorf("up tick net = %d, want -500", got)
	}

	// Beyond the only initialized ticks the neighborhood is empty.
	if _, _, found = pm.nextInitializedTick(20, false); found {
		t.Error("up search past the last initialized tick reported a hit")
	}
	if _, _, found = pm.nextInitializedTick(-11, true); found {
		t.Error("down search past the last initialized tick reported a hit")
	}
}

func BenchmarkCalculateQuote(b *testing.B) {
	pm, err := NewPoolManager(7, testPoolKey, testProgramID, mustEncode(testPoolState()))
	if err != nil {
		b.Fatal(err)
	}
	upData := make([][]byte, len(pm.UpTickArrayKeys))
	downData := make([][]byte, len(pm.DownTickArrayKeys))
	if err := pm.Update(mustEncode(testAmmConfig()), mustEncodeRaw(testMintState()), mustEncodeRaw(testMintState()), nil, upData, downData); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := CalculateQuote(pm, true, true, 1_000_000); err != nil {
			b.Fatal(err)
		}
	}
}
