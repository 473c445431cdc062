package clmm

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/holiman/uint256"
)

var (
	// ErrPoolNotSynchronized is returned when a quote is requested before the
	// first successful refresh populated the fee config and tick arrays.
	ErrPoolNotSynchronized = errors.New("pool has not been synchronized yet")

	// ErrInsufficientLiquidity is returned when the swap would walk past the
	// tracked tick-array neighborhood with amount still unfilled.
	ErrInsufficientLiquidity = errors.New("not enough liquidity in the tracked tick range")

	// ErrZeroAmount rejects swaps of zero input or output.
	ErrZeroAmount = errors.New("swap amount must be positive")
)

// QuoteResult is the outcome of simulating one swap against the mirror.
// InAmount is gross of fees; FeeAmount is charged on the input side.
type QuoteResult struct {
	InAmount  uint64
	OutAmount uint64
	FeeAmount uint64
	// FeeRate is the trade fee in parts per million, as configured on the
	// pool's fee tier.
	FeeRate uint32
}

// CalculateQuote simulates a swap against the synchronized mirror without
// touching chain state. zeroForOne swaps token 0 for token 1 (price moves
// down); exactIn fixes the input amount, otherwise amount is the exact output
// and the returned InAmount is the gross input required. The fee is taken on
// the input amount at the fee tier's trade fee rate.
func CalculateQuote(pm *PoolManager, zeroForOne, exactIn bool, amount uint64) (*QuoteResult, error) {
	if pm.AmmConfig == nil {
		return nil, ErrPoolNotSynchronized
	}
	if amount == 0 {
		return nil, ErrZeroAmount
	}

	feeRate := uint256.NewInt(uint64(pm.AmmConfig.TradeFeeRate))
	feeDen := uint256.NewInt(FeeRateDenominator)

	if exactIn {
		gross := uint256.NewInt(amount)
		fee := mulDivFloor(gross, feeRate, feeDen)
		net := new(uint256.Int).Sub(gross, fee)
		if net.IsZero() {
			return nil, ErrZeroAmount
		}
		_, out, err := pm.swap(zeroForOne, true, net)
		if err != nil {
			return nil, err
		}
		if !out.IsUint64() {
			return nil, fmt.Errorf("output amount overflows uint64")
		}
		return &QuoteResult{
			InAmount:  amount,
			OutAmount: out.Uint64(),
			FeeAmount: fee.Uint64(),
			FeeRate:   pm.AmmConfig.TradeFeeRate,
		}, nil
	}

	netIn, out, err := pm.swap(zeroForOne, false, uint256.NewInt(amount))
	if err != nil {
		return nil, err
	}
	gross := mulDivCeil(netIn, feeDen, new(uint256.Int).Sub(feeDen, feeRate))
	if !gross.IsUint64() {
		return nil, fmt.Errorf("input amount overflows uint64")
	}
	fee := new(uint256.Int).Sub(gross, netIn)
	return &QuoteResult{
		InAmount:  gross.Uint64(),
		OutAmount: out.Uint64(),
		FeeAmount: fee.Uint64(),
		FeeRate:   pm.AmmConfig.TradeFeeRate,
	}, nil
}

// swap walks the price through the tracked neighborhood, crossing initialized
// ticks, until amount (net input when exactIn, output otherwise) is filled.
// It reads the mirror but never mutates it.
func (pm *PoolManager) swap(zeroForOne, exactIn bool, amount *uint256.Int) (in, out *uint256.Int, err error) {
	sqrtP := uint128ToU256(pm.PoolState.SqrtPriceX64)
	liquidity := uint128ToU256(pm.PoolState.Liquidity)
	tick := pm.PoolState.TickCurrent
	remaining := amount.Clone()
	in = new(uint256.Int)
	out = new(uint256.Int)

	lowerBound, upperBound := pm.neighborhoodBounds()

	for !remaining.IsZero() {
		nextTick, liquidityNet, found := pm.nextInitializedTick(tick, zeroForOne)
		targetTick := nextTick
		if !found {
			if zeroForOne {
				targetTick = lowerBound
			} else {
				targetTick = upperBound
			}
		}
		targetSqrt, err := sqrtPriceAtTick(targetTick)
		if err != nil {
			return nil, nil, err
		}
		if targetSqrt.Lt(MinSqrtPriceX64) {
			targetSqrt.Set(MinSqrtPriceX64)
		}
		if targetSqrt.Gt(MaxSqrtPriceX64) {
			targetSqrt.Set(MaxSqrtPriceX64)
		}

		stepIn, stepOut, nextSqrt := computeSwapStep(sqrtP, targetSqrt, liquidity, remaining, zeroForOne, exactIn)
		in.Add(in, stepIn)
		out.Add(out, stepOut)
		if exactIn {
			remaining.Sub(remaining, stepIn)
		} else {
			remaining.Sub(remaining, stepOut)
		}
		sqrtP = nextSqrt

		if !nextSqrt.Eq(targetSqrt) {
			break
		}
		if !found {
			if !remaining.IsZero() {
				return nil, nil, ErrInsufficientLiquidity
			}
			break
		}
		liquidity = crossTick(liquidity, liquidityNet, zeroForOne)
		if zeroForOne {
			tick = nextTick - 1
		} else {
			tick = nextTick
		}
	}
	return in, out, nil
}

// computeSwapStep advances the price within one tick range. It returns the
// input consumed, the output produced and the resulting sqrt price; nextSqrt
// equals target exactly when the range is fully traversed.
func computeSwapStep(sqrtP, target, liquidity, remaining *uint256.Int, zeroForOne, exactIn bool) (stepIn, stepOut, nextSqrt *uint256.Int) {
	stepIn = new(uint256.Int)
	stepOut = new(uint256.Int)
	if liquidity.IsZero() {
		return stepIn, stepOut, target.Clone()
	}

	if zeroForOne {
		if exactIn {
			deltaIn := amount0Delta(target, sqrtP, liquidity, true)
			if remaining.Cmp(deltaIn) >= 0 {
				stepIn.Set(deltaIn)
				nextSqrt = target.Clone()
			} else {
				stepIn.Set(remaining)
				nextSqrt = nextSqrtPriceFromInput0(sqrtP, liquidity, remaining)
			}
			stepOut = amount1Delta(nextSqrt, sqrtP, liquidity, false)
		} else {
			deltaOut := amount1Delta(target, sqrtP, liquidity, false)
			if remaining.Cmp(deltaOut) >= 0 {
				stepOut.Set(deltaOut)
				nextSqrt = target.Clone()
			} else {
				stepOut.Set(remaining)
				nextSqrt = nextSqrtPriceFromOutput1(sqrtP, liquidity, remaining)
			}
			stepIn = amount0Delta(nextSqrt, sqrtP, liquidity, true)
		}
		return stepIn, stepOut, nextSqrt
	}

	if exactIn {
		deltaIn := amount1Delta(sqrtP, target, liquidity, true)
		if remaining.Cmp(deltaIn) >= 0 {
			stepIn.Set(deltaIn)
			nextSqrt = target.Clone()
		} else {
			stepIn.Set(remaining)
			nextSqrt = nextSqrtPriceFromInput1(sqrtP, liquidity, remaining)
		}
		stepOut = amount0Delta(sqrtP, nextSqrt, liquidity, false)
	} else {
		deltaOut := amount0Delta(sqrtP, target, liquidity, false)
		if remaining.Cmp(deltaOut) >= 0 {
			stepOut.Set(deltaOut)
			nextSqrt = target.Clone()
		} else {
			stepOut.Set(remaining)
			nextSqrt = nextSqrtPriceFromOutput0(sqrtP, liquidity, remaining)
		}
		stepIn = amount1Delta(sqrtP, nextSqrt, liquidity, true)
	}
	return stepIn, stepOut, nextSqrt
}

// amount0Delta is the token-0 amount between sqrt prices sqrtA < sqrtB:
// liquidity << 64 * (sqrtB - sqrtA) / (sqrtB * sqrtA).
func amount0Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) *uint256.Int {
	num := new(uint256.Int).Lsh(liquidity, 64)
	diff := new(uint256.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return divCeil(mulDivCeil(num, diff, sqrtB), sqrtA)
	}
	return new(uint256.Int).Div(mulDivFloor(num, diff, sqrtB), sqrtA)
}

// amount1Delta is the token-1 amount between sqrt prices sqrtA < sqrtB:
// liquidity * (sqrtB - sqrtA) >> 64.
func amount1Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) *uint256.Int {
	diff := new(uint256.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return mulDivCeil(liquidity, diff, oneX64)
	}
	return mulDivFloor(liquidity, diff, oneX64)
}

// nextSqrtPriceFromInput0 moves the price down after consuming token-0 input
// within a range: L << 64 * sqrtP / (L << 64 + amount * sqrtP), rounded up.
func nextSqrtPriceFromInput0(sqrtP, liquidity, amount *uint256.Int) *uint256.Int {
	shifted := new(uint256.Int).Lsh(liquidity, 64)
	den := new(uint256.Int).Mul(amount, sqrtP)
	den.Add(den, shifted)
	return mulDivCeil(shifted, sqrtP, den)
}

// nextSqrtPriceFromInput1 moves the price up after consuming token-1 input:
// sqrtP + (amount << 64) / L, rounded down.
func nextSqrtPriceFromInput1(sqrtP, liquidity, amount *uint256.Int) *uint256.Int {
	delta := new(uint256.Int).Lsh(amount, 64)
	delta.Div(delta, liquidity)
	return new(uint256.Int).Add(sqrtP, delta)
}

// nextSqrtPriceFromOutput1 moves the price down after delivering token-1
// output: sqrtP - ceil((amount << 64) / L).
func nextSqrtPriceFromOutput1(sqrtP, liquidity, amount *uint256.Int) *uint256.Int {
	delta := divCeil(new(uint256.Int).Lsh(amount, 64), liquidity)
	return new(uint256.Int).Sub(sqrtP, delta)
}

// nextSqrtPriceFromOutput0 moves the price up after delivering token-0
// output: L << 64 * sqrtP / (L << 64 - amount * sqrtP), rounded up. The
// caller has already capped amount below the range's full token-0 reserve,
// so the denominator stays positive.
func nextSqrtPriceFromOutput0(sqrtP, liquidity, amount *uint256.Int) *uint256.Int {
	shifted := new(uint256.Int).Lsh(liquidity, 64)
	den := new(uint256.Int).Mul(amount, sqrtP)
	den.Sub(shifted, den)
	return mulDivCeil(shifted, sqrtP, den)
}

// crossTick applies a tick's net liquidity when the price crosses it:
// subtracted moving down, added moving up. Liquidity never goes negative on
// well-formed state; clamp to zero if it would.
func crossTick(liquidity *uint256.Int, net bin.Int128, zeroForOne bool) *uint256.Int {
	cur := liquidity.ToBig()
	delta := net.BigInt()
	if zeroForOne {
		cur.Sub(cur, delta)
	} else {
		cur.Add(cur, delta)
	}
	if cur.Sign() < 0 {
		cur.SetInt64(0)
	}
	res, _ := uint256.FromBig(cur)
	return res
}

// neighborhoodBounds returns the lowest and highest tick the mirror can
// reason about: beyond these the tick arrays are not tracked and the swap
// must stop.
func (pm *PoolManager) neighborhoodBounds() (lower, upper int32) {
	spacing := pm.PoolState.TickSpacing
	span := TicksPerArray(spacing)
	base := TickArrayStartIndex(pm.PoolState.TickCurrent, spacing)

	lower = base - int32(len(pm.DownTickArrayKeys))*span
	if lower < MinTick {
		lower = MinTick
	}
	upper = base + int32(len(pm.UpTickArrayKeys))*span
	if upper > MaxTick {
		upper = MaxTick
	}
	return lower, upper
}

// trackedArray returns the decoded tick array anchored at start, and whether
// that anchor lies inside the tracked neighborhood at all. A nil array with
// ok=true is an array that does not exist on chain.
func (pm *PoolManager) trackedArray(start int32) (arr *TickArrayState, ok bool) {
	span := TicksPerArray(pm.PoolState.TickSpacing)
	base := TickArrayStartIndex(pm.PoolState.TickCurrent, pm.PoolState.TickSpacing)

	if start >= base {
		i := (start - base) / span
		if int(i) < len(pm.UpTickArrays) {
			return pm.UpTickArrays[i], true
		}
		return nil, false
	}
	i := (base-start)/span - 1
	if int(i) < len(pm.DownTickArrays) {
		return pm.DownTickArrays[i], true
	}
	return nil, false
}

// nextInitializedTick finds the nearest initialized tick at or below tick
// when zeroForOne, or strictly above it otherwise, scanning only the tracked
// neighborhood. found is false when the scan runs off the neighborhood.
func (pm *PoolManager) nextInitializedTick(tick int32, zeroForOne bool) (tickIndex int32, net bin.Int128, found bool) {
	spacing := int32(pm.PoolState.TickSpacing)
	start := TickArrayStartIndex(tick, pm.PoolState.TickSpacing)
	span := TicksPerArray(pm.PoolState.TickSpacing)

	if zeroForOne {
		j := (tick - start) / spacing
		for {
			arr, ok := pm.trackedArray(start)
			if !ok {
				return 0, bin.Int128{}, false
			}
			if arr != nil {
				for ; j >= 0; j-- {
					ts := &arr.Ticks[j]
					if ts.LiquidityGross.Lo != 0 || ts.LiquidityGross.Hi != 0 {
						return ts.Tick, ts.LiquidityNet, true
					}
				}
			}
			start -= span
			j = TickArraySize - 1
		}
	}

	j := (tick-start)/spacing + 1
	for {
		if j >= TickArraySize {
			start += span
			j = 0
		}
		arr, ok := pm.trackedArray(start)
		if !ok {
			return 0, bin.Int128{}, false
		}
		if arr != nil {
			for ; j < TickArraySize; j++ {
				ts := &arr.Ticks[j]
				if ts.LiquidityGross.Lo != 0 || ts.LiquidityGross.Hi != 0 {
					return ts.Tick, ts.LiquidityNet, true
				}
			}
		}
		j = TickArraySize
	}
}

func uint128ToU256(v bin.Uint128) *uint256.Int {
	out := new(uint256.Int)
	out[0] = v.Lo
	out[1] = v.Hi
	return out
}
