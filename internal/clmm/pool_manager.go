package clmm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// DecodeFailure identifies the staged account whose buffer failed to decode.
// Tick-array positions are reported over the concatenated up-then-down
// sequence; Index is -1 for non-array accounts.
type DecodeFailure struct {
	Kind  string
	Index int
	Err   error
}

func (e *DecodeFailure) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s at neighborhood position %d: %v", e.Kind, e.Index, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *DecodeFailure) Unwrap() error {
	return e.Err
}

// Account kinds reported in DecodeFailure.
const (
	KindPoolState       = "pool state"
	KindAmmConfig       = "amm config"
	KindMint0           = "mint 0"
	KindMint1           = "mint 1"
	KindBitmapExtension = "bitmap extension"
	KindTickArray       = "tick array"
)

// PoolManager is the synchronized local mirror of one pool: identity fixed at
// construction, decoded state replaced wholesale by Update, and the tick-array
// neighborhood around the current price kept consistent with that state.
//
// A PoolManager is not safe for concurrent use; callers serialize Update
// against reads and use Clone for independent copies.
type PoolManager struct {
	epoch              uint64
	poolKey            solana.PublicKey
	programID          solana.PublicKey
	bitmapExtensionKey solana.PublicKey

	PoolState       *PoolState
	AmmConfig       *AmmConfig
	Mint0           *MintState
	Mint1           *MintState
	BitmapExtension *TickArrayBitmapExtension

	// UpTickArrayKeys and DownTickArrayKeys are the current neighborhood,
	// ordered away from the current price on each side. The parallel state
	// slices hold the decoded arrays; a nil entry is an array that does not
	// exist on chain yet.
	UpTickArrayKeys   []solana.PublicKey
	DownTickArrayKeys []solana.PublicKey
	UpTickArrays      []*TickArrayState
	DownTickArrays    []*TickArrayState
}

// NewPoolManager decodes the raw pool account and derives the initial
// neighborhood for its current tick. The epoch is accepted as-is and carried
// for callers that thread it through; nothing in the mirror depends on it.
func NewPoolManager(epoch uint64, poolKey, programID solana.PublicKey, poolData []byte) (*PoolManager, error) {
	state, err := DecodePoolState(poolData)
	if err != nil {
		return nil, &DecodeFailure{Kind: KindPoolState, Index: -1, Err: err}
	}

	bitmapKey, err := BitmapExtensionAddress(programID, poolKey)
	if err != nil {
		return nil, fmt.Errorf("derive bitmap extension address: %w", err)
	}

	pm := &PoolManager{
		epoch:              epoch,
		poolKey:            poolKey,
		programID:          programID,
		bitmapExtensionKey: bitmapKey,
		PoolState:          state,
	}
	up, down, err := pm.DeriveNeighborhood(state.TickCurrent)
	if err != nil {
		return nil, err
	}
	pm.UpTickArrayKeys = up
	pm.DownTickArrayKeys = down
	pm.UpTickArrays = make([]*TickArrayState, len(up))
	pm.DownTickArrays = make([]*TickArrayState, len(down))
	return pm, nil
}

func (pm *PoolManager) Epoch() uint64 {
	return pm.epoch
}

func (pm *PoolManager) PoolKey() solana.PublicKey {
	return pm.poolKey
}

func (pm *PoolManager) ProgramID() solana.PublicKey {
	return pm.programID
}

// TickArrayBitmapExtensionKey returns the pool's bitmap extension address,
// derived once at construction.
func (pm *PoolManager) TickArrayBitmapExtensionKey() solana.PublicKey {
	return pm.bitmapExtensionKey
}

// ReserveMints returns the two mint addresses the pool trades, in token-0,
// token-1 order.
func (pm *PoolManager) ReserveMints() []solana.PublicKey {
	return []solana.PublicKey{pm.PoolState.TokenMint0, pm.PoolState.TokenMint1}
}

// DeriveNeighborhood computes the tick-array addresses relevant at tick: the
// array containing it plus the next arrays upward (NeighborhoodSize including
// the current one) and downward (NeighborhoodSize below). It is a pure
// function of the pool identity and the tick, so repeated calls return
// byte-identical sequences. Sides truncate at the tick domain bounds rather
// than wrapping.
func (pm *PoolManager) DeriveNeighborhood(tick int32) (up, down []solana.PublicKey, err error) {
	spacing := pm.PoolState.TickSpacing
	span := TicksPerArray(spacing)
	start := TickArrayStartIndex(tick, spacing)
	maxStart := TickArrayStartIndex(MaxTick, spacing)
	minStart := TickArrayStartIndex(MinTick, spacing)

	up = make([]solana.PublicKey, 0, NeighborhoodSize)
	for i := int32(0); i < NeighborhoodSize; i++ {
		idx := start + i*span
		if idx > maxStart {
			break
		}
		addr, err := TickArrayAddress(pm.programID, pm.poolKey, idx)
		if err != nil {
			return nil, nil, err
		}
		up = append(up, addr)
	}

	down = make([]solana.PublicKey, 0, NeighborhoodSize)
	for i := int32(1); i <= NeighborhoodSize; i++ {
		idx := start - i*span
		if idx < minStart {
			break
		}
		addr, err := TickArrayAddress(pm.programID, pm.poolKey, idx)
		if err != nil {
			return nil, nil, err
		}
		down = append(down, addr)
	}

	return up, down, nil
}

// Update replaces the refreshable parts of the mirror from freshly fetched
// account buffers: the amm config, both mints, the bitmap extension and the
// decoded contents of the current neighborhood. A nil tick-array buffer marks
// an array that does not exist on chain (valid); a nil bitmap buffer marks a
// pool still within its inline bitmap range. Every buffer is decoded before
// anything is written, so a failed update leaves the mirror untouched.
func (pm *PoolManager) Update(configData, mint0Data, mint1Data, bitmapData []byte, upData, downData [][]byte) error {
	if len(upData) != len(pm.UpTickArrayKeys) || len(downData) != len(pm.DownTickArrayKeys) {
		return fmt.Errorf("neighborhood input mismatch: got %d up and %d down buffers, mirror tracks %d and %d",
			len(upData), len(downData), len(pm.UpTickArrayKeys), len(pm.DownTickArrayKeys))
	}

	cfg, err := DecodeAmmConfig(configData)
	if err != nil {
		return &DecodeFailure{Kind: KindAmmConfig, Index: -1, Err: err}
	}
	mint0, err := DecodeMint(mint0Data)
	if err != nil {
		return &DecodeFailure{Kind: KindMint0, Index: -1, Err: err}
	}
	mint1, err := DecodeMint(mint1Data)
	if err != nil {
		return &DecodeFailure{Kind: KindMint1, Index: -1, Err: err}
	}

	var bitmap *TickArrayBitmapExtension
	if len(bitmapData) > 0 {
		bitmap, err = DecodeBitmapExtension(bitmapData)
		if err != nil {
			return &DecodeFailure{Kind: KindBitmapExtension, Index: -1, Err: err}
		}
	}

	decodeArrays := func(buffers [][]byte, offset int) ([]*TickArrayState, error) {
		arrays := make([]*TickArrayState, len(buffers))
		for i, data := range buffers {
			if len(data) == 0 {
				continue
			}
			arr, err := DecodeTickArray(data)
			if err != nil {
				return nil, &DecodeFailure{Kind: KindTickArray, Index: offset + i, Err: err}
			}
			arrays[i] = arr
		}
		return arrays, nil
	}

	upArrays, err := decodeArrays(upData, 0)
	if err != nil {
		return err
	}
	downArrays, err := decodeArrays(downData, len(upData))
	if err != nil {
		return err
	}

	up, down, err := pm.DeriveNeighborhood(pm.PoolState.TickCurrent)
	if err != nil {
		return err
	}

	// Commit point: everything below is plain assignment, so readers only
	// ever observe the previous mirror or this one in full.
	pm.AmmConfig = cfg
	pm.Mint0 = mint0
	pm.Mint1 = mint1
	pm.BitmapExtension = bitmap
	pm.UpTickArrays = upArrays
	pm.DownTickArrays = downArrays
	pm.UpTickArrayKeys = up
	pm.DownTickArrayKeys = down
	return nil
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (pm *PoolManager) Clone() *PoolManager {
	clone := &PoolManager{
		epoch:              pm.epoch,
		poolKey:            pm.poolKey,
		programID:          pm.programID,
		bitmapExtensionKey: pm.bitmapExtensionKey,
	}
	if pm.PoolState != nil {
		state := *pm.PoolState
		clone.PoolState = &state
	}
	if pm.AmmConfig != nil {
		cfg := *pm.AmmConfig
		clone.AmmConfig = &cfg
	}
	if pm.Mint0 != nil {
		mint := *pm.Mint0
		clone.Mint0 = &mint
	}
	if pm.Mint1 != nil {
		mint := *pm.Mint1
		clone.Mint1 = &mint
	}
	if pm.BitmapExtension != nil {
		ext := *pm.BitmapExtension
		clone.BitmapExtension = &ext
	}
	clone.UpTickArrayKeys = append([]solana.PublicKey(nil), pm.UpTickArrayKeys...)
	clone.DownTickArrayKeys = append([]solana.PublicKey(nil), pm.DownTickArrayKeys...)
	clone.UpTickArrays = cloneTickArrays(pm.UpTickArrays)
	clone.DownTickArrays = cloneTickArrays(pm.DownTickArrays)
	return clone
}

func cloneTickArrays(arrays []*TickArrayState) []*TickArrayState {
	out := make([]*TickArrayState, len(arrays))
	for i, arr := range arrays {
		if arr != nil {
			cp := *arr
			out[i] = &cp
		}
	}
	return out
}
