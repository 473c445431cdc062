package clmm

import (
	"encoding/binary"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// TicksPerArray returns the tick span covered by one tick array at the given
// spacing.
func TicksPerArray(tickSpacing uint16) int32 {
	return int32(tickSpacing) * TickArraySize
}

// TickArrayStartIndex returns the start index of the tick array containing
// tick, flooring toward negative infinity so that negative ticks land in the
// array below zero.
func TickArrayStartIndex(tick int32, tickSpacing uint16) int32 {
	span := TicksPerArray(tickSpacing)
	start := tick / span
	if tick < 0 && tick%span != 0 {
		start--
	}
	return start * span
}

type tickArrayPDAKey struct {
	programID  solana.PublicKey
	pool       solana.PublicKey
	startIndex int32
}

var (
	tickArrayPDACache   = make(map[tickArrayPDAKey]solana.PublicKey)
	tickArrayPDACacheMu sync.RWMutex

	bitmapPDACache   = make(map[tickArrayPDAKey]solana.PublicKey)
	bitmapPDACacheMu sync.RWMutex
)

// TickArrayAddress derives the PDA of the tick array anchored at startIndex.
// Derivation is deterministic, so results are cached process-wide.
func TickArrayAddress(programID, pool solana.PublicKey, startIndex int32) (solana.PublicKey, error) {
	key := tickArrayPDAKey{programID: programID, pool: pool, startIndex: startIndex}

	tickArrayPDACacheMu.RLock()
	if cached, ok := tickArrayPDACache[key]; ok {
		tickArrayPDACacheMu.RUnlock()
		return cached, nil
	}
	tickArrayPDACacheMu.RUnlock()

	var indexBytes [4]byte
	binary.BigEndian.PutUint32(indexBytes[:], uint32(startIndex))

	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(tickArraySeed), pool[:], indexBytes[:]},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, err
	}

	tickArrayPDACacheMu.Lock()
	tickArrayPDACache[key] = pda
	tickArrayPDACacheMu.Unlock()

	return pda, nil
}

// BitmapExtensionAddress derives the PDA of the pool's tick-array bitmap
// extension account.
func BitmapExtensionAddress(programID, pool solana.PublicKey) (solana.PublicKey, error) {
	key := tickArrayPDAKey{programID: programID, pool: pool}

	bitmapPDACacheMu.RLock()
	if cached, ok := bitmapPDACache[key]; ok {
		bitmapPDACacheMu.RUnlock()
		return cached, nil
	}
	bitmapPDACacheMu.RUnlock()

	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(bitmapExtensionSeed), pool[:]},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, err
	}

	bitmapPDACacheMu.Lock()
	bitmapPDACache[key] = pda
	bitmapPDACacheMu.Unlock()

	return pda, nil
}
