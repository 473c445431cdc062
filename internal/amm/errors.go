package amm

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrMalformedAccount is returned when a raw pool account buffer is too
	// short to carry the 8-byte format discriminator.
	ErrMalformedAccount = errors.New("account data too short")

	// ErrUnknownMint is returned when a requested mint is not one of the
	// pool's two reserves, or when input and output mints are identical.
	ErrUnknownMint = errors.New("mint is not traded by this pool")
)

// MissingAccountError reports a declared dependency absent from an Update
// snapshot. The update aborts without touching the mirror; the caller is
// expected to re-fetch and retry.
type MissingAccountError struct {
	Address solana.PublicKey
}

func (e *MissingAccountError) Error() string {
	return fmt.Sprintf("account %s not found in update snapshot", e.Address)
}

// DecodeError reports that an account buffer could not be parsed into the
// state it was expected to hold. Kind names the expected state.
type DecodeError struct {
	Kind    string
	Address solana.PublicKey
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s account %s: %v", e.Kind, e.Address, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
