// Package amm defines the plugin contract between a pool adapter and the
// routing engine that drives it. The engine owns all account fetching; an
// adapter declares the addresses it depends on, receives fetched snapshots
// through Update, and answers quote and swap-instruction queries against its
// local mirror only.
package amm

import (
	"github.com/gagliardetto/solana-go"
)

// Account is a raw account snapshot as fetched by the engine's scheduler.
// Data is nil for an address that does not exist on chain.
type Account struct {
	Owner    solana.PublicKey
	Data     []byte
	Lamports uint64
}

// AccountMap keys fetched snapshots by address for one update cycle.
type AccountMap map[solana.PublicKey]*Account

// KeyedAccount pairs an address with its fetched snapshot.
type KeyedAccount struct {
	Key     solana.PublicKey
	Account Account
}

type SwapMode uint8

const (
	SwapModeExactIn SwapMode = iota
	SwapModeExactOut
)

func (m SwapMode) String() string {
	if m == SwapModeExactOut {
		return "ExactOut"
	}
	return "ExactIn"
}

// ParseSwapMode maps the wire representation to a SwapMode. Anything that is
// not "ExactOut" quotes as exact-in.
func ParseSwapMode(s string) SwapMode {
	if s == "ExactOut" {
		return SwapModeExactOut
	}
	return SwapModeExactIn
}

type QuoteParams struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	Amount     uint64
	SwapMode   SwapMode
}

type Quote struct {
	InAmount  uint64
	OutAmount uint64
	FeeAmount uint64
	FeeMint   solana.PublicKey
	FeePct    float64
}

type SwapParams struct {
	SourceMint              solana.PublicKey
	DestinationMint         solana.PublicKey
	SourceTokenAccount      solana.PublicKey
	DestinationTokenAccount solana.PublicKey
	TokenTransferAuthority  solana.PublicKey
	InAmount                uint64
}

// SwapAndAccountMetas is the transaction-assembly view of a swap: the venue
// tag the engine dispatches on, the built instruction, and its account metas.
// len(AccountMetas) must equal the adapter's GetAccountsLen.
type SwapAndAccountMetas struct {
	Swap         string
	Instruction  solana.Instruction
	AccountMetas []*solana.AccountMeta
}

// UserSetup describes accounts a user must create before swapping. Adapters
// without setup requirements return nil.
type UserSetup struct {
	Instruction solana.Instruction
}

// ProgramDependency names an on-chain program an adapter's instructions call
// into besides its own pool program.
type ProgramDependency struct {
	ProgramID solana.PublicKey
	Label     string
}

// Amm is the capability surface a pool adapter exposes to the routing engine.
//
// Update is the only mutating operation. The engine drives each instance from
// a single goroutine and never interleaves Update with reads on the same
// instance; independent clones may be refreshed in parallel.
type Amm interface {
	Label() string
	ProgramID() solana.PublicKey
	Key() solana.PublicKey

	GetReserveMints() []solana.PublicKey
	GetAccountsToUpdate() []solana.PublicKey
	Update(accounts AccountMap) error

	Quote(params *QuoteParams) (*Quote, error)
	GetSwapAndAccountMetas(params *SwapParams) (*SwapAndAccountMetas, error)

	// CloneAmm returns a fully independent copy: updating the clone must not
	// be observable through the original.
	CloneAmm() Amm

	HasDynamicAccounts() bool
	RequiresUpdateForReserveMints() bool
	SupportsExactOut() bool
	Unidirectional() bool
	IsActive() bool
	GetAccountsLen() int

	GetUserSetup() *UserSetup
	ProgramDependencies() []ProgramDependency
	UnderlyingLiquidities() []solana.PublicKey
}
