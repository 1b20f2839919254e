package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetRegistry is the external registry that performs actual ownership
// transfer of a non-fungible asset. A transfer succeeds only if from has
// authorized the engine to move the asset; the engine only ever moves
// custody, never metadata.
type AssetRegistry interface {
	Transfer(ctx context.Context, assetRef common.Address, assetID *big.Int, from, to common.Address) error
}

// AssetInspector answers ownership queries against the external registry
// without moving anything. Used by operators to audit escrow custody.
type AssetInspector interface {
	OwnerOf(ctx context.Context, assetRef common.Address, assetID *big.Int) (common.Address, error)
}

// CustodyReport is the result of auditing one escrowed asset against the
// registry. Held is true when the registry agrees the custodian holds it.
type CustodyReport struct {
	ItemID   uint64
	AssetRef common.Address
	AssetID  *big.Int
	Holder   common.Address
	Held     bool
}

// Payout is a single push-style value transfer to a recipient.
type Payout struct {
	To     common.Address
	Amount *big.Int
}

// ValueLedger is the external ledger that performs actual monetary transfer.
// Distribute applies every payout in the batch or none of them; a rejection
// by any recipient or by the ledger itself fails the whole batch.
type ValueLedger interface {
	Distribute(ctx context.Context, payouts ...Payout) error
}

// EventSink receives the append-only notification feed. The engine calls
// Emit after each successful state transition, while still holding its
// operation guard; implementations must not call back into the engine.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, ev Event)

// Emit calls f.
func (f EventSinkFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }
