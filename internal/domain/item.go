// Package domain defines the core marketplace types shared by the engine,
// stores, caches, and API layers: escrowed items, auctions, the notification
// event model, capability interfaces for the external asset registry and
// value ledger, and the store interfaces implemented by the persistence layer.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Item is a fixed-price marketplace listing whose asset is held in escrow by
// the engine until it is bought or the sale is cancelled.
//
// Sold is terminal: once true it never reverts, and both purchase and
// cancellation set it. Records are never deleted; a sold item remains as an
// inert historical entry.
type Item struct {
	ID        uint64         `json:"id"`
	AssetRef  common.Address `json:"asset_ref"`
	AssetID   *big.Int       `json:"asset_id"`
	Owner     common.Address `json:"owner"`
	Price     *big.Int       `json:"price"`
	Sold      bool           `json:"sold"`
	CreatedAt time.Time      `json:"created_at"`
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing the engine's internal big.Int values to mutation.
func (i Item) Clone() Item {
	out := i
	if i.AssetID != nil {
		out.AssetID = new(big.Int).Set(i.AssetID)
	}
	if i.Price != nil {
		out.Price = new(big.Int).Set(i.Price)
	}
	return out
}
