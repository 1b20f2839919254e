package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Auction is a time-boxed ascending auction whose asset is held in escrow by
// the engine from creation until conclusion or cancellation.
//
// Invariants: Active and Concluded are never both true; Active transitions
// true to false exactly once and never back; while active, HighestBid is
// monotonically non-decreasing. Bidder is nil until the first accepted bid;
// when set, it identifies the unique party owed a refund if a higher bid
// arrives. HighestBid starts at the seller's floor price before any bid.
type Auction struct {
	ID         uint64          `json:"id"`
	AssetRef   common.Address  `json:"asset_ref"`
	AssetID    *big.Int        `json:"asset_id"`
	Owner      common.Address  `json:"owner"`
	EndsAt     time.Time       `json:"ends_at"`
	HighestBid *big.Int        `json:"highest_bid"`
	Bidder     *common.Address `json:"bidder,omitempty"`
	Active     bool            `json:"active"`
	Concluded  bool            `json:"concluded"`
	CreatedAt  time.Time       `json:"created_at"`
}

// HasBid reports whether at least one bid has been accepted.
func (a Auction) HasBid() bool {
	return a.Bidder != nil
}

// Clone returns a deep copy safe to hand out as a snapshot.
func (a Auction) Clone() Auction {
	out := a
	if a.AssetID != nil {
		out.AssetID = new(big.Int).Set(a.AssetID)
	}
	if a.HighestBid != nil {
		out.HighestBid = new(big.Int).Set(a.HighestBid)
	}
	if a.Bidder != nil {
		b := *a.Bidder
		out.Bidder = &b
	}
	return out
}
