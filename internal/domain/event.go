package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind identifies a marketplace state transition.
type EventKind string

const (
	EventListed           EventKind = "listed"
	EventBought           EventKind = "bought"
	EventSaleCancelled    EventKind = "sale_cancelled"
	EventAuctionStarted   EventKind = "auction_started"
	EventBidSubmitted     EventKind = "bid_submitted"
	EventBidReturned      EventKind = "bid_returned"
	EventAuctionConcluded EventKind = "auction_concluded"
	EventAuctionCancelled EventKind = "auction_cancelled"
	EventFeeUpdated       EventKind = "fee_updated"
)

// Event is one entry in the append-only notification feed. Exactly one of
// ItemID / AuctionID is set for sale events; neither is set for fee updates.
// Downstream consumers (indexers, UIs, the WebSocket hub) observe engine
// state through this feed plus point queries; in particular, a cancelled
// item is distinguishable from a bought one only by its event kind.
type Event struct {
	Seq       int64           `json:"seq,omitempty"` // assigned by the journal, 0 until persisted
	Kind      EventKind       `json:"kind"`
	At        time.Time       `json:"at"`
	ItemID    uint64          `json:"item_id,omitempty"`
	AuctionID uint64          `json:"auction_id,omitempty"`
	AssetRef  *common.Address `json:"asset_ref,omitempty"`
	AssetID   *big.Int        `json:"asset_id,omitempty"`
	Seller    *common.Address `json:"seller,omitempty"`
	Buyer     *common.Address `json:"buyer,omitempty"` // buyer, bidder, or refund recipient
	Amount    *big.Int        `json:"amount,omitempty"`
	Fee       *big.Int        `json:"fee,omitempty"`
	Proceeds  *big.Int        `json:"proceeds,omitempty"`
	EndsAt    *time.Time      `json:"ends_at,omitempty"`
	OldFeeBps uint64          `json:"old_fee_bps,omitempty"`
	NewFeeBps uint64          `json:"new_fee_bps,omitempty"`
}

// Channel returns the pub/sub channel this event is published on, in
// addition to the firehose channel.
func (e Event) Channel() string {
	switch e.Kind {
	case EventListed, EventBought, EventSaleCancelled:
		return ChannelItems
	case EventFeeUpdated:
		return ChannelFees
	default:
		return ChannelAuctions
	}
}

// Pub/sub channel names for the notification feed.
const (
	ChannelEvents   = "mkt:events"
	ChannelItems    = "mkt:items"
	ChannelAuctions = "mkt:auctions"
	ChannelFees     = "mkt:fees"
)
