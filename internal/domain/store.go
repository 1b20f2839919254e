package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ItemStore persists fixed-price listings. Records are append-only by ID;
// the only mutation after insert is the terminal sold flag.
type ItemStore interface {
	Insert(ctx context.Context, item Item) error
	MarkSold(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (Item, error)
	List(ctx context.Context, opts ListOpts) ([]Item, error)
	ListByOwner(ctx context.Context, owner common.Address, opts ListOpts) ([]Item, error)
	Count(ctx context.Context) (int64, error)
}

// AuctionStore persists auctions. After insert, the only mutations are the
// current bid (while active) and the terminal conclusion flags.
type AuctionStore interface {
	Insert(ctx context.Context, a Auction) error
	UpdateBid(ctx context.Context, id uint64, bidder common.Address, amount *big.Int) error
	MarkConcluded(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (Auction, error)
	List(ctx context.Context, opts ListOpts) ([]Auction, error)
	Count(ctx context.Context) (int64, error)
}

// EventStore is the append-only journal of the notification feed. Append
// assigns the returned monotonic sequence number.
type EventStore interface {
	Append(ctx context.Context, ev Event) (int64, error)
	ListSince(ctx context.Context, seq int64, limit int) ([]Event, error)
	LastSeq(ctx context.Context) (int64, error)
}

// FeePolicy is the persisted fee rate / beneficiary pair.
type FeePolicy struct {
	RateBps     uint64
	Beneficiary common.Address
	UpdatedAt   time.Time
}

// FeeStore persists the current fee policy snapshot.
type FeeStore interface {
	Get(ctx context.Context) (FeePolicy, error)
	Set(ctx context.Context, p FeePolicy) error
}

// StreamMessage is a single entry read back from the durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// EventBus fans the notification feed out to live consumers. Publish is
// ephemeral pub/sub; StreamAppend and StreamRead are the durable, ordered
// side used for client catch-up.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// LockManager provides distributed mutual exclusion for mutating operations
// when multiple replicas share one engine state.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter limits request rates per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
