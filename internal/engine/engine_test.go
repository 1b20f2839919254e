package engine_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/engine"
)

var (
	custodian   = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	beneficiary = common.HexToAddress("0x00000000000000000000000000000000000000fe")
	seller      = common.HexToAddress("0x0000000000000000000000000000000000000001")
	buyer       = common.HexToAddress("0x0000000000000000000000000000000000000002")
	bidder1     = common.HexToAddress("0x0000000000000000000000000000000000000003")
	bidder2     = common.HexToAddress("0x0000000000000000000000000000000000000004")
	nftContract = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

// assetMove records one registry transfer.
type assetMove struct {
	assetRef common.Address
	assetID  *big.Int
	from, to common.Address
}

// fakeRegistry is an in-memory asset registry double. Holders are tracked
// per asset so escrow custody can be asserted; rejectFrom simulates missing
// authorization, and onTransfer lets tests inject reentrant callbacks.
type fakeRegistry struct {
	mu         sync.Mutex
	holders    map[string]common.Address
	moves      []assetMove
	rejectFrom map[common.Address]bool
	onTransfer func()
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		holders:    make(map[string]common.Address),
		rejectFrom: make(map[common.Address]bool),
	}
}

func assetKey(ref common.Address, id *big.Int) string {
	return ref.Hex() + "/" + id.String()
}

func (r *fakeRegistry) Transfer(_ context.Context, assetRef common.Address, assetID *big.Int, from, to common.Address) error {
	r.mu.Lock()
	reject := r.rejectFrom[from]
	cb := r.onTransfer
	if !reject {
		r.holders[assetKey(assetRef, assetID)] = to
		r.moves = append(r.moves, assetMove{assetRef, new(big.Int).Set(assetID), from, to})
	}
	r.mu.Unlock()

	if reject {
		return errors.New("transfer caller is not owner nor approved")
	}
	if cb != nil {
		cb()
	}
	return nil
}

func (r *fakeRegistry) holder(ref common.Address, id *big.Int) common.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holders[assetKey(ref, id)]
}

// fakeLedger is a value ledger double. Balances accumulate per recipient;
// refuse marks recipients that reject payouts, failing the whole batch.
type fakeLedger struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	refuse   map[common.Address]bool
	batches  [][]domain.Payout
	onPayout func()
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[common.Address]*big.Int),
		refuse:   make(map[common.Address]bool),
	}
}

func (l *fakeLedger) Distribute(_ context.Context, payouts ...domain.Payout) error {
	l.mu.Lock()
	for _, p := range payouts {
		if l.refuse[p.To] {
			l.mu.Unlock()
			return errors.New("recipient refused transfer")
		}
	}
	batch := make([]domain.Payout, len(payouts))
	copy(batch, payouts)
	l.batches = append(l.batches, batch)
	for _, p := range payouts {
		bal, ok := l.balances[p.To]
		if !ok {
			bal = new(big.Int)
			l.balances[p.To] = bal
		}
		bal.Add(bal, p.Amount)
	}
	cb := l.onPayout
	l.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

func (l *fakeLedger) balance(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(bal)
}

// recordSink collects emitted events in order.
type recordSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordSink) Emit(_ context.Context, ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordSink) kinds() []domain.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventKind, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind
	}
	return out
}

// fakeClock is a controllable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	eng      *engine.Engine
	registry *fakeRegistry
	ledger   *fakeLedger
	sink     *recordSink
	clock    *fakeClock
}

func newFixture(t *testing.T, feeBps uint64) *fixture {
	t.Helper()
	f := &fixture{
		registry: newFakeRegistry(),
		ledger:   newFakeLedger(),
		sink:     &recordSink{},
		clock:    &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.eng = engine.New(
		engine.Config{FeeBps: feeBps, Beneficiary: beneficiary, Custodian: custodian},
		f.registry, f.ledger,
		engine.WithClock(f.clock.Now),
		engine.WithSink(f.sink),
	)
	return f
}

func call(caller common.Address, value int64) domain.Call {
	return domain.Call{Caller: caller, Value: big.NewInt(value)}
}

func (f *fixture) list(t *testing.T, price int64) domain.Item {
	t.Helper()
	item, err := f.eng.ListItem(context.Background(), call(seller, 0), nftContract, big.NewInt(7), big.NewInt(price))
	require.NoError(t, err)
	return item
}

func (f *fixture) auction(t *testing.T, floor int64, d time.Duration) domain.Auction {
	t.Helper()
	a, err := f.eng.CreateAuction(context.Background(), call(seller, 0), nftContract, big.NewInt(9), big.NewInt(floor), d)
	require.NoError(t, err)
	return a
}

func TestListItem(t *testing.T) {
	ctx := context.Background()

	t.Run("escrows asset and assigns monotonic ids", func(t *testing.T) {
		f := newFixture(t, 250)
		first := f.list(t, 1000)
		second, err := f.eng.ListItem(ctx, call(seller, 0), nftContract, big.NewInt(8), big.NewInt(500))
		require.NoError(t, err)

		assert.Equal(t, uint64(1), first.ID)
		assert.Equal(t, uint64(2), second.ID)
		assert.False(t, first.Sold)
		assert.Equal(t, custodian, f.registry.holder(nftContract, big.NewInt(7)))
		assert.Equal(t, []domain.EventKind{domain.EventListed, domain.EventListed}, f.sink.kinds())
		// No funds move on listing.
		assert.Empty(t, f.ledger.batches)
	})

	t.Run("rejects non-positive price before touching the registry", func(t *testing.T) {
		f := newFixture(t, 250)
		_, err := f.eng.ListItem(ctx, call(seller, 0), nftContract, big.NewInt(7), big.NewInt(0))
		require.ErrorIs(t, err, domain.ErrInvalidPrice)
		_, err = f.eng.ListItem(ctx, call(seller, 0), nftContract, big.NewInt(7), nil)
		require.ErrorIs(t, err, domain.ErrInvalidPrice)
		assert.Empty(t, f.registry.moves)
		assert.Empty(t, f.eng.Items())
	})

	t.Run("registry rejection fails the whole call", func(t *testing.T) {
		f := newFixture(t, 250)
		f.registry.rejectFrom[seller] = true
		_, err := f.eng.ListItem(ctx, call(seller, 0), nftContract, big.NewInt(7), big.NewInt(1000))
		require.ErrorIs(t, err, domain.ErrAssetRejected)
		assert.Empty(t, f.eng.Items())
		assert.Empty(t, f.sink.events)
	})
}

func TestBuyItem(t *testing.T) {
	ctx := context.Background()

	t.Run("exact payment splits fee and releases asset", func(t *testing.T) {
		f := newFixture(t, 250)
		item := f.list(t, 1000)

		bought, err := f.eng.BuyItem(ctx, call(buyer, 1000), item.ID)
		require.NoError(t, err)
		assert.True(t, bought.Sold)

		// price 1000 at 250 bps: fee 25, proceeds 975.
		assert.Equal(t, big.NewInt(25), f.ledger.balance(beneficiary))
		assert.Equal(t, big.NewInt(975), f.ledger.balance(seller))
		assert.Equal(t, buyer, f.registry.holder(nftContract, big.NewInt(7)))

		// Fee and proceeds settle in one batch.
		require.Len(t, f.ledger.batches, 1)
		assert.Len(t, f.ledger.batches[0], 2)
	})

	t.Run("value must equal asking price exactly", func(t *testing.T) {
		f := newFixture(t, 250)
		item := f.list(t, 1000)

		for _, value := range []int64{0, 999, 1001} {
			_, err := f.eng.BuyItem(ctx, call(buyer, value), item.ID)
			require.ErrorIs(t, err, domain.ErrInvalidValue, "value %d", value)
		}
		got, err := f.eng.Item(item.ID)
		require.NoError(t, err)
		assert.False(t, got.Sold)
		assert.Empty(t, f.ledger.batches)
	})

	t.Run("an item is acted on at most once", func(t *testing.T) {
		f := newFixture(t, 250)
		item := f.list(t, 1000)
		_, err := f.eng.BuyItem(ctx, call(buyer, 1000), item.ID)
		require.NoError(t, err)

		_, err = f.eng.BuyItem(ctx, call(buyer, 1000), item.ID)
		require.ErrorIs(t, err, domain.ErrAlreadySold)
		_, err = f.eng.CancelListing(ctx, call(seller, 0), item.ID)
		require.ErrorIs(t, err, domain.ErrAlreadySold)

		// The asset left custody exactly once.
		releases := 0
		for _, m := range f.registry.moves {
			if m.from == custodian {
				releases++
			}
		}
		assert.Equal(t, 1, releases)
	})

	t.Run("unknown item", func(t *testing.T) {
		f := newFixture(t, 250)
		_, err := f.eng.BuyItem(ctx, call(buyer, 1000), 42)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("refused payout aborts with no state change", func(t *testing.T) {
		f := newFixture(t, 250)
		item := f.list(t, 1000)
		f.ledger.refuse[seller] = true

		_, err := f.eng.BuyItem(ctx, call(buyer, 1000), item.ID)
		require.ErrorIs(t, err, domain.ErrPayoutFailed)

		got, err := f.eng.Item(item.ID)
		require.NoError(t, err)
		assert.False(t, got.Sold)
		assert.Equal(t, custodian, f.registry.holder(nftContract, big.NewInt(7)))
	})

	t.Run("zero fee rate settles full value to seller", func(t *testing.T) {
		f := newFixture(t, 0)
		item := f.list(t, 1000)
		_, err := f.eng.BuyItem(ctx, call(buyer, 1000), item.ID)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(1000), f.ledger.balance(seller))
		assert.Equal(t, big.NewInt(0), f.ledger.balance(beneficiary))
	})
}

func TestCancelListing(t *testing.T) {
	ctx := context.Background()

	t.Run("owner reclaims escrowed asset", func(t *testing.T) {
		f := newFixture(t, 250)
		item := f.list(t, 1000)

		cancelled, err := f.eng.CancelListing(ctx, call(seller, 0), item.ID)
		require.NoError(t, err)
		assert.True(t, cancelled.Sold) // terminal flag shared with purchase
		assert.Equal(t, seller, f.registry.holder(nftContract, big.NewInt(7)))
		assert.Equal(t, []domain.EventKind{domain.EventListed, domain.EventSaleCancelled}, f.sink.kinds())

		_, err = f.eng.BuyItem(ctx, call(buyer, 1000), item.ID)
		require.ErrorIs(t, err, domain.ErrAlreadySold)
	})

	t.Run("only the recorded owner may cancel", func(t *testing.T) {
		f := newFixture(t, 250)
		item := f.list(t, 1000)
		_, err := f.eng.CancelListing(ctx, call(buyer, 0), item.ID)
		require.ErrorIs(t, err, domain.ErrNotItemOwner)
	})
}

func TestFeeSplitExactness(t *testing.T) {
	f := newFixture(t, 250)
	ctx := context.Background()

	prices := []int64{1, 3, 39, 1000, 12345, 1_000_000_007}
	for i, price := range prices {
		assetID := big.NewInt(int64(100 + i))
		item, err := f.eng.ListItem(ctx, call(seller, 0), nftContract, assetID, big.NewInt(price))
		require.NoError(t, err)
		_, err = f.eng.BuyItem(ctx, call(buyer, price), item.ID)
		require.NoError(t, err)
	}

	// Floor division: fee + proceeds must always sum to the sale amount.
	var total int64
	for _, p := range prices {
		total += p
	}
	sum := new(big.Int).Add(f.ledger.balance(beneficiary), f.ledger.balance(seller))
	assert.Equal(t, big.NewInt(total), sum)
}

func TestPlaceBid(t *testing.T) {
	ctx := context.Background()

	t.Run("bids strictly increase and refund the previous leader", func(t *testing.T) {
		f := newFixture(t, 250)
		a := f.auction(t, 100, time.Hour)

		// A bid at the floor is a tie with the recorded starting bid: rejected.
		_, err := f.eng.PlaceBid(ctx, call(bidder1, 100), a.ID)
		require.ErrorIs(t, err, domain.ErrBidTooLow)

		// First bid above the floor: accepted, nothing to refund.
		got, err := f.eng.PlaceBid(ctx, call(bidder1, 150), a.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Bidder)
		assert.Equal(t, bidder1, *got.Bidder)
		assert.Equal(t, big.NewInt(0), f.ledger.balance(bidder1))

		// Higher bid refunds exactly the previous amount.
		got, err = f.eng.PlaceBid(ctx, call(bidder2, 200), a.ID)
		require.NoError(t, err)
		assert.Equal(t, bidder2, *got.Bidder)
		assert.Equal(t, big.NewInt(150), f.ledger.balance(bidder1))

		// Ties are rejected.
		_, err = f.eng.PlaceBid(ctx, call(bidder1, 200), a.ID)
		require.ErrorIs(t, err, domain.ErrBidTooLow)

		assert.Equal(t, []domain.EventKind{
			domain.EventAuctionStarted,
			domain.EventBidSubmitted,
			domain.EventBidSubmitted,
			domain.EventBidReturned,
		}, f.sink.kinds())
	})

	t.Run("refund failure rejects the new bid", func(t *testing.T) {
		f := newFixture(t, 250)
		a := f.auction(t, 100, time.Hour)
		_, err := f.eng.PlaceBid(ctx, call(bidder1, 150), a.ID)
		require.NoError(t, err)

		f.ledger.refuse[bidder1] = true
		_, err = f.eng.PlaceBid(ctx, call(bidder2, 200), a.ID)
		require.ErrorIs(t, err, domain.ErrRefundFailed)

		got, err := f.eng.Auction(a.ID)
		require.NoError(t, err)
		assert.Equal(t, bidder1, *got.Bidder)
		assert.Equal(t, big.NewInt(150), got.HighestBid)
	})

	t.Run("no bids after end time", func(t *testing.T) {
		f := newFixture(t, 250)
		a := f.auction(t, 100, time.Hour)
		f.clock.Advance(time.Hour)
		_, err := f.eng.PlaceBid(ctx, call(bidder1, 150), a.ID)
		require.ErrorIs(t, err, domain.ErrAuctionEnded)
	})
}

func TestConcludeAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("before end time always fails", func(t *testing.T) {
		f := newFixture(t, 250)
		a := f.auction(t, 100, time.Hour)
		_, err := f.eng.ConcludeAuction(ctx, call(seller, 0), a.ID)
		require.ErrorIs(t, err, domain.ErrAuctionOngoing)
	})

	t.Run("settles the winning bid and transfers custody", func(t *testing.T) {
		f := newFixture(t, 250)
		a := f.auction(t, 100, time.Hour)
		_, err := f.eng.PlaceBid(ctx, call(bidder1, 200), a.ID)
		require.NoError(t, err)
		f.clock.Advance(time.Hour)

		_, err = f.eng.ConcludeAuction(ctx, call(bidder1, 0), a.ID)
		require.ErrorIs(t, err, domain.ErrNotAuthorized)

		got, err := f.eng.ConcludeAuction(ctx, call(seller, 0), a.ID)
		require.NoError(t, err)
		assert.True(t, got.Concluded)
		assert.False(t, got.Active)

		// winning bid 200 at 250 bps: fee 5, proceeds 195.
		assert.Equal(t, big.NewInt(5), f.ledger.balance(beneficiary))
		assert.Equal(t, big.NewInt(195), f.ledger.balance(seller))
		assert.Equal(t, bidder1, f.registry.holder(nftContract, big.NewInt(9)))

		_, err = f.eng.ConcludeAuction(ctx, call(seller, 0), a.ID)
		require.ErrorIs(t, err, domain.ErrAlreadyConcluded)
	})

	t.Run("beneficiary may conclude", func(t *testing.T) {
		f := newFixture(t, 250)
		a := f.auction(t, 100, time.Hour)
		f.clock.Advance(2 * time.Hour)
		_, err := f.eng.ConcludeAuction(ctx, call(beneficiary, 0), a.ID)
		require.NoError(t, err)
	})

	t.Run("zero bids returns asset to owner with no funds moved", func(t *testing.T) {
		f := newFixture(t, 250)
		a := f.auction(t, 100, time.Hour)
		f.clock.Advance(time.Hour)

		got, err := f.eng.ConcludeAuction(ctx, call(seller, 0), a.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Bidder)
		assert.Equal(t, seller, f.registry.holder(nftContract, big.NewInt(9)))
		assert.Empty(t, f.ledger.batches)

		// Concluded event carries no winner when there were no bids.
		last := f.sink.events[len(f.sink.events)-1]
		assert.Equal(t, domain.EventAuctionConcluded, last.Kind)
		assert.Nil(t, last.Buyer)
	})
}

func TestCancelAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("only before any bid", func(t *testing.T) {
		f := newFixture(t, 250)
		a := f.auction(t, 100, time.Hour)
		_, err := f.eng.PlaceBid(ctx, call(bidder1, 150), a.ID)
		require.NoError(t, err)

		_, err = f.eng.CancelAuction(ctx, call(seller, 0), a.ID)
		require.ErrorIs(t, err, domain.ErrBidAlreadyExists)
	})

	t.Run("zero-bid cancel releases the asset and is terminal", func(t *testing.T) {
		f := newFixture(t, 250)
		a := f.auction(t, 100, time.Hour)

		_, err := f.eng.CancelAuction(ctx, call(bidder1, 0), a.ID)
		require.ErrorIs(t, err, domain.ErrNotAuthorized)

		got, err := f.eng.CancelAuction(ctx, call(seller, 0), a.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
		assert.True(t, got.Concluded)
		assert.Equal(t, seller, f.registry.holder(nftContract, big.NewInt(9)))

		_, err = f.eng.PlaceBid(ctx, call(bidder1, 150), a.ID)
		require.ErrorIs(t, err, domain.ErrAuctionInactive)
		_, err = f.eng.CancelAuction(ctx, call(seller, 0), a.ID)
		require.ErrorIs(t, err, domain.ErrAuctionInactive)
	})
}

func TestSetFee(t *testing.T) {
	ctx := context.Background()

	t.Run("only the beneficiary, only within bounds", func(t *testing.T) {
		f := newFixture(t, 250)
		err := f.eng.SetFee(ctx, call(seller, 0), 500)
		require.ErrorIs(t, err, domain.ErrNotAuthorized)

		err = f.eng.SetFee(ctx, call(beneficiary, 0), 10_001)
		require.ErrorIs(t, err, domain.ErrInvalidFee)

		require.NoError(t, f.eng.SetFee(ctx, call(beneficiary, 0), 500))
		assert.Equal(t, uint64(500), f.eng.FeePolicy().RateBps)

		require.Len(t, f.sink.events, 1)
		assert.Equal(t, uint64(250), f.sink.events[0].OldFeeBps)
		assert.Equal(t, uint64(500), f.sink.events[0].NewFeeBps)
	})

	t.Run("applies only to later settlements", func(t *testing.T) {
		f := newFixture(t, 250)
		first := f.list(t, 1000)
		_, err := f.eng.BuyItem(ctx, call(buyer, 1000), first.ID)
		require.NoError(t, err)
		require.NoError(t, f.eng.SetFee(ctx, call(beneficiary, 0), 500))

		second, err := f.eng.ListItem(ctx, call(seller, 0), nftContract, big.NewInt(8), big.NewInt(1000))
		require.NoError(t, err)
		_, err = f.eng.BuyItem(ctx, call(buyer, 1000), second.ID)
		require.NoError(t, err)

		// 25 at the old rate, 50 at the new.
		assert.Equal(t, big.NewInt(75), f.ledger.balance(beneficiary))
	})
}

func TestReentrancyGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("registry callback cannot re-enter", func(t *testing.T) {
		f := newFixture(t, 250)
		item := f.list(t, 1000)

		var nested error
		probed := false
		f.registry.onTransfer = func() {
			if probed {
				return
			}
			probed = true
			_, nested = f.eng.BuyItem(ctx, call(buyer, 1000), item.ID)
		}

		_, err := f.eng.BuyItem(ctx, call(buyer, 1000), item.ID)
		require.NoError(t, err)
		require.ErrorIs(t, nested, domain.ErrReentrantCall)

		// The outer call settled exactly once.
		assert.Equal(t, big.NewInt(975), f.ledger.balance(seller))
	})

	t.Run("ledger callback cannot re-enter", func(t *testing.T) {
		f := newFixture(t, 250)
		a := f.auction(t, 100, time.Hour)
		_, err := f.eng.PlaceBid(ctx, call(bidder1, 200), a.ID)
		require.NoError(t, err)
		f.clock.Advance(time.Hour)

		var nested error
		f.ledger.onPayout = func() {
			_, nested = f.eng.ConcludeAuction(ctx, call(seller, 0), a.ID)
		}
		_, err = f.eng.ConcludeAuction(ctx, call(seller, 0), a.ID)
		require.NoError(t, err)
		require.ErrorIs(t, nested, domain.ErrReentrantCall)

		// Custody was relinquished exactly once.
		releases := 0
		for _, m := range f.registry.moves {
			if m.from == custodian {
				releases++
			}
		}
		assert.Equal(t, 1, releases)
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 250)

	sold := f.list(t, 1000)
	_, err := f.eng.BuyItem(ctx, call(buyer, 1000), sold.ID)
	require.NoError(t, err)
	open, err := f.eng.ListItem(ctx, call(seller, 0), nftContract, big.NewInt(8), big.NewInt(2000))
	require.NoError(t, err)
	a := f.auction(t, 100, time.Hour)
	_, err = f.eng.PlaceBid(ctx, call(bidder1, 150), a.ID)
	require.NoError(t, err)
	require.NoError(t, f.eng.SetFee(ctx, call(beneficiary, 0), 500))

	// Rebuild a fresh engine over the same collaborators from snapshots.
	restored := engine.New(
		engine.Config{Custodian: custodian},
		f.registry, f.ledger,
		engine.WithClock(f.clock.Now),
	)
	require.NoError(t, restored.Restore(f.eng.Items(), f.eng.Auctions(), f.eng.FeePolicy()))

	assert.Equal(t, uint64(500), restored.FeePolicy().RateBps)
	assert.Equal(t, beneficiary, restored.FeePolicy().Beneficiary)

	got, err := restored.Item(sold.ID)
	require.NoError(t, err)
	assert.True(t, got.Sold)

	ra, err := restored.Auction(a.ID)
	require.NoError(t, err)
	require.NotNil(t, ra.Bidder)
	assert.Equal(t, bidder1, *ra.Bidder)

	// Counters resume past restored IDs: new records never reuse one.
	next, err := restored.ListItem(ctx, call(seller, 0), nftContract, big.NewInt(11), big.NewInt(300))
	require.NoError(t, err)
	assert.Equal(t, open.ID+1, next.ID)

	// Restored state behaves identically: the open item still sells.
	_, err = restored.BuyItem(ctx, call(buyer, 2000), open.ID)
	require.NoError(t, err)
}
