package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/engine"
)

// mutateLockKey is the distributed lock key shared by all mutating market
// operations. One key per deployment: the engine state is a single machine.
const mutateLockKey = "market:mutate"

// mutateLockTTL bounds how long a crashed replica can hold the lock.
const mutateLockTTL = 30 * time.Second

// restorePageSize is the page size used when rebuilding engine state from the
// record stores at startup.
const restorePageSize = 500

// MarketService fronts the marketplace engine. It serializes mutating calls
// so that concurrent API requests queue instead of tripping the engine's
// reentrancy guard, applies per-caller rate limits, and serves paginated
// reads from the record stores.
type MarketService struct {
	engine    *engine.Engine
	items     domain.ItemStore
	auctions  domain.AuctionStore
	events    domain.EventStore
	fees      domain.FeeStore
	locks     domain.LockManager
	limiter   domain.RateLimiter
	inspector domain.AssetInspector
	logger    *slog.Logger

	// custodian is the escrow address assets are audited against.
	custodian common.Address

	// mu queues mutating calls within this process. The engine's own guard
	// rejects overlap rather than waiting, so the queueing lives here.
	mu sync.Mutex

	// rate limit applied per caller address on mutating operations.
	rateLimit  int
	rateWindow time.Duration
}

// MarketServiceDeps bundles the service's collaborators. Locks, Limiter,
// and Inspector are optional: without Locks the service assumes a single
// replica, without Limiter mutating calls are not rate limited, without
// Inspector custody audits are unavailable.
type MarketServiceDeps struct {
	Engine    *engine.Engine
	Items     domain.ItemStore
	Auctions  domain.AuctionStore
	Events    domain.EventStore
	Fees      domain.FeeStore
	Locks     domain.LockManager
	Limiter   domain.RateLimiter
	Inspector domain.AssetInspector

	// Custodian is the escrow address audits compare registry holders to.
	Custodian common.Address

	RateLimit  int
	RateWindow time.Duration
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(deps MarketServiceDeps, logger *slog.Logger) *MarketService {
	return &MarketService{
		engine:     deps.Engine,
		items:      deps.Items,
		auctions:   deps.Auctions,
		events:     deps.Events,
		fees:       deps.Fees,
		locks:      deps.Locks,
		limiter:    deps.Limiter,
		inspector:  deps.Inspector,
		custodian:  deps.Custodian,
		logger:     logger.With(slog.String("component", "market_service")),
		rateLimit:  deps.RateLimit,
		rateWindow: deps.RateWindow,
	}
}

// Restore rebuilds the engine's in-memory state from the record stores.
// Called once at startup, before the HTTP server starts accepting requests.
func (s *MarketService) Restore(ctx context.Context) error {
	items, err := s.loadItems(ctx)
	if err != nil {
		return fmt.Errorf("market_service: restore items: %w", err)
	}

	auctions, err := s.loadAuctions(ctx)
	if err != nil {
		return fmt.Errorf("market_service: restore auctions: %w", err)
	}

	policy := s.engine.FeePolicy()
	if persisted, err := s.fees.Get(ctx); err == nil {
		policy = persisted
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("market_service: restore fee policy: %w", err)
	}

	if err := s.engine.Restore(items, auctions, policy); err != nil {
		return fmt.Errorf("market_service: restore engine: %w", err)
	}
	return nil
}

func (s *MarketService) loadItems(ctx context.Context) ([]domain.Item, error) {
	var all []domain.Item
	for offset := 0; ; offset += restorePageSize {
		page, err := s.items.List(ctx, domain.ListOpts{Limit: restorePageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < restorePageSize {
			return all, nil
		}
	}
}

func (s *MarketService) loadAuctions(ctx context.Context) ([]domain.Auction, error) {
	var all []domain.Auction
	for offset := 0; ; offset += restorePageSize {
		page, err := s.auctions.List(ctx, domain.ListOpts{Limit: restorePageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < restorePageSize {
			return all, nil
		}
	}
}

// mutate wraps a mutating engine call: rate limit by caller, queue behind
// the in-process mutex, then take the cross-replica lock if one is
// configured. ErrLockHeld from another replica surfaces to the caller as a
// retryable conflict.
func (s *MarketService) mutate(ctx context.Context, caller common.Address, fn func() error) error {
	if s.limiter != nil && s.rateLimit > 0 {
		allowed, err := s.limiter.Allow(ctx, "mutate:"+caller.Hex(), s.rateLimit, s.rateWindow)
		if err != nil {
			s.logger.WarnContext(ctx, "market_service: rate limiter unavailable",
				slog.String("error", err.Error()),
			)
			// Fail open: a broken limiter should not halt the market.
		} else if !allowed {
			return domain.ErrRateLimited
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, mutateLockKey, mutateLockTTL)
		if err != nil {
			return err
		}
		defer unlock()
	}

	return fn()
}

// ListItem escrows an asset and opens a fixed-price listing.
func (s *MarketService) ListItem(ctx context.Context, caller common.Address, assetRef common.Address, assetID, price *big.Int) (domain.Item, error) {
	var item domain.Item
	err := s.mutate(ctx, caller, func() error {
		var err error
		item, err = s.engine.ListItem(ctx, domain.Call{Caller: caller}, assetRef, assetID, price)
		return err
	})
	return item, err
}

// BuyItem settles a fixed-price sale. Value must equal the listed price.
func (s *MarketService) BuyItem(ctx context.Context, caller common.Address, value *big.Int, itemID uint64) (domain.Item, error) {
	var item domain.Item
	err := s.mutate(ctx, caller, func() error {
		var err error
		item, err = s.engine.BuyItem(ctx, domain.Call{Caller: caller, Value: value}, itemID)
		return err
	})
	return item, err
}

// CancelListing delists an unsold item and returns the asset to its owner.
func (s *MarketService) CancelListing(ctx context.Context, caller common.Address, itemID uint64) (domain.Item, error) {
	var item domain.Item
	err := s.mutate(ctx, caller, func() error {
		var err error
		item, err = s.engine.CancelListing(ctx, domain.Call{Caller: caller}, itemID)
		return err
	})
	return item, err
}

// CreateAuction escrows an asset and opens a time-boxed ascending auction.
func (s *MarketService) CreateAuction(ctx context.Context, caller common.Address, assetRef common.Address, assetID, startingBid *big.Int, duration time.Duration) (domain.Auction, error) {
	var a domain.Auction
	err := s.mutate(ctx, caller, func() error {
		var err error
		a, err = s.engine.CreateAuction(ctx, domain.Call{Caller: caller}, assetRef, assetID, startingBid, duration)
		return err
	})
	return a, err
}

// PlaceBid submits a bid; the previous leader, if any, is refunded first.
func (s *MarketService) PlaceBid(ctx context.Context, caller common.Address, value *big.Int, auctionID uint64) (domain.Auction, error) {
	var a domain.Auction
	err := s.mutate(ctx, caller, func() error {
		var err error
		a, err = s.engine.PlaceBid(ctx, domain.Call{Caller: caller, Value: value}, auctionID)
		return err
	})
	return a, err
}

// ConcludeAuction settles an ended auction.
func (s *MarketService) ConcludeAuction(ctx context.Context, caller common.Address, auctionID uint64) (domain.Auction, error) {
	var a domain.Auction
	err := s.mutate(ctx, caller, func() error {
		var err error
		a, err = s.engine.ConcludeAuction(ctx, domain.Call{Caller: caller}, auctionID)
		return err
	})
	return a, err
}

// CancelAuction withdraws a bidless auction before its end time.
func (s *MarketService) CancelAuction(ctx context.Context, caller common.Address, auctionID uint64) (domain.Auction, error) {
	var a domain.Auction
	err := s.mutate(ctx, caller, func() error {
		var err error
		a, err = s.engine.CancelAuction(ctx, domain.Call{Caller: caller}, auctionID)
		return err
	})
	return a, err
}

// SetFee changes the platform fee rate. Beneficiary only.
func (s *MarketService) SetFee(ctx context.Context, caller common.Address, newBps uint64) error {
	return s.mutate(ctx, caller, func() error {
		return s.engine.SetFee(ctx, domain.Call{Caller: caller}, newBps)
	})
}

// GetItem returns one item from the live engine state.
func (s *MarketService) GetItem(ctx context.Context, id uint64) (domain.Item, error) {
	item, err := s.engine.Item(id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("market_service: get item %d: %w", id, err)
	}
	return item, nil
}

// VerifyCustody audits one escrowed item against the asset registry. It
// reads the registry's current holder and reports whether that holder is the
// custodian. Sold and cancelled items are no longer escrowed, so auditing
// them returns ErrAlreadySold.
func (s *MarketService) VerifyCustody(ctx context.Context, itemID uint64) (domain.CustodyReport, error) {
	if s.inspector == nil {
		return domain.CustodyReport{}, fmt.Errorf("market_service: custody audit %d: no registry inspector configured", itemID)
	}

	item, err := s.engine.Item(itemID)
	if err != nil {
		return domain.CustodyReport{}, fmt.Errorf("market_service: custody audit %d: %w", itemID, err)
	}
	if item.Sold {
		return domain.CustodyReport{}, fmt.Errorf("market_service: custody audit %d: %w", itemID, domain.ErrAlreadySold)
	}

	holder, err := s.inspector.OwnerOf(ctx, item.AssetRef, item.AssetID)
	if err != nil {
		return domain.CustodyReport{}, fmt.Errorf("market_service: custody audit %d: %w", itemID, err)
	}

	report := domain.CustodyReport{
		ItemID:   item.ID,
		AssetRef: item.AssetRef,
		AssetID:  item.AssetID,
		Holder:   holder,
		Held:     holder == s.custodian,
	}
	if !report.Held {
		s.logger.WarnContext(ctx, "custody audit mismatch",
			slog.Uint64("item_id", item.ID),
			slog.String("holder", holder.Hex()),
			slog.String("custodian", s.custodian.Hex()),
		)
	}
	return report, nil
}

// ListItems returns a page of item records from the persistent store.
func (s *MarketService) ListItems(ctx context.Context, opts domain.ListOpts) ([]domain.Item, error) {
	items, err := s.items.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list items: %w", err)
	}
	return items, nil
}

// ListItemsByOwner returns a page of one owner's item records.
func (s *MarketService) ListItemsByOwner(ctx context.Context, owner common.Address, opts domain.ListOpts) ([]domain.Item, error) {
	items, err := s.items.ListByOwner(ctx, owner, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list items by owner: %w", err)
	}
	return items, nil
}

// GetAuction returns one auction from the live engine state.
func (s *MarketService) GetAuction(ctx context.Context, id uint64) (domain.Auction, error) {
	a, err := s.engine.Auction(id)
	if err != nil {
		return domain.Auction{}, fmt.Errorf("market_service: get auction %d: %w", id, err)
	}
	return a, nil
}

// ListAuctions returns a page of auction records from the persistent store.
func (s *MarketService) ListAuctions(ctx context.Context, opts domain.ListOpts) ([]domain.Auction, error) {
	auctions, err := s.auctions.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list auctions: %w", err)
	}
	return auctions, nil
}

// FeePolicy returns the current fee rate and beneficiary.
func (s *MarketService) FeePolicy(ctx context.Context) domain.FeePolicy {
	return s.engine.FeePolicy()
}

// Events returns journal entries after the given sequence number.
func (s *MarketService) Events(ctx context.Context, sinceSeq int64, limit int) ([]domain.Event, error) {
	events, err := s.events.ListSince(ctx, sinceSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("market_service: list events: %w", err)
	}
	return events, nil
}

// LastEventSeq returns the tail position of the journal.
func (s *MarketService) LastEventSeq(ctx context.Context) (int64, error) {
	seq, err := s.events.LastSeq(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: last event seq: %w", err)
	}
	return seq, nil
}

// Counts returns record totals for the status endpoint.
func (s *MarketService) Counts(ctx context.Context) (items, auctions int64, err error) {
	items, err = s.items.Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("market_service: count items: %w", err)
	}
	auctions, err = s.auctions.Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("market_service: count auctions: %w", err)
	}
	return items, auctions, nil
}
