package engine

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// CreateAuction escrows the caller's asset and opens a time-boxed ascending
// auction ending at now + duration. The starting bid is recorded as the
// floor; there is no leading bidder until the first accepted bid.
func (e *Engine) CreateAuction(ctx context.Context, call domain.Call, assetRef common.Address, assetID, startingBid *big.Int, duration time.Duration) (domain.Auction, error) {
	if err := e.enter(); err != nil {
		return domain.Auction{}, err
	}
	defer e.leave()

	if err := e.pull(ctx, assetRef, assetID, call.Caller); err != nil {
		return domain.Auction{}, err
	}

	floor := new(big.Int)
	if startingBid != nil {
		floor.Set(startingBid)
	}

	a := &domain.Auction{
		AssetRef:   assetRef,
		AssetID:    new(big.Int).Set(assetID),
		Owner:      call.Caller,
		EndsAt:     e.now().Add(duration).UTC(),
		HighestBid: floor,
		Active:     true,
		CreatedAt:  e.now().UTC(),
	}

	e.mu.Lock()
	a.ID = e.nextAuction
	e.nextAuction++
	e.auctions[a.ID] = a
	e.mu.Unlock()

	endsAt := a.EndsAt
	e.emit(ctx, domain.Event{
		Kind:      domain.EventAuctionStarted,
		AuctionID: a.ID,
		AssetRef:  &assetRef,
		AssetID:   a.AssetID,
		Seller:    &a.Owner,
		Amount:    a.HighestBid,
		EndsAt:    &endsAt,
	})

	e.logger.InfoContext(ctx, "engine: auction started",
		slog.Uint64("auction_id", a.ID),
		slog.String("seller", a.Owner.Hex()),
		slog.String("starting_bid", a.HighestBid.String()),
		slog.Time("ends_at", a.EndsAt),
	)
	return a.Clone(), nil
}

// PlaceBid submits the attached value as a bid. Bids must strictly exceed
// the current highest bid; ties are rejected. An existing leading bidder is
// refunded their amount before the new bid is recorded, and a refund failure
// rejects the new bid with state unchanged. The push-refund protocol means a
// refusing previous bidder blocks all subsequent bids on the auction; that
// hazard is inherited behavior, kept until a pull-based withdrawal ledger
// replaces it.
func (e *Engine) PlaceBid(ctx context.Context, call domain.Call, auctionID uint64) (domain.Auction, error) {
	if err := e.enter(); err != nil {
		return domain.Auction{}, err
	}
	defer e.leave()

	a, ok := e.auctions[auctionID]
	if !ok {
		return domain.Auction{}, domain.ErrNotFound
	}
	if !a.Active {
		return domain.Auction{}, domain.ErrAuctionInactive
	}
	if !e.now().Before(a.EndsAt) {
		return domain.Auction{}, domain.ErrAuctionEnded
	}
	value := call.AttachedValue()
	if value.Cmp(a.HighestBid) <= 0 {
		return domain.Auction{}, domain.ErrBidTooLow
	}

	prevBidder := a.Bidder
	prevAmount := a.HighestBid
	if prevBidder != nil {
		if err := e.refund(ctx, *prevBidder, prevAmount); err != nil {
			return domain.Auction{}, err
		}
	}

	bidder := call.Caller
	e.mu.Lock()
	a.Bidder = &bidder
	a.HighestBid = new(big.Int).Set(value)
	e.mu.Unlock()

	e.emit(ctx, domain.Event{
		Kind:      domain.EventBidSubmitted,
		AuctionID: a.ID,
		Buyer:     &bidder,
		Amount:    a.HighestBid,
	})
	if prevBidder != nil {
		e.emit(ctx, domain.Event{
			Kind:      domain.EventBidReturned,
			AuctionID: a.ID,
			Buyer:     prevBidder,
			Amount:    prevAmount,
		})
	}

	e.logger.InfoContext(ctx, "engine: bid submitted",
		slog.Uint64("auction_id", a.ID),
		slog.String("bidder", bidder.Hex()),
		slog.String("amount", value.String()),
	)
	return a.Clone(), nil
}

// ConcludeAuction settles an ended auction. Only the auction's owner or the
// fee beneficiary may conclude, and only once. With a leading bidder the
// winning amount is split fee/proceeds exactly as a fixed-price sale and the
// asset goes to the winner; with no bids the asset returns to the owner and
// no funds move.
func (e *Engine) ConcludeAuction(ctx context.Context, call domain.Call, auctionID uint64) (domain.Auction, error) {
	if err := e.enter(); err != nil {
		return domain.Auction{}, err
	}
	defer e.leave()

	a, ok := e.auctions[auctionID]
	if !ok {
		return domain.Auction{}, domain.ErrNotFound
	}
	if a.Concluded {
		return domain.Auction{}, domain.ErrAlreadyConcluded
	}
	if e.now().Before(a.EndsAt) {
		return domain.Auction{}, domain.ErrAuctionOngoing
	}
	if call.Caller != a.Owner && call.Caller != e.beneficiary {
		return domain.Auction{}, domain.ErrNotAuthorized
	}

	var fee, proceeds *big.Int
	if a.Bidder != nil {
		fee, proceeds = feeSplit(a.HighestBid, e.feeBps)
		if err := e.settle(ctx, fee, proceeds, a.Owner); err != nil {
			return domain.Auction{}, err
		}
		if err := e.release(ctx, a.AssetRef, a.AssetID, *a.Bidder); err != nil {
			return domain.Auction{}, err
		}
	} else {
		if err := e.release(ctx, a.AssetRef, a.AssetID, a.Owner); err != nil {
			return domain.Auction{}, err
		}
	}

	e.mu.Lock()
	a.Concluded = true
	a.Active = false
	e.mu.Unlock()

	ev := domain.Event{
		Kind:      domain.EventAuctionConcluded,
		AuctionID: a.ID,
		AssetRef:  &a.AssetRef,
		AssetID:   a.AssetID,
		Seller:    &a.Owner,
	}
	if a.Bidder != nil {
		ev.Buyer = a.Bidder
		ev.Amount = a.HighestBid
		ev.Fee = fee
		ev.Proceeds = proceeds
	}
	e.emit(ctx, ev)

	e.logger.InfoContext(ctx, "engine: auction concluded",
		slog.Uint64("auction_id", a.ID),
		slog.Bool("had_bids", a.Bidder != nil),
		slog.String("winning_bid", a.HighestBid.String()),
	)
	return a.Clone(), nil
}

// CancelAuction withdraws an auction before any bid has been accepted. A
// single accepted bid makes the auction non-cancellable, protecting the
// bidder's expectation. Only the original owner may cancel.
func (e *Engine) CancelAuction(ctx context.Context, call domain.Call, auctionID uint64) (domain.Auction, error) {
	if err := e.enter(); err != nil {
		return domain.Auction{}, err
	}
	defer e.leave()

	a, ok := e.auctions[auctionID]
	if !ok {
		return domain.Auction{}, domain.ErrNotFound
	}
	if !a.Active {
		return domain.Auction{}, domain.ErrAuctionInactive
	}
	if call.Caller != a.Owner {
		return domain.Auction{}, domain.ErrNotAuthorized
	}
	if a.Bidder != nil {
		return domain.Auction{}, domain.ErrBidAlreadyExists
	}

	if err := e.release(ctx, a.AssetRef, a.AssetID, a.Owner); err != nil {
		return domain.Auction{}, err
	}

	e.mu.Lock()
	a.Active = false
	a.Concluded = true
	e.mu.Unlock()

	e.emit(ctx, domain.Event{
		Kind:      domain.EventAuctionCancelled,
		AuctionID: a.ID,
		AssetRef:  &a.AssetRef,
		AssetID:   a.AssetID,
		Seller:    &a.Owner,
	})

	e.logger.InfoContext(ctx, "engine: auction cancelled",
		slog.Uint64("auction_id", a.ID),
		slog.String("owner", a.Owner.Hex()),
	)
	return a.Clone(), nil
}
