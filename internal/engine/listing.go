package engine

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// ListItem escrows the caller's asset and creates a fixed-price listing.
// The asking price must be greater than zero; no funds move. The registry
// pull fails the whole call when the caller is not the asset's authorized
// owner.
func (e *Engine) ListItem(ctx context.Context, call domain.Call, assetRef common.Address, assetID, price *big.Int) (domain.Item, error) {
	if err := e.enter(); err != nil {
		return domain.Item{}, err
	}
	defer e.leave()

	if price == nil || price.Sign() <= 0 {
		return domain.Item{}, domain.ErrInvalidPrice
	}

	if err := e.pull(ctx, assetRef, assetID, call.Caller); err != nil {
		return domain.Item{}, err
	}

	item := &domain.Item{
		AssetRef:  assetRef,
		AssetID:   new(big.Int).Set(assetID),
		Owner:     call.Caller,
		Price:     new(big.Int).Set(price),
		CreatedAt: e.now().UTC(),
	}

	e.mu.Lock()
	item.ID = e.nextItem
	e.nextItem++
	e.items[item.ID] = item
	e.mu.Unlock()

	e.emit(ctx, domain.Event{
		Kind:     domain.EventListed,
		ItemID:   item.ID,
		AssetRef: &assetRef,
		AssetID:  item.AssetID,
		Seller:   &item.Owner,
		Amount:   item.Price,
	})

	e.logger.InfoContext(ctx, "engine: item listed",
		slog.Uint64("item_id", item.ID),
		slog.String("seller", item.Owner.Hex()),
		slog.String("price", item.Price.String()),
	)
	return item.Clone(), nil
}

// BuyItem settles a fixed-price sale. The attached value must equal the
// asking price exactly; there is no partial or overpayment handling. The
// fee/proceeds settlement and the asset release must both succeed before
// any engine state is mutated, so a failed call has zero effect.
func (e *Engine) BuyItem(ctx context.Context, call domain.Call, itemID uint64) (domain.Item, error) {
	if err := e.enter(); err != nil {
		return domain.Item{}, err
	}
	defer e.leave()

	item, ok := e.items[itemID]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	if item.Sold {
		return domain.Item{}, domain.ErrAlreadySold
	}
	value := call.AttachedValue()
	if value.Cmp(item.Price) != 0 {
		return domain.Item{}, domain.ErrInvalidValue
	}

	fee, proceeds := feeSplit(value, e.feeBps)
	if err := e.settle(ctx, fee, proceeds, item.Owner); err != nil {
		return domain.Item{}, err
	}
	if err := e.release(ctx, item.AssetRef, item.AssetID, call.Caller); err != nil {
		return domain.Item{}, err
	}

	e.mu.Lock()
	item.Sold = true
	e.mu.Unlock()

	buyer := call.Caller
	e.emit(ctx, domain.Event{
		Kind:     domain.EventBought,
		ItemID:   item.ID,
		AssetRef: &item.AssetRef,
		AssetID:  item.AssetID,
		Seller:   &item.Owner,
		Buyer:    &buyer,
		Amount:   value,
		Fee:      fee,
		Proceeds: proceeds,
	})

	e.logger.InfoContext(ctx, "engine: item bought",
		slog.Uint64("item_id", item.ID),
		slog.String("buyer", buyer.Hex()),
		slog.String("amount", value.String()),
		slog.String("fee", fee.String()),
	)
	return item.Clone(), nil
}

// CancelListing releases an unsold item's asset back to its owner. It marks
// the item sold: cancellation and purchase share the terminal flag, so a
// cancelled item is indistinguishable from a bought one by the flag alone
// and consumers must rely on the event feed to tell which occurred.
func (e *Engine) CancelListing(ctx context.Context, call domain.Call, itemID uint64) (domain.Item, error) {
	if err := e.enter(); err != nil {
		return domain.Item{}, err
	}
	defer e.leave()

	item, ok := e.items[itemID]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	if item.Sold {
		return domain.Item{}, domain.ErrAlreadySold
	}
	if call.Caller != item.Owner {
		return domain.Item{}, domain.ErrNotItemOwner
	}

	if err := e.release(ctx, item.AssetRef, item.AssetID, item.Owner); err != nil {
		return domain.Item{}, err
	}

	e.mu.Lock()
	item.Sold = true
	e.mu.Unlock()

	e.emit(ctx, domain.Event{
		Kind:     domain.EventSaleCancelled,
		ItemID:   item.ID,
		AssetRef: &item.AssetRef,
		AssetID:  item.AssetID,
		Seller:   &item.Owner,
	})

	e.logger.InfoContext(ctx, "engine: listing cancelled",
		slog.Uint64("item_id", item.ID),
		slog.String("owner", item.Owner.Hex()),
	)
	return item.Clone(), nil
}
