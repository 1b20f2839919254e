package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/notify"
)

// Journal is the engine's event sink. For every emitted event it appends to
// the durable journal, applies the transition to the record stores, fans the
// event out over the bus, and forwards operator notifications.
//
// The engine has already committed the transition in memory when Emit runs,
// so persistence failures here are logged and skipped rather than propagated;
// the journal remains the authority and record stores are rebuilt from it.
type Journal struct {
	events   domain.EventStore
	items    domain.ItemStore
	auctions domain.AuctionStore
	fees     domain.FeeStore
	bus      domain.EventBus
	notifier *notify.Notifier
	logger   *slog.Logger

	// beneficiary mirrors the engine's fee beneficiary so fee snapshots can
	// be persisted from fee_updated events, which carry only the rates.
	beneficiary common.Address
}

// JournalDeps bundles the Journal's collaborators. Bus and Notifier are
// optional; stores are required.
type JournalDeps struct {
	Events      domain.EventStore
	Items       domain.ItemStore
	Auctions    domain.AuctionStore
	Fees        domain.FeeStore
	Bus         domain.EventBus
	Notifier    *notify.Notifier
	Beneficiary common.Address
}

// NewJournal creates a Journal with the given collaborators.
func NewJournal(deps JournalDeps, logger *slog.Logger) *Journal {
	return &Journal{
		events:      deps.Events,
		items:       deps.Items,
		auctions:    deps.Auctions,
		fees:        deps.Fees,
		bus:         deps.Bus,
		notifier:    deps.Notifier,
		beneficiary: deps.Beneficiary,
		logger:      logger.With(slog.String("component", "journal")),
	}
}

// Emit implements domain.EventSink.
func (j *Journal) Emit(ctx context.Context, ev domain.Event) {
	seq, err := j.events.Append(ctx, ev)
	if err != nil {
		j.logger.ErrorContext(ctx, "journal: append failed",
			slog.String("kind", string(ev.Kind)),
			slog.String("error", err.Error()),
		)
	} else {
		ev.Seq = seq
	}

	if err := j.apply(ctx, ev); err != nil {
		j.logger.ErrorContext(ctx, "journal: record apply failed",
			slog.String("kind", string(ev.Kind)),
			slog.Int64("seq", ev.Seq),
			slog.String("error", err.Error()),
		)
	}

	j.publish(ctx, ev)
	j.notify(ctx, ev)
}

// apply projects the event onto the record stores.
func (j *Journal) apply(ctx context.Context, ev domain.Event) error {
	switch ev.Kind {
	case domain.EventListed:
		item := domain.Item{
			ID:        ev.ItemID,
			Owner:     deref(ev.Seller),
			Price:     ev.Amount,
			CreatedAt: ev.At,
		}
		if ev.AssetRef != nil {
			item.AssetRef = *ev.AssetRef
		}
		item.AssetID = ev.AssetID
		return j.items.Insert(ctx, item)

	case domain.EventBought, domain.EventSaleCancelled:
		return j.items.MarkSold(ctx, ev.ItemID)

	case domain.EventAuctionStarted:
		a := domain.Auction{
			ID:         ev.AuctionID,
			Owner:      deref(ev.Seller),
			HighestBid: ev.Amount,
			Active:     true,
			CreatedAt:  ev.At,
		}
		if ev.AssetRef != nil {
			a.AssetRef = *ev.AssetRef
		}
		a.AssetID = ev.AssetID
		if ev.EndsAt != nil {
			a.EndsAt = *ev.EndsAt
		}
		return j.auctions.Insert(ctx, a)

	case domain.EventBidSubmitted:
		return j.auctions.UpdateBid(ctx, ev.AuctionID, deref(ev.Buyer), ev.Amount)

	case domain.EventAuctionConcluded, domain.EventAuctionCancelled:
		return j.auctions.MarkConcluded(ctx, ev.AuctionID)

	case domain.EventFeeUpdated:
		return j.fees.Set(ctx, domain.FeePolicy{
			RateBps:     ev.NewFeeBps,
			Beneficiary: j.beneficiary,
			UpdatedAt:   ev.At,
		})

	case domain.EventBidReturned:
		// Journal-only: refunds do not change any record.
		return nil
	}
	return nil
}

// publish fans the event out over pub/sub and the durable stream. The
// firehose channel receives every event; the per-topic channel receives it
// again for consumers that only care about one record type.
func (j *Journal) publish(ctx context.Context, ev domain.Event) {
	if j.bus == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		j.logger.ErrorContext(ctx, "journal: marshal failed",
			slog.String("kind", string(ev.Kind)),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, channel := range []string{domain.ChannelEvents, ev.Channel()} {
		if err := j.bus.Publish(ctx, channel, payload); err != nil {
			j.logger.WarnContext(ctx, "journal: publish failed",
				slog.String("channel", channel),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := j.bus.StreamAppend(ctx, domain.ChannelEvents, payload); err != nil {
		j.logger.WarnContext(ctx, "journal: stream append failed",
			slog.String("error", err.Error()),
		)
	}
}

// notify forwards a short human-readable summary to the operator channels.
// The notifier filters by event kind; unconfigured kinds are dropped there.
func (j *Journal) notify(ctx context.Context, ev domain.Event) {
	if j.notifier == nil {
		return
	}

	title, message := describe(ev)
	if err := j.notifier.Notify(ctx, string(ev.Kind), title, message); err != nil {
		j.logger.WarnContext(ctx, "journal: notify failed",
			slog.String("kind", string(ev.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

// describe renders an event as a notification title and body.
func describe(ev domain.Event) (title, message string) {
	switch ev.Kind {
	case domain.EventListed:
		return "Item Listed",
			fmt.Sprintf("Item #%d listed at %s wei by %s", ev.ItemID, ev.Amount, short(ev.Seller))
	case domain.EventBought:
		return "Item Sold",
			fmt.Sprintf("Item #%d sold for %s wei (fee %s) to %s", ev.ItemID, ev.Amount, ev.Fee, short(ev.Buyer))
	case domain.EventSaleCancelled:
		return "Sale Cancelled",
			fmt.Sprintf("Item #%d delisted by %s", ev.ItemID, short(ev.Seller))
	case domain.EventAuctionStarted:
		return "Auction Started",
			fmt.Sprintf("Auction #%d opened at %s wei by %s", ev.AuctionID, ev.Amount, short(ev.Seller))
	case domain.EventBidSubmitted:
		return "Bid Placed",
			fmt.Sprintf("Auction #%d: %s wei from %s", ev.AuctionID, ev.Amount, short(ev.Buyer))
	case domain.EventBidReturned:
		return "Bid Refunded",
			fmt.Sprintf("Auction #%d: %s wei returned to %s", ev.AuctionID, ev.Amount, short(ev.Buyer))
	case domain.EventAuctionConcluded:
		if ev.Buyer != nil {
			return "Auction Concluded",
				fmt.Sprintf("Auction #%d won at %s wei by %s", ev.AuctionID, ev.Amount, short(ev.Buyer))
		}
		return "Auction Concluded",
			fmt.Sprintf("Auction #%d closed with no bids", ev.AuctionID)
	case domain.EventAuctionCancelled:
		return "Auction Cancelled",
			fmt.Sprintf("Auction #%d cancelled by %s", ev.AuctionID, short(ev.Seller))
	case domain.EventFeeUpdated:
		return "Fee Updated",
			fmt.Sprintf("Platform fee changed from %d to %d bps", ev.OldFeeBps, ev.NewFeeBps)
	}
	return string(ev.Kind), ""
}

func short(addr *common.Address) string {
	if addr == nil {
		return "unknown"
	}
	hex := addr.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}

func deref(addr *common.Address) common.Address {
	if addr == nil {
		return common.Address{}
	}
	return *addr
}

// Compile-time interface check.
var _ domain.EventSink = (*Journal)(nil)
