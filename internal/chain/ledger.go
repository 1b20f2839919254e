package chain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// Ledger implements domain.ValueLedger with native-value transfers from the
// custodian account.
//
// Payouts within one Distribute call are submitted sequentially, so the
// batch is atomic only up to the first failure: earlier payouts in a failed
// batch have already settled on chain. That is weaker than the all-or-none
// contract the in-memory engine assumes; operators running against a real
// chain should front the ledger with a settlement contract if strict batch
// atomicity is required.
type Ledger struct {
	client *Client
}

// NewLedger creates a Ledger over the given chain client.
func NewLedger(client *Client) *Ledger {
	return &Ledger{client: client}
}

// Distribute pushes each payout as a plain value transfer. A reverted or
// unsubmittable transfer fails the batch at that payout.
func (l *Ledger) Distribute(ctx context.Context, payouts ...domain.Payout) error {
	for i, p := range payouts {
		if p.Amount == nil || p.Amount.Sign() <= 0 {
			continue
		}
		if err := l.client.submit(ctx, p.To, p.Amount, nil); err != nil {
			return fmt.Errorf("chain: payout %d/%d to %s: %w", i+1, len(payouts), p.To.Hex(), err)
		}
		l.client.logger.DebugContext(ctx, "chain: payout settled",
			slog.String("to", p.To.Hex()),
			slog.String("amount", p.Amount.String()),
		)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ValueLedger = (*Ledger)(nil)
