package engine

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

var bpsDenominator = big.NewInt(int64(maxFeeBps))

// feeSplit divides value into the platform fee and seller proceeds using
// integer floor division: fee = value * rateBps / 10000. The two parts
// always sum to value exactly.
func feeSplit(value *big.Int, rateBps uint64) (fee, proceeds *big.Int) {
	fee = new(big.Int).Mul(value, new(big.Int).SetUint64(rateBps))
	fee.Div(fee, bpsDenominator)
	proceeds = new(big.Int).Sub(value, fee)
	return fee, proceeds
}

// SetFee changes the platform fee rate. Only the current beneficiary may
// call it, and the rate is capped at 10000 bps; the cap is an enforced bound
// rather than a convention, since a rate above 100% would invert the
// proceeds computation. The change applies only to operations settled after
// it; an in-flight operation never observes a fee change because SetFee
// holds the same guard as every settlement.
func (e *Engine) SetFee(ctx context.Context, call domain.Call, newBps uint64) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	if call.Caller != e.beneficiary {
		return domain.ErrNotAuthorized
	}
	if newBps > maxFeeBps {
		return domain.ErrInvalidFee
	}

	oldBps := e.feeBps
	e.emit(ctx, domain.Event{
		Kind:      domain.EventFeeUpdated,
		OldFeeBps: oldBps,
		NewFeeBps: newBps,
	})

	e.mu.Lock()
	e.feeBps = newBps
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "engine: fee updated",
		slog.Uint64("old_bps", oldBps),
		slog.Uint64("new_bps", newBps),
	)
	return nil
}
