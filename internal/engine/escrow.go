package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// pull moves an asset from its current holder into engine custody. The
// registry rejects the transfer if from has not authorized the engine to
// move the asset.
func (e *Engine) pull(ctx context.Context, assetRef common.Address, assetID *big.Int, from common.Address) error {
	if err := e.registry.Transfer(ctx, assetRef, assetID, from, e.custodian); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAssetRejected, err)
	}
	return nil
}

// release moves an asset out of engine custody to its terminal recipient.
func (e *Engine) release(ctx context.Context, assetRef common.Address, assetID *big.Int, to common.Address) error {
	if err := e.registry.Transfer(ctx, assetRef, assetID, e.custodian, to); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAssetRejected, err)
	}
	return nil
}

// settle distributes sale value to the beneficiary and seller in one
// all-or-nothing ledger batch. Zero-amount payouts are elided; a fee rate of
// zero settles the full value to the seller in a single payout.
func (e *Engine) settle(ctx context.Context, fee, proceeds *big.Int, seller common.Address) error {
	payouts := make([]domain.Payout, 0, 2)
	if fee.Sign() > 0 {
		payouts = append(payouts, domain.Payout{To: e.beneficiary, Amount: fee})
	}
	if proceeds.Sign() > 0 {
		payouts = append(payouts, domain.Payout{To: seller, Amount: proceeds})
	}
	if len(payouts) == 0 {
		return nil
	}
	if err := e.ledger.Distribute(ctx, payouts...); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPayoutFailed, err)
	}
	return nil
}

// refund pushes a previous leading bidder's amount back to them. A refusing
// or malfunctioning recipient fails the refund, which rejects the new bid.
func (e *Engine) refund(ctx context.Context, to common.Address, amount *big.Int) error {
	if err := e.ledger.Distribute(ctx, domain.Payout{To: to, Amount: amount}); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRefundFailed, err)
	}
	return nil
}
