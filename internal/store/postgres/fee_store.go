package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// FeeStore implements domain.FeeStore with a single-row snapshot table.
type FeeStore struct {
	pool *pgxpool.Pool
}

// NewFeeStore creates a FeeStore backed by the given pool.
func NewFeeStore(pool *pgxpool.Pool) *FeeStore {
	return &FeeStore{pool: pool}
}

// Get returns the persisted fee policy, or ErrNotFound before the first Set.
func (s *FeeStore) Get(ctx context.Context) (domain.FeePolicy, error) {
	var p domain.FeePolicy
	var rateBps int64
	var beneficiary string

	err := s.pool.QueryRow(ctx,
		`SELECT rate_bps, beneficiary, updated_at FROM fee_policy WHERE singleton`,
	).Scan(&rateBps, &beneficiary, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.FeePolicy{}, domain.ErrNotFound
		}
		return domain.FeePolicy{}, fmt.Errorf("postgres: get fee policy: %w", err)
	}

	p.RateBps = uint64(rateBps)
	p.Beneficiary = common.HexToAddress(beneficiary)
	return p, nil
}

// Set upserts the fee policy snapshot.
func (s *FeeStore) Set(ctx context.Context, p domain.FeePolicy) error {
	const query = `
		INSERT INTO fee_policy (singleton, rate_bps, beneficiary, updated_at)
		VALUES (TRUE, $1, $2, NOW())
		ON CONFLICT (singleton) DO UPDATE
		SET rate_bps = EXCLUDED.rate_bps,
		    beneficiary = EXCLUDED.beneficiary,
		    updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, int64(p.RateBps), p.Beneficiary.Hex()); err != nil {
		return fmt.Errorf("postgres: set fee policy: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.FeeStore = (*FeeStore)(nil)
