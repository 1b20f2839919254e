package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// AuctionStore implements domain.AuctionStore using PostgreSQL.
type AuctionStore struct {
	pool *pgxpool.Pool
}

// NewAuctionStore creates an AuctionStore backed by the given pool.
func NewAuctionStore(pool *pgxpool.Pool) *AuctionStore {
	return &AuctionStore{pool: pool}
}

// Insert stores a newly created auction.
func (s *AuctionStore) Insert(ctx context.Context, a domain.Auction) error {
	var bidder *string
	if a.Bidder != nil {
		v := a.Bidder.Hex()
		bidder = &v
	}

	const query = `
		INSERT INTO auctions (id, asset_ref, asset_id, owner_addr, ends_at,
			highest_bid, bidder, active, concluded, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`

	_, err := s.pool.Exec(ctx, query,
		int64(a.ID), a.AssetRef.Hex(), a.AssetID.String(), a.Owner.Hex(),
		a.EndsAt, a.HighestBid.String(), bidder, a.Active, a.Concluded, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert auction %d: %w", a.ID, err)
	}
	return nil
}

// UpdateBid records the new leading bidder and amount.
func (s *AuctionStore) UpdateBid(ctx context.Context, id uint64, bidder common.Address, amount *big.Int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE auctions SET bidder = $1, highest_bid = $2, updated_at = NOW() WHERE id = $3`,
		bidder.Hex(), amount.String(), int64(id))
	if err != nil {
		return fmt.Errorf("postgres: update auction %d bid: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkConcluded sets the terminal flags for conclusion or cancellation.
func (s *AuctionStore) MarkConcluded(ctx context.Context, id uint64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE auctions SET active = FALSE, concluded = TRUE, updated_at = NOW() WHERE id = $1`,
		int64(id))
	if err != nil {
		return fmt.Errorf("postgres: mark auction %d concluded: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const auctionSelectCols = `id, asset_ref, asset_id, owner_addr, ends_at,
	highest_bid, bidder, active, concluded, created_at`

func scanAuction(scanner interface{ Scan(dest ...any) error }) (domain.Auction, error) {
	var a domain.Auction
	var id int64
	var assetRef, assetID, owner, highestBid string
	var bidder *string

	err := scanner.Scan(&id, &assetRef, &assetID, &owner, &a.EndsAt,
		&highestBid, &bidder, &a.Active, &a.Concluded, &a.CreatedAt)
	if err != nil {
		return domain.Auction{}, err
	}

	a.ID = uint64(id)
	a.AssetRef = common.HexToAddress(assetRef)
	a.Owner = common.HexToAddress(owner)
	a.AssetID, _ = new(big.Int).SetString(assetID, 10)
	a.HighestBid, _ = new(big.Int).SetString(highestBid, 10)
	if bidder != nil {
		addr := common.HexToAddress(*bidder)
		a.Bidder = &addr
	}
	return a, nil
}

// GetByID retrieves a single auction.
func (s *AuctionStore) GetByID(ctx context.Context, id uint64) (domain.Auction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+auctionSelectCols+` FROM auctions WHERE id = $1`, int64(id))

	a, err := scanAuction(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Auction{}, domain.ErrNotFound
		}
		return domain.Auction{}, fmt.Errorf("postgres: get auction %d: %w", id, err)
	}
	return a, nil
}

// List returns auctions ordered by ID with pagination.
func (s *AuctionStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Auction, error) {
	query := `SELECT ` + auctionSelectCols + ` FROM auctions ORDER BY id`
	args := []any{}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list auctions: %w", err)
	}
	defer rows.Close()

	var auctions []domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list auctions: %w", err)
	}
	return auctions, nil
}

// Count returns the total number of auction records.
func (s *AuctionStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM auctions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count auctions: %w", err)
	}
	return n, nil
}

// Compile-time interface check.
var _ domain.AuctionStore = (*AuctionStore)(nil)
