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

// ItemStore implements domain.ItemStore using PostgreSQL.
type ItemStore struct {
	pool *pgxpool.Pool
}

// NewItemStore creates an ItemStore backed by the given connection pool.
func NewItemStore(pool *pgxpool.Pool) *ItemStore {
	return &ItemStore{pool: pool}
}

// Insert stores a newly listed item.
func (s *ItemStore) Insert(ctx context.Context, item domain.Item) error {
	const query = `
		INSERT INTO items (id, asset_ref, asset_id, owner_addr, price, sold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

	_, err := s.pool.Exec(ctx, query,
		int64(item.ID), item.AssetRef.Hex(), item.AssetID.String(),
		item.Owner.Hex(), item.Price.String(), item.Sold, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert item %d: %w", item.ID, err)
	}
	return nil
}

// MarkSold sets the terminal sold flag. The flag never reverts, so the
// update is unconditional on the current value.
func (s *ItemStore) MarkSold(ctx context.Context, id uint64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE items SET sold = TRUE, updated_at = NOW() WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("postgres: mark item %d sold: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const itemSelectCols = `id, asset_ref, asset_id, owner_addr, price, sold, created_at`

func scanItem(scanner interface{ Scan(dest ...any) error }) (domain.Item, error) {
	var item domain.Item
	var id int64
	var assetRef, assetID, owner, price string

	err := scanner.Scan(&id, &assetRef, &assetID, &owner, &price, &item.Sold, &item.CreatedAt)
	if err != nil {
		return domain.Item{}, err
	}

	item.ID = uint64(id)
	item.AssetRef = common.HexToAddress(assetRef)
	item.Owner = common.HexToAddress(owner)
	item.AssetID, _ = new(big.Int).SetString(assetID, 10)
	item.Price, _ = new(big.Int).SetString(price, 10)
	return item, nil
}

func scanItemRows(rows pgx.Rows) ([]domain.Item, error) {
	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetByID retrieves a single item.
func (s *ItemStore) GetByID(ctx context.Context, id uint64) (domain.Item, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+itemSelectCols+` FROM items WHERE id = $1`, int64(id))

	item, err := scanItem(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Item{}, domain.ErrNotFound
		}
		return domain.Item{}, fmt.Errorf("postgres: get item %d: %w", id, err)
	}
	return item, nil
}

// List returns items ordered by ID with pagination.
func (s *ItemStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Item, error) {
	query := `SELECT ` + itemSelectCols + ` FROM items ORDER BY id`
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
		return nil, fmt.Errorf("postgres: list items: %w", err)
	}
	defer rows.Close()

	items, err := scanItemRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan items: %w", err)
	}
	return items, nil
}

// ListByOwner returns an owner's items ordered by ID with pagination.
func (s *ItemStore) ListByOwner(ctx context.Context, owner common.Address, opts domain.ListOpts) ([]domain.Item, error) {
	query := `SELECT ` + itemSelectCols + ` FROM items WHERE owner_addr = $1 ORDER BY id`
	args := []any{owner.Hex()}
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
		return nil, fmt.Errorf("postgres: list items by owner: %w", err)
	}
	defer rows.Close()

	items, err := scanItemRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan items by owner: %w", err)
	}
	return items, nil
}

// Count returns the total number of item records.
func (s *ItemStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count items: %w", err)
	}
	return n, nil
}

// Compile-time interface check.
var _ domain.ItemStore = (*ItemStore)(nil)
