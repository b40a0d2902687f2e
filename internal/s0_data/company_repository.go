package s0_data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mhan/momo/internal/contracts"
)

// CompanyRepository implements contracts.CompanyRepository. Metadata
// and news are Postgres-side caches of the reference API, refreshed
// on TTL expiry by the report service.
type CompanyRepository struct {
	pool *pgxpool.Pool
}

var _ contracts.CompanyRepository = (*CompanyRepository)(nil)

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(pool *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// GetMeta returns cached metadata for a symbol, nil when none is stored
func (r *CompanyRepository) GetMeta(ctx context.Context, symbol string) (*contracts.CompanyMeta, error) {
	query := `
		SELECT symbol, name, description, updated_at
		FROM screener.company_metadata
		WHERE symbol = $1
	`

	var m contracts.CompanyMeta
	err := r.pool.QueryRow(ctx, query, symbol).Scan(&m.Symbol, &m.Name, &m.Description, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // Not cached, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("get metadata for %s: %w", symbol, err)
	}
	return &m, nil
}

// UpsertMeta stores metadata, replacing any prior row for the symbol
func (r *CompanyRepository) UpsertMeta(ctx context.Context, meta *contracts.CompanyMeta) error {
	query := `
		INSERT INTO screener.company_metadata (symbol, name, description, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query, meta.Symbol, meta.Name, meta.Description, meta.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert metadata for %s: %w", meta.Symbol, err)
	}
	return nil
}

// SaveNews inserts stories, skipping ones already stored.
// Returns the number of rows actually written.
func (r *CompanyRepository) SaveNews(ctx context.Context, items []contracts.NewsItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO screener.company_news (symbol, published_utc, headline, url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol, published_utc) DO NOTHING
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	written := 0
	for _, item := range items {
		tag, err := tx.Exec(ctx, query, item.Symbol, item.PublishedUTC, item.Headline, item.URL)
		if err != nil {
			return 0, fmt.Errorf("insert news for %s: %w", item.Symbol, err)
		}
		written += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return written, nil
}

// GetNews returns the newest stored stories for a symbol
func (r *CompanyRepository) GetNews(ctx context.Context, symbol string, limit int) ([]contracts.NewsItem, error) {
	query := `
		SELECT symbol, published_utc, headline, url
		FROM screener.company_news
		WHERE symbol = $1
		ORDER BY published_utc DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query news for %s: %w", symbol, err)
	}
	defer rows.Close()

	var items []contracts.NewsItem
	for rows.Next() {
		var item contracts.NewsItem
		if err := rows.Scan(&item.Symbol, &item.PublishedUTC, &item.Headline, &item.URL); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// LatestNewsTime returns the newest stored publish time for a symbol,
// zero when nothing is stored
func (r *CompanyRepository) LatestNewsTime(ctx context.Context, symbol string) (time.Time, error) {
	query := `
		SELECT published_utc
		FROM screener.company_news
		WHERE symbol = $1
		ORDER BY published_utc DESC
		LIMIT 1
	`

	var latest time.Time
	err := r.pool.QueryRow(ctx, query, symbol).Scan(&latest)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("latest news time for %s: %w", symbol, err)
	}
	return latest, nil
}

// PruneNews deletes stories published before the cutoff
func (r *CompanyRepository) PruneNews(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM screener.company_news WHERE published_utc < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune news: %w", err)
	}
	return tag.RowsAffected(), nil
}
