package selection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mhan/momo/internal/contracts"
)

// Repository persists momentum scores and weekly picks
// ⭐ SSOT: score persistence lives here only
type Repository struct {
	db *pgxpool.Pool
}

var _ contracts.ScoreRepository = (*Repository)(nil)

// NewRepository creates a new score repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ReplaceScores swaps the full ranking for (cohort, asOf) in one
// transaction
func (r *Repository) ReplaceScores(ctx context.Context, cohort contracts.Cohort, asOf time.Time, rows []contracts.MomentumRow) error {
	return r.replace(ctx, "momentum_scores", cohort, asOf, rows)
}

// ReplacePicks swaps the screened top picks for (cohort, asOf)
func (r *Repository) ReplacePicks(ctx context.Context, cohort contracts.Cohort, asOf time.Time, rows []contracts.MomentumRow) error {
	return r.replace(ctx, "top_picks", cohort, asOf, rows)
}

func (r *Repository) replace(ctx context.Context, table string, cohort contracts.Cohort, asOf time.Time, rows []contracts.MomentumRow) error {
	day := contracts.DateOnly(asOf)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		fmt.Sprintf("DELETE FROM screener.%s WHERE cohort = $1 AND as_of = $2", table),
		cohort.String(), day,
	); err != nil {
		return fmt.Errorf("delete stale %s rows: %w", table, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO screener.%s (
			cohort, symbol, name, as_of, price,
			current_return, last_week_return, last_month_return,
			current_rank, last_month_rank, rank_change
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, table)

	for _, row := range rows {
		if _, err := tx.Exec(ctx, query,
			cohort.String(), row.Symbol, row.Name, day, row.Price,
			row.CurrentReturn, row.LastWeekReturn, row.LastMonthReturn,
			row.CurrentRank, row.LastMonthRank, row.RankChange,
		); err != nil {
			return fmt.Errorf("insert %s row for %s: %w", table, row.Symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetScores returns the full ranking for (cohort, asOf), best rank
// first
func (r *Repository) GetScores(ctx context.Context, cohort contracts.Cohort, asOf time.Time) ([]contracts.MomentumRow, error) {
	return r.fetch(ctx, "momentum_scores", cohort, asOf, "current_rank ASC, symbol ASC")
}

// GetPicks returns the stored picks for (cohort, asOf) in pick order
func (r *Repository) GetPicks(ctx context.Context, cohort contracts.Cohort, asOf time.Time) ([]contracts.MomentumRow, error) {
	return r.fetch(ctx, "top_picks", cohort, asOf, "current_return DESC, symbol ASC")
}

func (r *Repository) fetch(ctx context.Context, table string, cohort contracts.Cohort, asOf time.Time, order string) ([]contracts.MomentumRow, error) {
	query := fmt.Sprintf(`
		SELECT cohort, symbol, name, as_of, price,
		       current_return, last_week_return, last_month_return,
		       current_rank, last_month_rank, rank_change
		FROM screener.%s
		WHERE cohort = $1 AND as_of = $2
		ORDER BY %s
	`, table, order)

	rows, err := r.db.Query(ctx, query, cohort.String(), contracts.DateOnly(asOf))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	out := make([]contracts.MomentumRow, 0)
	for rows.Next() {
		var row contracts.MomentumRow
		if err := rows.Scan(
			&row.Cohort, &row.Symbol, &row.Name, &row.AsOf, &row.Price,
			&row.CurrentReturn, &row.LastWeekReturn, &row.LastMonthReturn,
			&row.CurrentRank, &row.LastMonthRank, &row.RankChange,
		); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", table, err)
	}

	return out, nil
}

// LatestAsOf returns the most recent scored run date for a cohort
func (r *Repository) LatestAsOf(ctx context.Context, cohort contracts.Cohort) (time.Time, error) {
	var asOf time.Time
	err := r.db.QueryRow(ctx,
		"SELECT as_of FROM screener.momentum_scores WHERE cohort = $1 ORDER BY as_of DESC LIMIT 1",
		cohort.String(),
	).Scan(&asOf)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, fmt.Errorf("cohort %s has no scored runs: %w", cohort, contracts.ErrNoTradingData)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest as_of: %w", err)
	}

	return asOf, nil
}

// PriorAsOf returns the most recent pick run strictly before a date.
// Zero time when none exists: a first run has nothing to diff against,
// which is not an error.
func (r *Repository) PriorAsOf(ctx context.Context, cohort contracts.Cohort, before time.Time) (time.Time, error) {
	var asOf time.Time
	err := r.db.QueryRow(ctx,
		"SELECT as_of FROM screener.top_picks WHERE cohort = $1 AND as_of < $2 ORDER BY as_of DESC LIMIT 1",
		cohort.String(), contracts.DateOnly(before),
	).Scan(&asOf)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query prior as_of: %w", err)
	}

	return asOf, nil
}
