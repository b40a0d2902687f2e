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

// PriceRepository implements contracts.PriceRepository
// ⭐ SSOT: daily bar persistence lives here only
type PriceRepository struct {
	pool *pgxpool.Pool
}

var _ contracts.PriceRepository = (*PriceRepository)(nil)

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// SaveBatch inserts bars inside one transaction. Bars already stored
// are skipped, so re-running a sync never rewrites history.
func (r *PriceRepository) SaveBatch(ctx context.Context, bars []contracts.PriceBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO screener.daily_prices (symbol, trade_date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, trade_date) DO NOTHING
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	written := 0
	for _, b := range bars {
		tag, err := tx.Exec(ctx, query,
			b.Symbol, b.TradeDate, b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return 0, fmt.Errorf("insert bar for %s: %w", b.Symbol, err)
		}
		written += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return written, nil
}

// ResolveTradingDate backtracks target to the nearest prior date that
// has any stored closes. Weekends are skipped without consuming an
// attempt; after maxBack business-day attempts it gives up with
// contracts.ErrNoTradingData.
func (r *PriceRepository) ResolveTradingDate(ctx context.Context, target time.Time, maxBack int) (time.Time, error) {
	query := `SELECT EXISTS (SELECT 1 FROM screener.daily_prices WHERE trade_date = $1)`

	d := contracts.PrevWeekday(contracts.DateOnly(target))
	for i := 0; i <= maxBack; i++ {
		var exists bool
		if err := r.pool.QueryRow(ctx, query, d).Scan(&exists); err != nil {
			return time.Time{}, fmt.Errorf("probe trade date %s: %w", contracts.FormatDate(d), err)
		}
		if exists {
			return d, nil
		}
		d = contracts.StepBackWeekday(d)
	}

	return time.Time{}, fmt.Errorf("no closes within %d business days of %s: %w",
		maxBack, contracts.FormatDate(target), contracts.ErrNoTradingData)
}

// GetCloses returns symbol → close for one trade date, restricted to
// the given symbols. Symbols without a stored bar are simply absent.
func (r *PriceRepository) GetCloses(ctx context.Context, symbols []string, date time.Time) (map[string]float64, error) {
	query := `
		SELECT symbol, close
		FROM screener.daily_prices
		WHERE trade_date = $1 AND symbol = ANY($2)
	`

	rows, err := r.pool.Query(ctx, query, date, symbols)
	if err != nil {
		return nil, fmt.Errorf("query closes: %w", err)
	}
	defer rows.Close()

	closes := make(map[string]float64, len(symbols))
	for rows.Next() {
		var symbol string
		var close float64
		if err := rows.Scan(&symbol, &close); err != nil {
			return nil, err
		}
		closes[symbol] = close
	}
	return closes, rows.Err()
}

// GetClose returns one symbol's close on an exact date
func (r *PriceRepository) GetClose(ctx context.Context, symbol string, date time.Time) (float64, error) {
	query := `
		SELECT close
		FROM screener.daily_prices
		WHERE symbol = $1 AND trade_date = $2
	`

	var close float64
	if err := r.pool.QueryRow(ctx, query, symbol, date).Scan(&close); err != nil {
		return 0, err
	}
	return close, nil
}

// CloseOnOrBefore returns the most recent bar for symbol at or before
// target, looking back at most maxBack business days
func (r *PriceRepository) CloseOnOrBefore(ctx context.Context, symbol string, target time.Time, maxBack int) (contracts.PriceBar, error) {
	to := contracts.PrevWeekday(contracts.DateOnly(target))
	from := to
	for i := 0; i < maxBack; i++ {
		from = contracts.StepBackWeekday(from)
	}

	query := `
		SELECT symbol, trade_date, open, high, low, close, volume
		FROM screener.daily_prices
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date DESC
		LIMIT 1
	`

	var b contracts.PriceBar
	err := r.pool.QueryRow(ctx, query, symbol, from, to).Scan(
		&b.Symbol, &b.TradeDate, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return contracts.PriceBar{}, fmt.Errorf("no %s close within %d business days of %s: %w",
			symbol, maxBack, contracts.FormatDate(target), contracts.ErrNoTradingData)
	}
	if err != nil {
		return contracts.PriceBar{}, fmt.Errorf("query latest close for %s: %w", symbol, err)
	}

	return b, nil
}

// GetSeries returns one symbol's bars in [from, to], oldest first
func (r *PriceRepository) GetSeries(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	query := `
		SELECT symbol, trade_date, open, high, low, close, volume
		FROM screener.daily_prices
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var bars []contracts.PriceBar
	for rows.Next() {
		var b contracts.PriceBar
		if err := rows.Scan(&b.Symbol, &b.TradeDate, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// CountOnDate counts how many of the given symbols have a stored bar
// on date
func (r *PriceRepository) CountOnDate(ctx context.Context, symbols []string, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM screener.daily_prices
		WHERE trade_date = $1 AND symbol = ANY($2)
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, date, symbols).Scan(&count); err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	return count, nil
}
