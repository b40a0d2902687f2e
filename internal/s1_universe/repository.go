package s1_universe

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mhan/momo/internal/contracts"
)

// Repository implements contracts.UniverseRepository
// ⭐ SSOT: constituent snapshots and the change log persist here only
type Repository struct {
	db *pgxpool.Pool
}

var _ contracts.UniverseRepository = (*Repository)(nil)

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ReplaceCohort swaps a cohort's snapshot in one transaction. A weekly
// refresh replaces the prior membership wholesale.
func (r *Repository) ReplaceCohort(ctx context.Context, cohort contracts.Cohort, members []contracts.Constituent) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM screener.constituents WHERE cohort = $1`, cohort.String()); err != nil {
		return fmt.Errorf("clear %s snapshot: %w", cohort, err)
	}

	query := `
		INSERT INTO screener.constituents (cohort, symbol, name, weight, as_of)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, m := range members {
		if _, err := tx.Exec(ctx, query,
			cohort.String(), m.Symbol, m.Name, m.Weight, m.AsOf); err != nil {
			return fmt.Errorf("insert %s constituent %s: %w", cohort, m.Symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetCohort returns the current snapshot, heaviest members first.
// An unsynced cohort comes back with no members, not an error.
func (r *Repository) GetCohort(ctx context.Context, cohort contracts.Cohort) (*contracts.Universe, error) {
	query := `
		SELECT cohort, symbol, name, weight, as_of
		FROM screener.constituents
		WHERE cohort = $1
		ORDER BY weight DESC, symbol ASC
	`

	rows, err := r.db.Query(ctx, query, cohort.String())
	if err != nil {
		return nil, fmt.Errorf("query %s snapshot: %w", cohort, err)
	}
	defer rows.Close()

	u := &contracts.Universe{Cohort: cohort}
	for rows.Next() {
		var m contracts.Constituent
		var c string
		if err := rows.Scan(&c, &m.Symbol, &m.Name, &m.Weight, &m.AsOf); err != nil {
			return nil, err
		}
		m.Cohort = contracts.Cohort(c)
		u.Members = append(u.Members, m)
		if m.AsOf.After(u.AsOf) {
			u.AsOf = m.AsOf
		}
	}
	return u, rows.Err()
}

// LogChanges appends change entries. The full-row primary key plus
// conflict-ignore keeps re-runs from duplicating the log.
func (r *Repository) LogChanges(ctx context.Context, changes []contracts.UniverseChange) error {
	if len(changes) == 0 {
		return nil
	}

	query := `
		INSERT INTO screener.universe_changes (run_date, cohort, action, symbol)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_date, cohort, action, symbol) DO NOTHING
	`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, ch := range changes {
		if _, err := tx.Exec(ctx, query,
			ch.RunDate, ch.Cohort.String(), string(ch.Action), ch.Symbol); err != nil {
			return fmt.Errorf("insert change for %s: %w", ch.Symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetChanges returns the newest change entries for a cohort
func (r *Repository) GetChanges(ctx context.Context, cohort contracts.Cohort, limit int) ([]contracts.UniverseChange, error) {
	query := `
		SELECT run_date, cohort, action, symbol
		FROM screener.universe_changes
		WHERE cohort = $1
		ORDER BY run_date DESC, action ASC, symbol ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, cohort.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query %s changes: %w", cohort, err)
	}
	defer rows.Close()

	var changes []contracts.UniverseChange
	for rows.Next() {
		var ch contracts.UniverseChange
		var c, action string
		var runDate time.Time
		if err := rows.Scan(&runDate, &c, &action, &ch.Symbol); err != nil {
			return nil, err
		}
		ch.RunDate = runDate
		ch.Cohort = contracts.Cohort(c)
		ch.Action = contracts.ChangeAction(action)
		changes = append(changes, ch)
	}
	return changes, rows.Err()
}
