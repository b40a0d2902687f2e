package selection

import (
	"context"
	"math"
	"sort"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/logger"
)

// Ranker assigns momentum ranks across a cohort
// ⭐ SSOT: rank math lives here only
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(log *logger.Logger) *Ranker {
	return &Ranker{logger: log.WithComponent("ranker")}
}

// Rank assigns current and last-month ranks (descending by return,
// ties share the lowest rank) and drops rows that failed to resolve
// every anchor. Each rank column is computed over the rows that carry
// that return before anything is dropped: removing a partially
// resolved symbol first would shift the ranks of everyone below it.
// The result is ordered by current return descending.
func (r *Ranker) Rank(ctx context.Context, rows []contracts.MomentumRow) []contracts.MomentumRow {
	working := make([]contracts.MomentumRow, len(rows))
	copy(working, rows)

	assignRanks(working,
		func(m *contracts.MomentumRow) float64 { return m.CurrentReturn },
		func(m *contracts.MomentumRow, rank int) { m.CurrentRank = rank })
	assignRanks(working,
		func(m *contracts.MomentumRow) float64 { return m.LastMonthReturn },
		func(m *contracts.MomentumRow, rank int) { m.LastMonthRank = rank })

	ranked := make([]contracts.MomentumRow, 0, len(working))
	for _, row := range working {
		if math.IsNaN(row.CurrentReturn) || math.IsNaN(row.LastWeekReturn) || math.IsNaN(row.LastMonthReturn) {
			continue
		}
		row.RankChange = row.LastMonthRank - row.CurrentRank
		ranked = append(ranked, row)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].CurrentReturn != ranked[j].CurrentReturn {
			return ranked[i].CurrentReturn > ranked[j].CurrentReturn
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	fields := map[string]interface{}{
		"input":   len(rows),
		"ranked":  len(ranked),
		"dropped": len(rows) - len(ranked),
	}
	if len(ranked) > 0 {
		fields["top_symbol"] = ranked[0].Symbol
		fields["top_return"] = ranked[0].CurrentReturn
	}
	r.logger.WithFields(fields).Info("Ranking completed")

	return ranked
}

// assignRanks writes descending competition ranks: tied values share
// the lowest rank and the next value skips the tied slots (two tied at
// the top both rank 1, the next ranks 3). Equal returns order by
// symbol ascending so re-runs rank identically. NaN values never
// occupy a slot.
func assignRanks(rows []contracts.MomentumRow, value func(*contracts.MomentumRow) float64, set func(*contracts.MomentumRow, int)) {
	idx := make([]int, 0, len(rows))
	for i := range rows {
		if !math.IsNaN(value(&rows[i])) {
			idx = append(idx, i)
		}
	}

	sort.Slice(idx, func(a, b int) bool {
		va, vb := value(&rows[idx[a]]), value(&rows[idx[b]])
		if va != vb {
			return va > vb
		}
		return rows[idx[a]].Symbol < rows[idx[b]].Symbol
	})

	rank := 0
	for pos, i := range idx {
		if pos == 0 || value(&rows[i]) != value(&rows[idx[pos-1]]) {
			rank = pos + 1
		}
		set(&rows[i], rank)
	}
}
