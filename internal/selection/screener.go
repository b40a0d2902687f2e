package selection

import (
	"context"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/logger"
)

// Screener applies the improving-rank cut and selects the weekly picks
// ⭐ SSOT: pick selection lives here only
type Screener struct {
	config Config
	logger *logger.Logger
}

// Config defines the pick selection knobs
type Config struct {
	// TopN is the number of picks kept per cohort
	TopN int `yaml:"top_n"`
}

// DefaultConfig returns the default screening configuration
func DefaultConfig() Config {
	return Config{TopN: 10}
}

// NewScreener creates a new screener
func NewScreener(config Config, log *logger.Logger) *Screener {
	if config.TopN <= 0 {
		config.TopN = DefaultConfig().TopN
	}
	return &Screener{
		config: config,
		logger: log.WithComponent("screener"),
	}
}

// Screen keeps rows whose rank held or improved versus one month ago
// and returns the first TopN. Input must already be ranked and ordered
// by current return descending (Ranker output), so the picks are the
// strongest improving names.
func (s *Screener) Screen(ctx context.Context, rows []contracts.MomentumRow) []contracts.MomentumRow {
	picks := make([]contracts.MomentumRow, 0, s.config.TopN)
	improving := 0

	for _, row := range rows {
		if !row.Improving() {
			continue
		}
		improving++
		if len(picks) < s.config.TopN {
			picks = append(picks, row)
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"input":     len(rows),
		"improving": improving,
		"picks":     len(picks),
	}).Info("Screening completed")

	return picks
}
