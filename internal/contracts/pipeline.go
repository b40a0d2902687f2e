package contracts

// Pipeline stage definitions (SSOT)
// Logs, run feed events, and job results all use these constants
//
// Pipeline flow:
//   universe → prices → rank → report

// Stage represents a pipeline stage
type Stage string

const (
	// StageUniverse syncs index membership from holdings files
	// Location: internal/s1_universe/
	StageUniverse Stage = "universe"

	// StagePrices syncs daily closes for the anchor dates
	// Location: internal/s0_data/
	StagePrices Stage = "prices"

	// StageRank computes trailing momentum, ranks, and picks
	// Location: internal/s2_signals/, internal/selection/
	StageRank Stage = "rank"

	// StageReport caches metadata/news and renders the HTML report
	// Location: internal/report/
	StageReport Stage = "report"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageUniverse,
		StagePrices,
		StageRank,
		StageReport,
	}
}

