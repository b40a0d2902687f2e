package ssga

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mhan/momo/internal/contracts"
)

// parseHoldings extracts constituents from a holdings workbook.
// The file opens with a title block (fund name, as-of date, several
// rows), then a header row, then one row per holding with trailing
// cash and total lines. Column positions move between publications,
// so the header row and columns are located by substring.
func parseHoldings(data []byte, cohort contracts.Cohort, asOf time.Time) ([]contracts.Constituent, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	headerRow, cols := findHeader(rows)
	if headerRow == -1 {
		return nil, fmt.Errorf("no header row with ticker/name/weight columns")
	}

	var members []contracts.Constituent
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if cols.ticker >= len(row) {
			continue
		}

		symbol := strings.TrimSpace(row[cols.ticker])
		// Cash lines carry "-" and the trailing totals carry nothing
		if symbol == "" || symbol == "-" {
			continue
		}

		member := contracts.Constituent{
			Cohort: cohort,
			Symbol: symbol,
			AsOf:   asOf,
		}
		if cols.name < len(row) {
			member.Name = strings.TrimSpace(row[cols.name])
		}
		if cols.weight < len(row) {
			member.Weight = parseWeight(row[cols.weight])
		}

		members = append(members, member)
	}

	if len(members) == 0 {
		return nil, fmt.Errorf("no constituents parsed")
	}
	return members, nil
}

// headerColumns holds located column indexes
type headerColumns struct {
	ticker int
	name   int
	weight int
}

// findHeader scans for the first row naming a ticker, a name, and a
// weight column. Returns -1 when none is found.
func findHeader(rows [][]string) (int, headerColumns) {
	for i, row := range rows {
		cols := headerColumns{ticker: -1, name: -1, weight: -1}
		for j, cell := range row {
			h := strings.ToLower(strings.TrimSpace(cell))
			switch {
			case cols.ticker == -1 && (strings.Contains(h, "ticker") || strings.Contains(h, "symbol")):
				cols.ticker = j
			case cols.name == -1 && (strings.Contains(h, "name") || strings.Contains(h, "security")):
				cols.name = j
			case cols.weight == -1 && strings.Contains(h, "weight"):
				cols.weight = j
			}
		}
		if cols.ticker != -1 && cols.name != -1 && cols.weight != -1 {
			return i, cols
		}
	}
	return -1, headerColumns{}
}

// parseWeight reads an index weight cell in percent units. Weights
// appear as "7.123456" or "7.12%"; unreadable cells become zero so a
// formatting change never drops a member.
func parseWeight(cell string) float64 {
	s := strings.TrimSpace(cell)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}
