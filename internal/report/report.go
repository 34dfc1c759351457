// Package report computes the derived analytical reports over the
// loaded tables: aggregate population statistics, the best-period
// ranking per series, and the unified joined view. The three reports
// are independent; one failing never stops the others.
package report

import (
	"errors"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/laborsync/internal/dataset"
)

// Report-level failure conditions. All are surfaced as a structured
// ERROR status, never raised past the pipeline boundary.
var (
	ErrSchema     = errors.New("required columns are missing")
	ErrEmptyRange = errors.New("no population rows in the requested year range")
	ErrNoMatch    = errors.New("no rows match the requested series and period")
)

// Status is the per-report outcome.
type Status string

// Report status values.
const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// previewLimit caps the ranking list embedded in result summaries.
const previewLimit = 10

// Config controls report parameters.
type Config struct {
	// MinYear/MaxYear bound the population statistics filter, inclusive.
	MinYear int
	MaxYear int
	// SeriesID/Period select the unified report slice.
	SeriesID string
	Period   string
}

// PopulationStats is the aggregate statistics report.
type PopulationStats struct {
	Status   Status  `json:"status"`
	Message  string  `json:"message,omitempty"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std"`
	Years    []int   `json:"years"`
	RowCount int     `json:"row_count"`
}

// BestYearEntry is one series' best year and its summed value.
type BestYearEntry struct {
	SeriesID string  `json:"series_id"`
	Year     int     `json:"year"`
	Value    float64 `json:"value"`
}

// BestYears is the per-series best-period ranking report.
type BestYears struct {
	Status       Status          `json:"status"`
	Message      string          `json:"message,omitempty"`
	TotalSeries  int             `json:"total_series"`
	Results      []BestYearEntry `json:"results"`
	TotalResults int             `json:"total_results"`
}

// UnifiedRow is one time-series observation joined with population.
type UnifiedRow struct {
	SeriesID   string   `json:"series_id"`
	Year       *int     `json:"year"`
	Period     string   `json:"period"`
	Value      *float64 `json:"value"`
	Population *float64 `json:"population"`
}

// Unified is the joined report filtered to one series and period.
type Unified struct {
	Status   Status       `json:"status"`
	Message  string       `json:"message,omitempty"`
	SeriesID string       `json:"series_id"`
	Period   string       `json:"period"`
	RowCount int          `json:"row_count"`
	Rows     []UnifiedRow `json:"results"`
}

// Generator computes the three reports.
type Generator struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs a Generator, filling unset config with the defaults
// the pipelines have always used.
func New(cfg Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinYear == 0 && cfg.MaxYear == 0 {
		cfg.MinYear, cfg.MaxYear = 2013, 2018
	}
	if cfg.SeriesID == "" {
		cfg.SeriesID = "PRS30006032"
	}
	if cfg.Period == "" {
		cfg.Period = "Q01"
	}
	return &Generator{cfg: cfg, logger: logger}
}

// PopulationStats filters population rows to the configured inclusive
// year range and computes mean and sample standard deviation.
func (g *Generator) PopulationStats(rows []dataset.PopulationRow) PopulationStats {
	var (
		values []float64
		years  = map[int]struct{}{}
		count  int
	)
	for _, row := range rows {
		if row.Year == nil || *row.Year < g.cfg.MinYear || *row.Year > g.cfg.MaxYear {
			continue
		}
		count++
		years[*row.Year] = struct{}{}
		if row.Population != nil {
			values = append(values, *row.Population)
		}
	}
	if count == 0 {
		g.logger.Warn("population stats found no rows in range",
			zap.Int("min_year", g.cfg.MinYear),
			zap.Int("max_year", g.cfg.MaxYear),
		)
		return PopulationStats{Status: StatusError, Message: ErrEmptyRange.Error()}
	}

	sortedYears := make([]int, 0, len(years))
	for year := range years {
		sortedYears = append(sortedYears, year)
	}
	sort.Ints(sortedYears)

	mean, std := meanAndSampleStdDev(values)
	g.logger.Info("population stats computed",
		zap.Float64("mean", mean),
		zap.Float64("std", std),
		zap.Int("row_count", count),
	)
	return PopulationStats{
		Status:   StatusSuccess,
		Mean:     mean,
		StdDev:   std,
		Years:    sortedYears,
		RowCount: count,
	}
}

// BestYears groups observations by (series, year), sums their values,
// and reports the best year per series. Ties on the summed value keep
// the smaller year; the descending sort is stable so the result is
// deterministic.
func (g *Generator) BestYears(table *dataset.Table) BestYears {
	if !table.HasColumns("series_id", "year", "value") {
		return BestYears{Status: StatusError, Message: ErrSchema.Error()}
	}

	type groupKey struct {
		series string
		year   int
	}
	sums := map[groupKey]float64{}
	var order []groupKey
	for _, row := range table.Rows {
		if row.Year == nil {
			continue
		}
		key := groupKey{series: row.SeriesID, year: *row.Year}
		if _, seen := sums[key]; !seen {
			order = append(order, key)
			sums[key] = 0
		}
		// Nil values contribute zero to the sum, mirroring the
		// null-skipping aggregation the loader's coercion implies.
		if row.Value != nil {
			sums[key] += *row.Value
		}
	}

	annual := make([]BestYearEntry, 0, len(order))
	for _, key := range order {
		annual = append(annual, BestYearEntry{SeriesID: key.series, Year: key.year, Value: sums[key]})
	}
	sort.SliceStable(annual, func(i, j int) bool {
		if annual[i].Value != annual[j].Value {
			return annual[i].Value > annual[j].Value
		}
		return annual[i].Year < annual[j].Year
	})

	best := make([]BestYearEntry, 0)
	seen := map[string]struct{}{}
	for _, entry := range annual {
		if _, ok := seen[entry.SeriesID]; ok {
			continue
		}
		seen[entry.SeriesID] = struct{}{}
		best = append(best, entry)
	}

	preview := best
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}
	g.logger.Info("best-years ranking computed", zap.Int("series", len(best)))
	return BestYears{
		Status:       StatusSuccess,
		TotalSeries:  len(best),
		Results:      preview,
		TotalResults: len(best),
	}
}

// Unified left-joins the time-series table to the population rows on
// year and filters to the configured series and period. Every matching
// time-series row is preserved; population is nil when no year matches.
func (g *Generator) Unified(table *dataset.Table, population []dataset.PopulationRow) Unified {
	if !table.HasColumns("series_id", "year", "period", "value") {
		return Unified{Status: StatusError, Message: ErrSchema.Error()}
	}

	// First row wins on duplicate years, matching map-lookup join
	// semantics documented in the dataset loader.
	popByYear := make(map[int]*float64, len(population))
	for _, row := range population {
		if row.Year == nil {
			continue
		}
		if _, ok := popByYear[*row.Year]; !ok {
			popByYear[*row.Year] = row.Population
		}
	}

	var rows []UnifiedRow
	for _, row := range table.Rows {
		if row.SeriesID != g.cfg.SeriesID || row.Period != g.cfg.Period {
			continue
		}
		unified := UnifiedRow{
			SeriesID: row.SeriesID,
			Year:     row.Year,
			Period:   row.Period,
			Value:    row.Value,
		}
		if row.Year != nil {
			unified.Population = popByYear[*row.Year]
		}
		rows = append(rows, unified)
	}
	if len(rows) == 0 {
		g.logger.Warn("unified report found no rows",
			zap.String("series_id", g.cfg.SeriesID),
			zap.String("period", g.cfg.Period),
		)
		return Unified{
			Status:   StatusError,
			Message:  ErrNoMatch.Error(),
			SeriesID: g.cfg.SeriesID,
			Period:   g.cfg.Period,
		}
	}

	g.logger.Info("unified report computed",
		zap.String("series_id", g.cfg.SeriesID),
		zap.Int("row_count", len(rows)),
	)
	return Unified{
		Status:   StatusSuccess,
		SeriesID: g.cfg.SeriesID,
		Period:   g.cfg.Period,
		RowCount: len(rows),
		Rows:     rows,
	}
}

// All runs the three reports under separate failure boundaries and
// reports overall success as the logical AND of the three statuses.
func (g *Generator) All(table *dataset.Table, population []dataset.PopulationRow) (PopulationStats, BestYears, Unified, bool) {
	stats := g.PopulationStats(population)
	ranking := g.BestYears(table)
	unified := g.Unified(table, population)
	success := stats.Status == StatusSuccess &&
		ranking.Status == StatusSuccess &&
		unified.Status == StatusSuccess
	return stats, ranking, unified, success
}

// meanAndSampleStdDev computes the mean and the sample (n-1) standard
// deviation. Fewer than two values yields a zero deviation; NaN would
// not survive JSON encoding.
func meanAndSampleStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)-1))
}
