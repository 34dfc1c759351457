// Package dataset loads the stored time-series fragments and the
// population dataset into in-memory tables for the report generator.
// Tables are rebuilt from the store on every analytics run; nothing is
// cached across runs.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/laborsync/internal/storage"
)

// Selection and parsing failures surfaced to the analytics pipeline.
var (
	// ErrNoData means zero fragments matched the selection rule. A hard
	// stop: downstream reports assume at least one row.
	ErrNoData = errors.New("no time-series fragments found")
	// ErrMalformedPayload means the population payload lacks its
	// records collection entirely.
	ErrMalformedPayload = errors.New("population payload has no data records")
)

// TimeSeriesRow is one observation accumulated from a fragment. Numeric
// coercion failures become nil, never an error.
type TimeSeriesRow struct {
	SeriesID  string   `json:"series_id"`
	Year      *int     `json:"year"`
	Period    string   `json:"period"`
	Value     *float64 `json:"value"`
	SourceKey string   `json:"source_key"`
}

// Table is the assembled time-series dataset. Columns records the union
// of (trimmed) header names seen across fragments so reports can check
// for required columns before computing.
type Table struct {
	Rows      []TimeSeriesRow
	Columns   map[string]struct{}
	Fragments int
}

// HasColumns reports whether every named column appeared in at least
// one fragment header.
func (t *Table) HasColumns(names ...string) bool {
	for _, name := range names {
		if _, ok := t.Columns[name]; !ok {
			return false
		}
	}
	return true
}

// PopulationRow is one normalized population observation.
type PopulationRow struct {
	Year       *int     `json:"year"`
	Population *float64 `json:"population"`
}

// Loader reads datasets out of the blob store.
type Loader struct {
	store  storage.BlobStore
	logger *zap.Logger
}

// NewLoader constructs a Loader.
func NewLoader(store storage.BlobStore, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, logger: logger}
}

// LoadTimeSeries assembles the master table from every fragment under
// prefix whose key contains marker, excluding directory pseudo-keys and
// the population object. Returns ErrNoData when nothing matches.
func (l *Loader) LoadTimeSeries(ctx context.Context, prefix, marker string) (*Table, error) {
	objects, err := l.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list fragments under %q: %w", prefix, err)
	}

	table := &Table{Columns: make(map[string]struct{})}
	for _, obj := range objects {
		if !isFragmentKey(obj.Key, marker) {
			continue
		}
		data, err := l.store.Get(ctx, obj.Key)
		if err != nil {
			return nil, fmt.Errorf("read fragment %q: %w", obj.Key, err)
		}
		rows := parseFragment(obj.Key, data, table.Columns)
		table.Rows = append(table.Rows, rows...)
		table.Fragments++
		l.logger.Debug("loaded fragment", zap.String("key", obj.Key), zap.Int("rows", len(rows)))
	}

	if table.Fragments == 0 {
		return nil, fmt.Errorf("%w under prefix %q", ErrNoData, prefix)
	}
	l.logger.Info("assembled time-series table",
		zap.Int("rows", len(table.Rows)),
		zap.Int("fragments", table.Fragments),
	)
	return table, nil
}

// LoadPopulation reads the population object at key and normalizes it:
// source field names are renamed (Year -> year, Population ->
// population) and numbers are coerced with nil on failure.
func (l *Loader) LoadPopulation(ctx context.Context, key string) ([]PopulationRow, error) {
	raw, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read population object %q: %w", key, err)
	}

	records, err := decodePopulationRecords(raw)
	if err != nil {
		return nil, err
	}

	rows := make([]PopulationRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, PopulationRow{
			Year:       coerceInt(lookupField(record, "year", "Year")),
			Population: coerceFloat(lookupField(record, "population", "Population")),
		})
	}
	l.logger.Info("loaded population records", zap.Int("rows", len(rows)))
	return rows, nil
}

// isFragmentKey applies the fragment selection rule: require the marker
// substring, exclude directory pseudo-keys and the population object.
func isFragmentKey(key, marker string) bool {
	if strings.HasSuffix(key, "/") {
		return false
	}
	if strings.Contains(strings.ToLower(key), "population_data.json") {
		return false
	}
	return strings.Contains(key, marker)
}
