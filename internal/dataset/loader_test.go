package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/laborsync/internal/storage/memory"
)

const fragmentData = "series_id\tyear\tperiod\tvalue\tfootnote_codes\n" +
	"PRS30006011 \t2020\tQ01\t1.5\t\n" +
	"PRS30006011 \t2020\tQ02\t2.5\tr\n" +
	"PRS30006012 \t2021\tQ01\tbogus\t\n"

func seedStore(t *testing.T) *memory.BlobStore {
	t.Helper()
	ctx := context.Background()
	store := memory.NewBlobStore()
	_, err := store.Put(ctx, "bls-data/pr.data.0.Current", "", []byte(fragmentData))
	require.NoError(t, err)
	_, err = store.Put(ctx, "bls-data/pr.data.1.AllData",
		"", []byte("series_id\tyear\tperiod\tvalue\tfootnote_codes\nPRS30006013\t2019\tQ03\t7\t\n"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "bls-data/pr.series", "", []byte("series_id\ttitle\nPRS30006011\tOutput\n"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "bls-data/population_data.json", "application/json",
		[]byte(`{"data":[{"Year":"2013","Population":311536594}]}`))
	require.NoError(t, err)
	return store
}

func TestLoadTimeSeriesSelectsDataFragmentsOnly(t *testing.T) {
	t.Parallel()

	loader := NewLoader(seedStore(t), zap.NewNop())
	table, err := loader.LoadTimeSeries(context.Background(), "bls-data/", "pr.data")
	require.NoError(t, err)

	require.Equal(t, 2, table.Fragments)
	require.Len(t, table.Rows, 4)
	for _, row := range table.Rows {
		require.NotContains(t, row.SourceKey, "pr.series")
		require.NotContains(t, row.SourceKey, "population_data")
	}
}

func TestLoadTimeSeriesNormalizesRows(t *testing.T) {
	t.Parallel()

	loader := NewLoader(seedStore(t), zap.NewNop())
	table, err := loader.LoadTimeSeries(context.Background(), "bls-data/", "pr.data")
	require.NoError(t, err)

	first := table.Rows[0]
	require.Equal(t, "PRS30006011", first.SeriesID)
	require.Equal(t, "Q01", first.Period)
	require.NotNil(t, first.Year)
	require.Equal(t, 2020, *first.Year)
	require.NotNil(t, first.Value)
	require.InDelta(t, 1.5, *first.Value, 1e-9)
	require.Equal(t, "bls-data/pr.data.0.Current", first.SourceKey)

	// Unparsable numeric value becomes nil, the row survives.
	third := table.Rows[2]
	require.Equal(t, "PRS30006012", third.SeriesID)
	require.Nil(t, third.Value)
	require.NotNil(t, third.Year)
	require.Equal(t, 2021, *third.Year)
}

func TestLoadTimeSeriesRecordsColumns(t *testing.T) {
	t.Parallel()

	loader := NewLoader(seedStore(t), zap.NewNop())
	table, err := loader.LoadTimeSeries(context.Background(), "bls-data/", "pr.data")
	require.NoError(t, err)

	require.True(t, table.HasColumns("series_id", "year", "period", "value"))
	require.False(t, table.HasColumns("population"))
}

func TestLoadTimeSeriesNoFragmentsIsHardStop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewBlobStore()
	_, err := store.Put(ctx, "bls-data/population_data.json", "", []byte(`{"data":[]}`))
	require.NoError(t, err)

	loader := NewLoader(store, zap.NewNop())
	_, err = loader.LoadTimeSeries(ctx, "bls-data/", "pr.data")
	require.ErrorIs(t, err, ErrNoData)
}

func TestLoadPopulationRenamesAndCoerces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewBlobStore()
	_, err := store.Put(ctx, "bls-data/population_data.json", "", []byte(`{
		"data": [
			{"Year": "2013", "Population": 311536594, "Nation": "United States"},
			{"Year": "2014", "Population": "314107084"},
			{"Year": "n/a", "Population": "unknown"}
		]
	}`))
	require.NoError(t, err)

	rows, err := NewLoader(store, zap.NewNop()).LoadPopulation(ctx, "bls-data/population_data.json")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NotNil(t, rows[0].Year)
	require.Equal(t, 2013, *rows[0].Year)
	require.NotNil(t, rows[0].Population)
	require.InDelta(t, 311536594, *rows[0].Population, 1e-9)

	require.NotNil(t, rows[1].Population)
	require.InDelta(t, 314107084, *rows[1].Population, 1e-9)

	require.Nil(t, rows[2].Year)
	require.Nil(t, rows[2].Population)
}

func TestLoadPopulationMissingRecordsIsMalformed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewBlobStore()
	_, err := store.Put(ctx, "bls-data/population_data.json", "", []byte(`{"source":[]}`))
	require.NoError(t, err)

	_, err = NewLoader(store, zap.NewNop()).LoadPopulation(ctx, "bls-data/population_data.json")
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseFragmentSkipsOverlongRows(t *testing.T) {
	t.Parallel()

	columns := map[string]struct{}{}
	rows := parseFragment("k", []byte(
		"series_id\tyear\tperiod\tvalue\n"+
			"S1\t2020\tQ01\t1.0\n"+
			"S1\t2020\tQ02\t1.0\textra\tfields\n"+
			"S1\t2021\tQ01\n"), columns)

	require.Len(t, rows, 2)
	require.Equal(t, "Q01", rows[0].Period)
	// Short row: missing trailing value coerces to nil.
	require.Nil(t, rows[1].Value)
	require.NotNil(t, rows[1].Year)
	require.Equal(t, 2021, *rows[1].Year)
}

func TestCoerceHelpers(t *testing.T) {
	t.Parallel()

	require.Nil(t, coerceFloat("abc"))
	require.Nil(t, coerceFloat(""))
	require.NotNil(t, coerceFloat(" 3.25 "))
	require.InDelta(t, 3.25, *coerceFloat(" 3.25 "), 1e-9)

	require.Nil(t, coerceInt("Q01"))
	require.Nil(t, coerceInt("2013.5"))
	require.NotNil(t, coerceInt("2013.0"))
	require.Equal(t, 2013, *coerceInt("2013.0"))
	require.Equal(t, 2013, *coerceInt("2013"))
}
