package services

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/models"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func record(d int, category, amount, region string) models.SalesRecord {
	return models.SalesRecord{
		Date:        day(d),
		Category:    category,
		SalesAmount: decimal.RequireFromString(amount),
		Region:      region,
	}
}

// abDataset has A=[100, 200] and B=[300].
func abDataset() *models.Dataset {
	return models.NewDataset("ab.csv", []models.SalesRecord{
		record(1, "A", "100", "North"),
		record(2, "A", "200", "South"),
		record(1, "B", "300", "North"),
	})
}

func fullFilter(t *testing.T, ds *models.Dataset, kind models.ChartKind) models.FilterState {
	t.Helper()
	ranges, err := Derive(ds)
	require.NoError(t, err)
	return DefaultFilterState(ranges, kind)
}

func pieValues(c models.Charts) map[string]float64 {
	out := make(map[string]float64)
	for _, s := range c.Category.Series {
		for _, p := range s.Points {
			out[p.X] += p.Y
		}
	}
	return out
}

func TestDerive(t *testing.T) {
	ds := models.NewDataset("d", []models.SalesRecord{
		record(5, "Toys", "50", "West"),
		record(2, "Books", "10.5", "East"),
		record(9, "Toys", "900", "East"),
	})

	ranges, err := Derive(ds)
	require.NoError(t, err)
	assert.Equal(t, day(2), ranges.DateMin)
	assert.Equal(t, day(9), ranges.DateMax)
	assert.Equal(t, "10.5", ranges.SalesMin.String())
	assert.Equal(t, "900", ranges.SalesMax.String())
	assert.Equal(t, []string{"Toys", "Books"}, ranges.Categories)
	assert.Equal(t, []string{"West", "East"}, ranges.Regions)
}

func TestDerive_EmptyDataset(t *testing.T) {
	_, err := Derive(models.NewDataset("empty", nil))
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Derive(nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestDefaultFilterState_ChartKind(t *testing.T) {
	ranges, err := Derive(abDataset())
	require.NoError(t, err)

	assert.Equal(t, models.ChartBar, DefaultFilterState(ranges, "").ChartKind)
	assert.Equal(t, models.ChartLine, DefaultFilterState(ranges, models.ChartLine).ChartKind)

	f := DefaultFilterState(ranges, "")
	assert.Empty(t, f.Categories)
	assert.Empty(t, f.Regions)
	assert.NoError(t, f.Validate())
}

func TestFilter_FullRangeIsIdentity(t *testing.T) {
	for _, ds := range []*models.Dataset{abDataset(), dataset.Synthetic(3)} {
		view := Filter(ds, fullFilter(t, ds, models.ChartBar))
		assert.Equal(t, ds.Records(), view.Records(), ds.Name())
	}
}

func TestFilter_RetainedRecordsSatisfyEveryPredicate(t *testing.T) {
	ds := dataset.Synthetic(11)
	ranges, err := Derive(ds)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	span := int(ranges.DateMax.Sub(ranges.DateMin).Hours() / 24)

	for i := 0; i < 50; i++ {
		start := ranges.DateMin.AddDate(0, 0, rng.IntN(span))
		end := start.AddDate(0, 0, rng.IntN(60))
		lo := decimal.NewFromInt(int64(rng.IntN(3000)))
		hi := lo.Add(decimal.NewFromInt(int64(rng.IntN(3000))))

		f := models.FilterState{
			DateStart: start, DateEnd: end,
			SalesMin: lo, SalesMax: hi,
			ChartKind: models.ChartBar,
		}
		if rng.IntN(2) == 0 {
			f.Categories = []string{dataset.SyntheticCategories[rng.IntN(len(dataset.SyntheticCategories))]}
		}
		if rng.IntN(2) == 0 {
			f.Regions = []string{dataset.SyntheticRegions[rng.IntN(len(dataset.SyntheticRegions))]}
		}

		view := Filter(ds, f)
		kept := 0
		for j := 0; j < ds.Len(); j++ {
			r := ds.At(j)
			match := !r.Date.Before(start) && !r.Date.After(end) &&
				!r.SalesAmount.LessThan(lo) && !r.SalesAmount.GreaterThan(hi) &&
				(len(f.Categories) == 0 || slices.Contains(f.Categories, r.Category)) &&
				(len(f.Regions) == 0 || slices.Contains(f.Regions, r.Region))
			if match {
				require.Less(t, kept, view.Len())
				assert.Equal(t, r, view.At(kept))
				kept++
			}
		}
		assert.Equal(t, kept, view.Len())

		charts := Project(view, f.ChartKind)
		var pieSum float64
		for _, v := range pieValues(charts) {
			pieSum += v
		}
		assert.InDelta(t, view.Total().InexactFloat64(), pieSum, 0.01)
	}
}

func TestFilter_DoesNotMutateSource(t *testing.T) {
	ds := abDataset()
	before := ds.Records()
	f := fullFilter(t, ds, models.ChartBar)
	f.Categories = []string{"B"}

	Filter(ds, f)
	assert.Equal(t, before, ds.Records())
}

func TestProject_FullRangeScenario(t *testing.T) {
	ds := abDataset()
	charts := Project(Filter(ds, fullFilter(t, ds, models.ChartBar)), models.ChartBar)

	assert.Equal(t, map[string]float64{"A": 300, "B": 300}, pieValues(charts))
	assert.Equal(t, []string{"A", "B"}, charts.Category.Labels)

	main := charts.Main
	assert.Equal(t, "bar", main.Kind)
	assert.Equal(t, []string{"2025-01-01", "2025-01-02"}, main.Labels)
	require.Len(t, main.Series, 2)
	assert.Equal(t, []models.Point{
		{X: "2025-01-01", Y: 100, Meta: map[string]string{"region": "North"}},
		{X: "2025-01-02", Y: 200, Meta: map[string]string{"region": "South"}},
	}, main.Series[0].Points)
	assert.Equal(t, []models.Point{
		{X: "2025-01-01", Y: 300, Meta: map[string]string{"region": "North"}},
	}, main.Series[1].Points)

	region := charts.Region
	assert.Equal(t, []string{"North", "South"}, region.Labels)
	require.Len(t, region.Series, 2)
	assert.Equal(t, []models.Point{{X: "North", Y: 100}, {X: "South", Y: 200}}, region.Series[0].Points)
	assert.Equal(t, []models.Point{{X: "North", Y: 300}}, region.Series[1].Points)
}

func TestProject_SalesRangeKeepsOnlyB(t *testing.T) {
	ds := abDataset()
	f := fullFilter(t, ds, models.ChartBar)
	f.SalesMin = decimal.NewFromInt(250)
	f.SalesMax = decimal.NewFromInt(400)

	view := Filter(ds, f)
	require.Equal(t, 1, view.Len())
	assert.Equal(t, record(1, "B", "300", "North"), view.At(0))

	charts := Project(view, f.ChartKind)
	assert.Equal(t, map[string]float64{"B": 300}, pieValues(charts))
	assert.Equal(t, []string{"B"}, charts.Category.Labels)
}

func TestProject_ColorsStableAcrossChartsAndFilters(t *testing.T) {
	ds := abDataset()
	full := Project(Filter(ds, fullFilter(t, ds, models.ChartLine)), models.ChartLine)

	colorOf := func(series []models.Series, name string) string {
		for _, s := range series {
			if s.Name == name {
				return s.Color
			}
		}
		return ""
	}
	for _, c := range []string{"A", "B"} {
		want := colorOf(full.Main.Series, c)
		require.NotEmpty(t, want)
		assert.Equal(t, want, colorOf(full.Category.Series, c))
		assert.Equal(t, want, colorOf(full.Region.Series, c))
	}

	f := fullFilter(t, ds, models.ChartLine)
	f.Categories = []string{"B"}
	onlyB := Project(Filter(ds, f), models.ChartLine)
	assert.Equal(t, colorOf(full.Main.Series, "B"), colorOf(onlyB.Main.Series, "B"))
}

func TestProject_ManyCategoriesGetDistinctColors(t *testing.T) {
	var records []models.SalesRecord
	for i := 0; i < 60; i++ {
		records = append(records, record(1+i%28, "cat-"+strconv.Itoa(i), "10", "N"))
	}
	ds := models.NewDataset("many", records)
	charts := Project(Filter(ds, fullFilter(t, ds, models.ChartBar)), models.ChartBar)

	require.Len(t, charts.Category.Series, 60)
	assert.Equal(t, defaultColors[0], charts.Category.Series[0].Color)
	seen := make(map[string]string)
	for _, s := range charts.Category.Series {
		if prev, ok := seen[s.Color]; ok {
			t.Errorf("%s and %s share color %s", prev, s.Name, s.Color)
		}
		seen[s.Color] = s.Name
	}
}

func TestProject_LineOrdersByDateScatterKeepsViewOrder(t *testing.T) {
	ds := models.NewDataset("d", []models.SalesRecord{
		record(3, "A", "30", "N"),
		record(1, "A", "10", "N"),
		record(2, "A", "20", "S"),
	})
	view := Filter(ds, fullFilter(t, ds, models.ChartLine))

	xs := func(c models.Charts) []string {
		var out []string
		for _, p := range c.Main.Series[0].Points {
			out = append(out, p.X)
		}
		return out
	}
	assert.Equal(t, []string{"2025-01-01", "2025-01-02", "2025-01-03"}, xs(Project(view, models.ChartLine)))
	assert.Equal(t, []string{"2025-01-03", "2025-01-01", "2025-01-02"}, xs(Project(view, models.ChartScatter)))
}

func TestProject_BarSumsSameDay(t *testing.T) {
	ds := models.NewDataset("d", []models.SalesRecord{
		record(1, "A", "10.25", "N"),
		record(1, "A", "5", "S"),
		record(1, "A", "1", "N"),
	})
	charts := Project(Filter(ds, fullFilter(t, ds, models.ChartBar)), models.ChartBar)

	require.Len(t, charts.Main.Series[0].Points, 1)
	p := charts.Main.Series[0].Points[0]
	assert.Equal(t, 16.25, p.Y)
	assert.Equal(t, "N, S", p.Meta["region"])
}

func TestProject_EmptyView(t *testing.T) {
	ds := abDataset()
	f := fullFilter(t, ds, models.ChartScatter)
	f.Regions = []string{"Nowhere"}

	charts := Project(Filter(ds, f), f.ChartKind)
	assert.True(t, charts.Empty())
	assert.Empty(t, charts.Main.Series)
	assert.Empty(t, charts.Category.Series)
	assert.Empty(t, charts.Region.Series)
	assert.Equal(t, "scatter", charts.Main.Kind)
}

func TestProject_InvalidKindPanics(t *testing.T) {
	ds := abDataset()
	view := Filter(ds, fullFilter(t, ds, models.ChartBar))
	assert.Panics(t, func() { Project(view, "pie") })
}
