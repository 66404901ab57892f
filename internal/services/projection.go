package services

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

const (
	titleMain     = "Sales over time"
	titleCategory = "Distribution by category"
	titleRegion   = "Sales by region"

	kindPie        = "pie"
	kindGroupedBar = "grouped_bar"

	metaRegion = "region"
)

var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// categoryColor returns the i-th category color. Past the fixed palette it
// steps the hue by the golden angle so later categories stay distinct.
func categoryColor(i int) string {
	if i < len(defaultColors) {
		return defaultColors[i]
	}
	hue := math.Mod(float64(i)*137.508, 360)
	lightness := 45 + 10*((i/len(defaultColors))%3)
	return fmt.Sprintf("hsl(%.1f, 65%%, %d%%)", hue, lightness)
}

// palette maps categories to colors by their first appearance in the source
// dataset, so a category keeps its color whatever the filter.
type palette struct {
	categories []string
	regions    []string
	colors     map[string]string
}

func newPalette(source *models.Dataset) palette {
	p := palette{colors: make(map[string]string)}
	seenRegion := make(map[string]bool)
	for i := 0; i < source.Len(); i++ {
		r := source.At(i)
		if _, ok := p.colors[r.Category]; !ok {
			p.colors[r.Category] = categoryColor(len(p.categories))
			p.categories = append(p.categories, r.Category)
		}
		if !seenRegion[r.Region] {
			seenRegion[r.Region] = true
			p.regions = append(p.regions, r.Region)
		}
	}
	return p
}

// Project builds the three dashboard charts from a filtered view. An empty
// view yields empty specs rather than an error.
func Project(view models.FilteredView, kind models.ChartKind) models.Charts {
	if !kind.Valid() {
		panic("services: Project called with invalid chart kind " + string(kind))
	}

	charts := models.Charts{
		Main: models.ChartSpec{
			Role: models.RoleMain, Kind: string(kind), Title: titleMain,
			XAxis: "Date", YAxis: "Sales", Series: []models.Series{},
		},
		Category: models.ChartSpec{
			Role: models.RoleCategory, Kind: kindPie, Title: titleCategory,
			Series: []models.Series{},
		},
		Region: models.ChartSpec{
			Role: models.RoleRegion, Kind: kindGroupedBar, Title: titleRegion,
			XAxis: "Region", YAxis: "Sales", Series: []models.Series{},
		},
	}

	if view.Empty() {
		charts.Main.Empty = true
		charts.Category.Empty = true
		charts.Region.Empty = true
		return charts
	}

	pal := newPalette(view.Source())
	byCategory := groupByCategory(view)

	charts.Main.Series, charts.Main.Labels = mainSeries(pal, byCategory, kind)
	charts.Category.Series, charts.Category.Labels = categorySeries(pal, byCategory)
	charts.Region.Series, charts.Region.Labels = regionSeries(pal, byCategory)

	return charts
}

func groupByCategory(view models.FilteredView) map[string][]models.SalesRecord {
	groups := make(map[string][]models.SalesRecord)
	for i := 0; i < view.Len(); i++ {
		r := view.At(i)
		groups[r.Category] = append(groups[r.Category], r)
	}
	return groups
}

func mainSeries(pal palette, byCategory map[string][]models.SalesRecord, kind models.ChartKind) ([]models.Series, []string) {
	dates := make(map[time.Time]bool)
	series := make([]models.Series, 0, len(byCategory))

	for _, category := range pal.categories {
		records, ok := byCategory[category]
		if !ok {
			continue
		}
		for _, r := range records {
			dates[r.Date] = true
		}

		var points []models.Point
		switch kind {
		case models.ChartLine:
			ordered := slices.Clone(records)
			slices.SortStableFunc(ordered, func(a, b models.SalesRecord) int {
				return a.Date.Compare(b.Date)
			})
			points = recordPoints(ordered)
		case models.ChartScatter:
			points = recordPoints(records)
		case models.ChartBar:
			points = dailyTotals(records)
		}

		series = append(series, models.Series{
			Name:   category,
			Color:  pal.colors[category],
			Points: points,
		})
	}

	labels := make([]time.Time, 0, len(dates))
	for d := range dates {
		labels = append(labels, d)
	}
	slices.SortFunc(labels, func(a, b time.Time) int { return a.Compare(b) })

	return series, formatDates(labels)
}

func recordPoints(records []models.SalesRecord) []models.Point {
	points := make([]models.Point, 0, len(records))
	for _, r := range records {
		points = append(points, models.Point{
			X:    r.Date.Format(models.DateLayout),
			Y:    toFloat(r.SalesAmount),
			Meta: map[string]string{metaRegion: r.Region},
		})
	}
	return points
}

// dailyTotals sums one category's records per date for the bar view.
func dailyTotals(records []models.SalesRecord) []models.Point {
	type bucket struct {
		total   decimal.Decimal
		regions []string
	}
	buckets := make(map[time.Time]*bucket)
	var order []time.Time

	for _, r := range records {
		b, ok := buckets[r.Date]
		if !ok {
			b = &bucket{total: decimal.Zero}
			buckets[r.Date] = b
			order = append(order, r.Date)
		}
		b.total = b.total.Add(r.SalesAmount)
		if !slices.Contains(b.regions, r.Region) {
			b.regions = append(b.regions, r.Region)
		}
	}
	slices.SortFunc(order, func(a, b time.Time) int { return a.Compare(b) })

	points := make([]models.Point, 0, len(order))
	for _, d := range order {
		b := buckets[d]
		points = append(points, models.Point{
			X:    d.Format(models.DateLayout),
			Y:    toFloat(b.total),
			Meta: map[string]string{metaRegion: strings.Join(b.regions, ", ")},
		})
	}
	return points
}

// categorySeries gives each pie slice its own series so it carries the
// category color.
func categorySeries(pal palette, byCategory map[string][]models.SalesRecord) ([]models.Series, []string) {
	series := make([]models.Series, 0, len(byCategory))
	labels := make([]string, 0, len(byCategory))

	for _, category := range pal.categories {
		records, ok := byCategory[category]
		if !ok {
			continue
		}
		total := decimal.Zero
		for _, r := range records {
			total = total.Add(r.SalesAmount)
		}
		labels = append(labels, category)
		series = append(series, models.Series{
			Name:   category,
			Color:  pal.colors[category],
			Points: []models.Point{{X: category, Y: toFloat(total)}},
		})
	}
	return series, labels
}

func regionSeries(pal palette, byCategory map[string][]models.SalesRecord) ([]models.Series, []string) {
	present := make(map[string]bool)
	series := make([]models.Series, 0, len(byCategory))

	for _, category := range pal.categories {
		records, ok := byCategory[category]
		if !ok {
			continue
		}
		totals := make(map[string]decimal.Decimal)
		for _, r := range records {
			totals[r.Region] = totals[r.Region].Add(r.SalesAmount)
			present[r.Region] = true
		}

		points := make([]models.Point, 0, len(totals))
		for _, region := range pal.regions {
			if total, ok := totals[region]; ok {
				points = append(points, models.Point{X: region, Y: toFloat(total)})
			}
		}
		series = append(series, models.Series{
			Name:   category,
			Color:  pal.colors[category],
			Points: points,
		})
	}

	labels := make([]string, 0, len(present))
	for _, region := range pal.regions {
		if present[region] {
			labels = append(labels, region)
		}
	}
	return series, labels
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(models.DateLayout)
	}
	return out
}

func toFloat(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
