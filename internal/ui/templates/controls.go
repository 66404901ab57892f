package templates

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

var chartKindLabels = []struct {
	kind  models.ChartKind
	label string
}{
	{models.ChartLine, "Line"},
	{models.ChartBar, "Bar"},
	{models.ChartScatter, "Scatter"},
}

// Signals is the client-side filter state the controls bind to. Sales
// bounds travel as decimal strings so they come back exactly as sent.
type Signals struct {
	StartDate  string          `json:"startDate"`
	EndDate    string          `json:"endDate"`
	SalesMin   decimal.Decimal `json:"salesMin"`
	SalesMax   decimal.Decimal `json:"salesMax"`
	Categories []string        `json:"categories"`
	Regions    []string        `json:"regions"`
	ChartKind  string          `json:"chartKind"`
}

func SignalsFromFilter(f models.FilterState) Signals {
	s := Signals{
		StartDate:  f.DateStart.Format(models.DateLayout),
		EndDate:    f.DateEnd.Format(models.DateLayout),
		SalesMin:   f.SalesMin,
		SalesMax:   f.SalesMax,
		Categories: slices.Clone(f.Categories),
		Regions:    slices.Clone(f.Regions),
		ChartKind:  string(f.ChartKind),
	}
	if s.Categories == nil {
		s.Categories = []string{}
	}
	if s.Regions == nil {
		s.Regions = []string{}
	}
	return s
}

func dateValue(t time.Time) string {
	return t.Format(models.DateLayout)
}

func displayDate(t time.Time) string {
	return t.Format(models.DisplayDateLayout)
}

// The slider track spans whole units so both bounds stay reachable.
func sliderMin(r models.ControlRanges) string {
	return r.SalesMin.Floor().String()
}

func sliderMax(r models.ControlRanges) string {
	return r.SalesMax.Ceil().String()
}
