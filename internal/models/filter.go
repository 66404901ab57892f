package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type ChartKind string

const (
	ChartLine    ChartKind = "line"
	ChartBar     ChartKind = "bar"
	ChartScatter ChartKind = "scatter"

	DefaultChartKind = ChartBar
)

func (k ChartKind) Valid() bool {
	switch k {
	case ChartLine, ChartBar, ChartScatter:
		return true
	}
	return false
}

// FilterState holds the user's current control values. Empty Categories or
// Regions mean no restriction.
type FilterState struct {
	DateStart  time.Time
	DateEnd    time.Time
	SalesMin   decimal.Decimal
	SalesMax   decimal.Decimal
	Categories []string
	Regions    []string
	ChartKind  ChartKind
}

func (f FilterState) Validate() error {
	if !f.ChartKind.Valid() {
		return fmt.Errorf("unknown chart kind %q", f.ChartKind)
	}
	if f.DateEnd.Before(f.DateStart) {
		return fmt.Errorf("date range start %s is after end %s",
			f.DateStart.Format(DateLayout), f.DateEnd.Format(DateLayout))
	}
	if f.SalesMin.GreaterThan(f.SalesMax) {
		return fmt.Errorf("sales range min %s is greater than max %s", f.SalesMin, f.SalesMax)
	}
	return nil
}

func (f FilterState) Clone() FilterState {
	f.Categories = slices.Clone(f.Categories)
	f.Regions = slices.Clone(f.Regions)
	return f
}

// ControlRanges are the valid bounds and choices for every filter control,
// derived from a non-empty dataset.
type ControlRanges struct {
	DateMin    time.Time
	DateMax    time.Time
	Categories []string
	Regions    []string
	SalesMin   decimal.Decimal
	SalesMax   decimal.Decimal
}

const (
	// DisplayDateLayout is how the date range control shows dates.
	DisplayDateLayout = "02.01.2006"

	SalesStep      = 500
	salesMarkEvery = 1000
	maxSalesMarks  = 10
)

// SalesMarks labels the sales slider from zero up to SalesMax, one mark per
// 1000. Wider ranges widen the interval so there are at most maxSalesMarks
// intervals.
func (r ControlRanges) SalesMarks() []decimal.Decimal {
	every := decimal.NewFromInt(salesMarkEvery)
	intervals := r.SalesMax.Div(every).Ceil()
	if !intervals.IsPositive() {
		return []decimal.Decimal{decimal.Zero}
	}

	if limit := decimal.NewFromInt(maxSalesMarks); intervals.GreaterThan(limit) {
		every = every.Mul(intervals.Div(limit).Ceil())
		intervals = r.SalesMax.Div(every).Ceil()
	}

	n := intervals.IntPart()
	marks := make([]decimal.Decimal, 0, n+1)
	for i := int64(0); i <= n; i++ {
		marks = append(marks, every.Mul(decimal.NewFromInt(i)))
	}
	return marks
}
