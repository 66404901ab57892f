package services

import (
	"errors"

	"sales-dashboard/internal/models"
)

var ErrEmptyDataset = errors.New("dataset has no records")

// Derive computes the bounds and choices for every filter control.
// Categories and regions keep first-seen order.
func Derive(ds *models.Dataset) (models.ControlRanges, error) {
	if ds.Len() == 0 {
		return models.ControlRanges{}, ErrEmptyDataset
	}

	first := ds.At(0)
	ranges := models.ControlRanges{
		DateMin:  first.Date,
		DateMax:  first.Date,
		SalesMin: first.SalesAmount,
		SalesMax: first.SalesAmount,
	}

	seenCategory := make(map[string]bool)
	seenRegion := make(map[string]bool)

	for i := 0; i < ds.Len(); i++ {
		r := ds.At(i)
		if r.Date.Before(ranges.DateMin) {
			ranges.DateMin = r.Date
		}
		if r.Date.After(ranges.DateMax) {
			ranges.DateMax = r.Date
		}
		if r.SalesAmount.LessThan(ranges.SalesMin) {
			ranges.SalesMin = r.SalesAmount
		}
		if r.SalesAmount.GreaterThan(ranges.SalesMax) {
			ranges.SalesMax = r.SalesAmount
		}
		if !seenCategory[r.Category] {
			seenCategory[r.Category] = true
			ranges.Categories = append(ranges.Categories, r.Category)
		}
		if !seenRegion[r.Region] {
			seenRegion[r.Region] = true
			ranges.Regions = append(ranges.Regions, r.Region)
		}
	}

	return ranges, nil
}

// DefaultFilterState covers the full ranges with no category or region
// restriction. The chart kind carries over from prior when it is set.
func DefaultFilterState(ranges models.ControlRanges, prior models.ChartKind) models.FilterState {
	kind := prior
	if !kind.Valid() {
		kind = models.DefaultChartKind
	}
	return models.FilterState{
		DateStart: ranges.DateMin,
		DateEnd:   ranges.DateMax,
		SalesMin:  ranges.SalesMin,
		SalesMax:  ranges.SalesMax,
		ChartKind: kind,
	}
}
