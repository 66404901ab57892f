package services

import (
	"sales-dashboard/internal/models"
)

// Filter returns the records of ds that satisfy every predicate in f, in
// their original order. Date and sales bounds are inclusive; an empty
// category or region selection lets every value through.
func Filter(ds *models.Dataset, f models.FilterState) models.FilteredView {
	categories := toSet(f.Categories)
	regions := toSet(f.Regions)

	n := ds.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		r := ds.At(i)
		if r.Date.Before(f.DateStart) || r.Date.After(f.DateEnd) {
			continue
		}
		if r.SalesAmount.LessThan(f.SalesMin) || r.SalesAmount.GreaterThan(f.SalesMax) {
			continue
		}
		if categories != nil && !categories[r.Category] {
			continue
		}
		if regions != nil && !regions[r.Region] {
			continue
		}
		indices = append(indices, i)
	}

	return models.NewFilteredView(ds, indices)
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
