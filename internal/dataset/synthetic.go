package dataset

import (
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

const (
	syntheticName = "synthetic"
	minSale       = 100
	maxSale       = 5000
)

var (
	SyntheticCategories = []string{"Electronics", "Furniture", "Clothing"}
	SyntheticRegions    = []string{"North", "South", "East", "West"}

	syntheticStart = time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	syntheticEnd   = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Synthetic generates the demo dataset: every day from 2025-04-20 to
// 2025-12-31 once per category, with random amounts in [100, 5000) and a
// random region. The same seed always yields the same dataset.
func Synthetic(seed uint64) *models.Dataset {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var days []time.Time
	for d := syntheticStart; !d.After(syntheticEnd); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	records := make([]models.SalesRecord, 0, len(days)*len(SyntheticCategories))
	for _, category := range SyntheticCategories {
		for _, day := range days {
			records = append(records, models.SalesRecord{
				Date:        day,
				Category:    category,
				SalesAmount: decimal.NewFromInt(int64(minSale + rng.IntN(maxSale-minSale))),
				Region:      SyntheticRegions[rng.IntN(len(SyntheticRegions))],
			})
		}
	}

	return models.NewDataset(syntheticName, records)
}
