package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

type SalesRecord struct {
	Date        time.Time
	Category    string
	SalesAmount decimal.Decimal
	Region      string
}

// Dataset is an immutable, ordered set of sales records. It is only ever
// replaced wholesale, never edited.
type Dataset struct {
	name     string
	loadedAt time.Time
	records  []SalesRecord
}

// NewDataset copies records so later changes to the caller's slice cannot
// leak into the dataset.
func NewDataset(name string, records []SalesRecord) *Dataset {
	return &Dataset{
		name:     name,
		loadedAt: time.Now(),
		records:  slices.Clone(records),
	}
}

func (d *Dataset) Name() string {
	if d == nil {
		return ""
	}
	return d.name
}

func (d *Dataset) LoadedAt() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.loadedAt
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

func (d *Dataset) At(i int) SalesRecord {
	return d.records[i]
}

// Records returns a copy of the dataset rows.
func (d *Dataset) Records() []SalesRecord {
	if d == nil {
		return nil
	}
	return slices.Clone(d.records)
}

// FilteredView is a subsequence of a dataset, held as indices into it.
type FilteredView struct {
	source  *Dataset
	indices []int
}

func NewFilteredView(source *Dataset, indices []int) FilteredView {
	return FilteredView{source: source, indices: indices}
}

func (v FilteredView) Source() *Dataset { return v.source }

func (v FilteredView) Len() int { return len(v.indices) }

func (v FilteredView) At(i int) SalesRecord {
	return v.source.At(v.indices[i])
}

func (v FilteredView) Empty() bool { return len(v.indices) == 0 }

func (v FilteredView) Records() []SalesRecord {
	out := make([]SalesRecord, 0, len(v.indices))
	for _, idx := range v.indices {
		out = append(out, v.source.At(idx))
	}
	return out
}

// Total sums sales_amount across the view.
func (v FilteredView) Total() decimal.Decimal {
	total := decimal.Zero
	for _, idx := range v.indices {
		total = total.Add(v.source.At(idx).SalesAmount)
	}
	return total
}
