package dataset

import (
	"sync/atomic"

	"sales-dashboard/internal/models"
)

// Store holds the active dataset. Replace swaps the pointer atomically, so
// readers see either the previous dataset or the new one.
type Store struct {
	active  atomic.Pointer[models.Dataset]
	version atomic.Uint64
}

func NewStore(initial *models.Dataset) *Store {
	s := &Store{}
	if initial != nil {
		s.Replace(initial)
	}
	return s
}

// Get returns the active dataset and false when nothing has been loaded yet.
func (s *Store) Get() (*models.Dataset, bool) {
	ds := s.active.Load()
	return ds, ds != nil
}

func (s *Store) Replace(ds *models.Dataset) {
	if ds == nil {
		panic("dataset: Replace called with nil dataset")
	}
	s.active.Store(ds)
	s.version.Add(1)
}

// Version counts successful replacements.
func (s *Store) Version() uint64 {
	return s.version.Load()
}
