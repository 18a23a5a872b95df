// Package store persists which listings already had applications generated,
// so repeated runs against the same sources skip finished work.
package store

// SeenStore tracks listing IDs across runs.
type SeenStore interface {
	HasGenerated(listingID string) (bool, error)
	MarkGenerated(listingID string) error
	Close() error
}

// NopStore is used when no database path is configured. Every listing appears
// new on each run.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) HasGenerated(string) (bool, error) { return false, nil }
func (s *NopStore) MarkGenerated(string) error        { return nil }
func (s *NopStore) Close() error                      { return nil }
