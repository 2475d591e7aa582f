package catalog

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Store holds the current catalog snapshot. Refresh swaps the snapshot
// wholesale; a failed refresh leaves the previous catalog in place, so
// downstream consumers keep a stale-but-available view over an empty one.
type Store struct {
	client  *Client
	current atomic.Pointer[Catalog]
}

func NewStore(client *Client) *Store {
	s := &Store{client: client}
	s.current.Store(New(nil, nil))
	return s
}

// NewStoreWith returns a store pre-seeded with a snapshot and no
// client. Refresh is not available; used where the catalog is fixed.
func NewStoreWith(cat *Catalog) *Store {
	s := &Store{}
	s.current.Store(cat)
	return s
}

// Current returns the latest snapshot. Never nil; an unloaded store
// reads as an empty catalog, which the pipeline treats as "no devices
// yet" rather than an error.
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// Refresh fetches a new snapshot and installs it atomically.
func (s *Store) Refresh(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("%w: store has no client", ErrMetadataLoad)
	}
	cat, err := s.client.LoadMetadata(ctx)
	if err != nil {
		return err
	}
	s.current.Store(cat)
	return nil
}
