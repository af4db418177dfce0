// Package history owns the ordered collection of past generations, newest
// first, persisted whole through a storage.Backend after every mutation.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/manash/visionary/internal/storage"
	"github.com/manash/visionary/pkg/models"
)

// ErrNotPersisted reports that a mutation was applied in memory but the
// durable write failed. The collection returned alongside it is still valid.
var ErrNotPersisted = errors.New("history write failed")

type Store struct {
	mu      sync.Mutex
	backend storage.Backend
	images  []models.GeneratedImage
}

// Open loads the collection from the backend. Missing or unparsable data
// degrades to an empty collection; a session never fails to start because
// its history is gone.
func Open(ctx context.Context, backend storage.Backend) *Store {
	s := &Store{backend: backend}

	data, err := backend.Load(ctx)
	if err != nil || len(data) == 0 {
		return s
	}

	var images []models.GeneratedImage
	if err := json.Unmarshal(data, &images); err != nil {
		return s
	}

	s.images = images
	return s
}

// List returns a snapshot of the collection, newest first.
func (s *Store) List() []models.GeneratedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// Find returns the entry with the given id, if present.
func (s *Store) Find(id string) (models.GeneratedImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, img := range s.images {
		if img.ID == id {
			return img, true
		}
	}
	return models.GeneratedImage{}, false
}

// Add prepends img and persists the whole collection. On a persistence
// failure the in-memory entry is kept and the returned error wraps
// ErrNotPersisted.
func (s *Store) Add(ctx context.Context, img models.GeneratedImage) ([]models.GeneratedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.images = append([]models.GeneratedImage{img}, s.images...)
	return s.snapshot(), s.persist(ctx)
}

// Remove filters out the entry with the given id and persists the result.
// An unknown id is a no-op: the collection is returned unchanged and
// nothing is written.
func (s *Store) Remove(ctx context.Context, id string) ([]models.GeneratedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.images[:0:0]
	for _, img := range s.images {
		if img.ID != id {
			kept = append(kept, img)
		}
	}
	if len(kept) == len(s.images) {
		return s.snapshot(), nil
	}

	s.images = kept
	return s.snapshot(), s.persist(ctx)
}

func (s *Store) snapshot() []models.GeneratedImage {
	out := make([]models.GeneratedImage, len(s.images))
	copy(out, s.images)
	return out
}

func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(s.images)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	return nil
}
