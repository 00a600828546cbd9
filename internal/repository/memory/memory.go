// Package memory is a process-local ResourceRepository. It backs the
// "memory" store driver for demos and is the store the service and handler
// tests run against.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/model"
	"github.com/sakif/resource-showcase/internal/repository"
)

// Store keeps resources in a map guarded by a RWMutex.
type Store struct {
	mu    sync.RWMutex
	items map[string]model.Resource

	// now is swappable so tests can control createdAt.
	now func() time.Time
}

var _ repository.ResourceRepository = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[string]model.Resource), now: time.Now}
}

// NewWithClock returns a store that stamps createdAt from now.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

func clone(r model.Resource) model.Resource {
	r.Tags = append([]string{}, r.Tags...)
	return r
}

func (s *Store) Create(_ context.Context, r *model.Resource) error {
	r.ID = xid.New().String()
	r.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	if r.Tags == nil {
		r.Tags = []string{}
	}

	s.mu.Lock()
	s.items[r.ID] = clone(*r)
	s.mu.Unlock()
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*model.Resource, error) {
	s.mu.RLock()
	r, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperror.NotFound("resource", id)
	}
	r = clone(r)
	return &r, nil
}

func (s *Store) Update(_ context.Context, id string, patch model.ResourcePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return apperror.NotFound("resource", id)
	}
	patch.Apply(&r)
	s.items[id] = r
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// snapshot returns copies of the resources accepted by keep, newest first.
func (s *Store) snapshot(keep func(model.Resource) bool) []model.Resource {
	s.mu.RLock()
	out := make([]model.Resource, 0, len(s.items))
	for _, r := range s.items {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	s.mu.RUnlock()
	repository.SortNewestFirst(out)
	return out
}

func (s *Store) ListPublished(ctx context.Context, q repository.PublishedQuery) (*repository.Page, error) {
	after, err := repository.DecodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}
	category := repository.NormalizeCategory(q.Category)

	fetch := func(_ context.Context, after *repository.Cursor, n int) ([]model.Resource, error) {
		candidates := s.snapshot(func(r model.Resource) bool {
			if !r.IsPublished || (category != "" && r.Category != category) {
				return false
			}
			return after == nil || after.Before(r)
		})
		if len(candidates) > n {
			candidates = candidates[:n]
		}
		return candidates, nil
	}
	return repository.CollectPage(ctx, fetch, q.Search, q.Limit, after)
}

func (s *Store) ListAll(context.Context) ([]model.Resource, error) {
	return s.snapshot(func(model.Resource) bool { return true }), nil
}

func (s *Store) ListFeatured(_ context.Context, limit int) ([]model.Resource, error) {
	out := s.snapshot(func(r model.Resource) bool { return r.IsPublished && r.Featured })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }
