// Package memstore is an in-process catalog kept in insertion order.
package memstore

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/dante-alig/lovelyplace-back/internal/catalog"
	"github.com/dante-alig/lovelyplace-back/internal/core/model"
)

func init() {
	catalog.Register("memory", func(_ context.Context, _ catalog.Deps, _ *slog.Logger) (catalog.Store, error) {
		return New(), nil
	})
}

type Store struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]model.Location
}

func New(seed ...model.Location) *Store {
	s := &Store{docs: make(map[string]model.Location, len(seed))}
	for i := range seed {
		_ = s.Save(context.Background(), &seed[i])
	}
	return s
}

func (s *Store) Find(_ context.Context, p catalog.Predicate) ([]model.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Location, 0, len(s.order))
	for _, id := range s.order {
		if l := s.docs[id]; p.Match(l) {
			out = append(out, clone(l))
		}
	}
	return out, nil
}

func (s *Store) FindByID(_ context.Context, id string) (model.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.docs[id]
	if !ok {
		return model.Location{}, catalog.ErrNotFound
	}
	return clone(l), nil
}

func (s *Store) Save(_ context.Context, l *model.Location) error {
	if l.ID == "" {
		l.ID = catalog.NewID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[l.ID]; !ok {
		s.order = append(s.order, l.ID)
	}
	s.docs[l.ID] = clone(*l)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(s.docs, id)
	s.order = slices.DeleteFunc(s.order, func(x string) bool { return x == id })
	return nil
}

func clone(l model.Location) model.Location {
	l.MediaLinks = slices.Clone(l.MediaLinks)
	l.Keywords = slices.Clone(l.Keywords)
	l.Filters = slices.Clone(l.Filters)
	l.Photos = slices.Clone(l.Photos)
	l.Hours = maps.Clone(l.Hours)
	return l
}
