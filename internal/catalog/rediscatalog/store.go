// Package rediscatalog stores locations as JSON documents in Redis with an
// ordered id list preserving insertion order.
package rediscatalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dante-alig/lovelyplace-back/internal/cache/keys"
	"github.com/dante-alig/lovelyplace-back/internal/cache/redisstore"
	"github.com/dante-alig/lovelyplace-back/internal/catalog"
	"github.com/dante-alig/lovelyplace-back/internal/core/model"
)

func init() {
	catalog.Register("redis", func(_ context.Context, deps catalog.Deps, logger *slog.Logger) (catalog.Store, error) {
		if deps.Redis == nil {
			return nil, errors.New("redis catalog requires a redis client")
		}
		return New(deps.Redis, logger), nil
	})
}

type Store struct {
	rc     *redisstore.Client
	logger *slog.Logger
}

func New(rc *redisstore.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{rc: rc, logger: logger}
}

// Find loads every document in list order with one MGET and filters in
// process. Ids whose document vanished are skipped.
func (s *Store) Find(ctx context.Context, p catalog.Predicate) ([]model.Location, error) {
	ids, err := s.rc.ListAll(ctx, keys.LocationIndexKey())
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []model.Location{}, nil
	}

	ks := make([]string, len(ids))
	for i, id := range ids {
		ks[i] = keys.LocationKey(id)
	}
	docs, err := s.rc.MGet(ctx, ks)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}

	out := make([]model.Location, 0, len(ids))
	for _, k := range ks {
		raw, ok := docs[k]
		if !ok {
			continue
		}
		var l model.Location
		if err := json.Unmarshal(raw, &l); err != nil {
			s.logger.Warn("skipping corrupt location document", "key", k, "err", err)
			continue
		}
		if p.Match(l) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (model.Location, error) {
	raw, err := s.rc.Get(ctx, keys.LocationKey(id))
	if errors.Is(err, redisstore.ErrNil) {
		return model.Location{}, catalog.ErrNotFound
	}
	if err != nil {
		return model.Location{}, fmt.Errorf("get location %s: %w", id, err)
	}
	var l model.Location
	if err := json.Unmarshal(raw, &l); err != nil {
		return model.Location{}, fmt.Errorf("decode location %s: %w", id, err)
	}
	return l, nil
}

func (s *Store) Save(ctx context.Context, l *model.Location) error {
	if l.ID == "" {
		l.ID = catalog.NewID()
	}
	b, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}

	key := keys.LocationKey(l.ID)
	_, err = s.rc.Get(ctx, key)
	switch {
	case errors.Is(err, redisstore.ErrNil):
		return s.rc.SetAndAppend(ctx, key, b, keys.LocationIndexKey(), l.ID)
	case err != nil:
		return fmt.Errorf("check location %s: %w", l.ID, err)
	default:
		return s.rc.Set(ctx, key, b, 0)
	}
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return s.rc.DelAndRemove(ctx, keys.LocationKey(id), keys.LocationIndexKey(), id)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	return slices.DeleteFunc(ids, func(id string) bool {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
		return false
	})
}
