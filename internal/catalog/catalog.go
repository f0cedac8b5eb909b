// Package catalog defines the location store contract, the criteria
// compiler and a name -> factory registry of store drivers.
package catalog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dante-alig/lovelyplace-back/internal/cache/redisstore"
	"github.com/dante-alig/lovelyplace-back/internal/core/model"
)

var ErrNotFound = errors.New("location not found")

// Store is the catalog collaborator. Find returns records in catalog order.
type Store interface {
	Find(ctx context.Context, p Predicate) ([]model.Location, error)
	FindByID(ctx context.Context, id string) (model.Location, error)
	// Save inserts or replaces a record, assigning an ID when empty.
	Save(ctx context.Context, l *model.Location) error
	Delete(ctx context.Context, id string) error
}

// Deps are the shared connections a driver may need.
type Deps struct {
	Redis       *redisstore.Client
	PostgresDSN string
}

type Factory func(ctx context.Context, deps Deps, logger *slog.Logger) (Store, error)

var reg = map[string]Factory{}

func Register(name string, f Factory) {
	reg[name] = f
}

func Open(ctx context.Context, name string, deps Deps, logger *slog.Logger) (Store, error) {
	f, ok := reg[name]
	if !ok {
		return nil, fmt.Errorf("unknown catalog driver %q (have %v)", name, Drivers())
	}
	return f(ctx, deps, logger)
}

func Drivers() []string {
	out := make([]string, 0, len(reg))
	for k := range reg {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewID returns a 24 char hex id.
func NewID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
