// Package pgcatalog is the Postgres catalog driver. Set attributes live in
// text[] columns so the compiled predicate runs in the database.
package pgcatalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/dante-alig/lovelyplace-back/internal/catalog"
	"github.com/dante-alig/lovelyplace-back/internal/core/model"
)

// Schema is the table the driver expects. Creating it is left to the
// operator.
const Schema = `CREATE TABLE IF NOT EXISTS locations (
	seq          BIGSERIAL,
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	address      TEXT NOT NULL,
	description  TEXT NOT NULL,
	tips         TEXT NOT NULL DEFAULT '',
	social_media TEXT NOT NULL DEFAULT '',
	media_links  TEXT[] NOT NULL DEFAULT '{}',
	hours        JSONB,
	price_range  TEXT NOT NULL DEFAULT '',
	keywords     TEXT[] NOT NULL DEFAULT '{}',
	filters      TEXT[] NOT NULL DEFAULT '{}',
	postal_code  TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT '',
	photos       TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS locations_category_idx ON locations (category);
CREATE INDEX IF NOT EXISTS locations_filters_gin ON locations USING GIN (filters);
CREATE INDEX IF NOT EXISTS locations_keywords_gin ON locations USING GIN (keywords);`

const columns = `id, name, address, description, tips, social_media, media_links, hours,
	price_range, keywords, filters, postal_code, category, photos`

func init() {
	catalog.Register("postgres", func(ctx context.Context, deps catalog.Deps, logger *slog.Logger) (catalog.Store, error) {
		if deps.PostgresDSN == "" {
			return nil, errors.New("postgres catalog requires POSTGRES_DSN")
		}
		return Open(ctx, deps.PostgresDSN, logger)
	})
}

type row struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Address     string         `db:"address"`
	Description string         `db:"description"`
	Tips        string         `db:"tips"`
	SocialMedia string         `db:"social_media"`
	MediaLinks  pq.StringArray `db:"media_links"`
	Hours       []byte         `db:"hours"`
	PriceRange  string         `db:"price_range"`
	Keywords    pq.StringArray `db:"keywords"`
	Filters     pq.StringArray `db:"filters"`
	PostalCode  string         `db:"postal_code"`
	Category    string         `db:"category"`
	Photos      pq.StringArray `db:"photos"`
}

func toRow(l model.Location) (row, error) {
	r := row{
		ID:          l.ID,
		Name:        l.Name,
		Address:     l.Address,
		Description: l.Description,
		Tips:        l.Tips,
		SocialMedia: l.SocialMedia,
		MediaLinks:  nonNil(l.MediaLinks),
		PriceRange:  l.PriceRange,
		Keywords:    nonNil(l.Keywords),
		Filters:     nonNil(l.Filters),
		PostalCode:  l.PostalCode,
		Category:    l.Category,
		Photos:      nonNil(l.Photos),
	}
	if l.Hours != nil {
		b, err := json.Marshal(l.Hours)
		if err != nil {
			return row{}, fmt.Errorf("encode hours: %w", err)
		}
		r.Hours = b
	}
	return r, nil
}

func (r row) location() (model.Location, error) {
	l := model.Location{
		ID:          r.ID,
		Name:        r.Name,
		Address:     r.Address,
		Description: r.Description,
		Tips:        r.Tips,
		SocialMedia: r.SocialMedia,
		MediaLinks:  emptyToNil(r.MediaLinks),
		PriceRange:  r.PriceRange,
		Keywords:    emptyToNil(r.Keywords),
		Filters:     emptyToNil(r.Filters),
		PostalCode:  r.PostalCode,
		Category:    r.Category,
		Photos:      []string(r.Photos),
	}
	if len(r.Hours) > 0 {
		if err := json.Unmarshal(r.Hours, &l.Hours); err != nil {
			return model.Location{}, fmt.Errorf("decode hours of %s: %w", r.ID, err)
		}
	}
	return l, nil
}

type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)
	return New(db, logger), nil
}

func New(db *sqlx.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// findQuery renders the SELECT for p in catalog (insertion) order.
func findQuery(p catalog.Predicate) (string, []any) {
	where, args := p.SQL(1)
	for i, a := range args {
		if s, ok := a.([]string); ok {
			args[i] = pq.StringArray(s)
		}
	}
	return fmt.Sprintf("SELECT %s FROM locations WHERE %s ORDER BY seq", columns, where), args
}

func (s *Store) Find(ctx context.Context, p catalog.Predicate) ([]model.Location, error) {
	q, args := findQuery(p)
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("select locations: %w", err)
	}
	out := make([]model.Location, 0, len(rows))
	for _, r := range rows {
		l, err := r.location()
		if err != nil {
			s.logger.Warn("skipping undecodable location", "id", r.ID, "err", err)
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (model.Location, error) {
	var r row
	err := s.db.GetContext(ctx, &r, "SELECT "+columns+" FROM locations WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Location{}, catalog.ErrNotFound
	}
	if err != nil {
		return model.Location{}, fmt.Errorf("select location %s: %w", id, err)
	}
	return r.location()
}

const upsert = `INSERT INTO locations (` + columns + `)
VALUES (:id, :name, :address, :description, :tips, :social_media, :media_links, :hours,
	:price_range, :keywords, :filters, :postal_code, :category, :photos)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name, address = EXCLUDED.address, description = EXCLUDED.description,
	tips = EXCLUDED.tips, social_media = EXCLUDED.social_media, media_links = EXCLUDED.media_links,
	hours = EXCLUDED.hours, price_range = EXCLUDED.price_range, keywords = EXCLUDED.keywords,
	filters = EXCLUDED.filters, postal_code = EXCLUDED.postal_code, category = EXCLUDED.category,
	photos = EXCLUDED.photos`

func (s *Store) Save(ctx context.Context, l *model.Location) error {
	if l.ID == "" {
		l.ID = catalog.NewID()
	}
	r, err := toRow(*l)
	if err != nil {
		return err
	}
	if _, err := s.db.NamedExecContext(ctx, upsert, r); err != nil {
		return fmt.Errorf("upsert location %s: %w", l.ID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM locations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete location %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nonNil(v []string) pq.StringArray {
	if v == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(v)
}

func emptyToNil(v pq.StringArray) []string {
	if len(v) == 0 {
		return nil
	}
	return []string(v)
}
