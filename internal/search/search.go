// Package search implements the proximity search: geocode the origin, fetch
// candidates matching the compiled filters, geocode candidates concurrently,
// keep those within the radius and rank them by distance.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dante-alig/lovelyplace-back/internal/catalog"
	"github.com/dante-alig/lovelyplace-back/internal/core/model"
	"github.com/dante-alig/lovelyplace-back/internal/core/observability"
	"github.com/dante-alig/lovelyplace-back/internal/events"
	"github.com/dante-alig/lovelyplace-back/internal/geo"
	"github.com/dante-alig/lovelyplace-back/internal/geocode"
	"github.com/dante-alig/lovelyplace-back/internal/hotness"
	"github.com/dante-alig/lovelyplace-back/internal/logger"
)

// Errors returned by Search. Causes are wrapped, so match with errors.Is.
var (
	ErrInvalidRequest      = errors.New("invalid search request")
	ErrOriginGeocodeFailed = errors.New("origin address could not be geocoded")
	ErrCatalogUnavailable  = errors.New("catalog unavailable")
	ErrTimeout             = errors.New("search timed out")
)

type Config struct {
	// Timeout bounds a whole search; zero means only the caller's context.
	Timeout time.Duration
	// OriginTimeout bounds the origin geocode.
	OriginTimeout time.Duration
	// CandidateTimeout bounds each candidate geocode. Expiry drops only that candidate.
	CandidateTimeout time.Duration
	// MaxWorkers is the number of concurrent candidate geocodes. Defaults to 8.
	MaxWorkers int
	// RequireScope rejects searches with no filter besides the radius.
	RequireScope bool
	// H3Res is the resolution of result and hotness cells; negative disables cells.
	H3Res int
}

// Publisher receives one event per finished search. It must not block.
type Publisher interface {
	Publish(ev events.SearchEvent)
}

type Option func(*Engine)

func WithHotness(h hotness.Interface) Option { return func(e *Engine) { e.hot = h } }

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.pub = p } }

// Engine runs proximity searches. It is safe for concurrent use.
type Engine struct {
	cfg      Config
	geocoder geocode.Resolver
	store    catalog.Store
	hot      hotness.Interface
	pub      Publisher
	logger   *slog.Logger
}

// New builds an Engine. geocoder should already go through the geocode cache.
func New(cfg Config, geocoder geocode.Resolver, store catalog.Store, logger *slog.Logger, opts ...Option) *Engine {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 8
	}
	e := &Engine{
		cfg:      cfg,
		geocoder: geocoder,
		store:    store,
		pub:      events.Discard{},
		logger:   logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

type candidate struct {
	coord model.Coordinate
	err   error
	done  bool
}

type run struct {
	id         string
	originCell string
	candidates int
	dropped    int
}

// Search geocodes the origin, loads the catalog candidates matching c and
// returns those within c.MaxDistanceKm, nearest first. Candidates with equal
// distance keep catalog order. A candidate whose address cannot be geocoded
// is dropped and never fails the search. The result is non-nil on success.
//
// Errors:
//   - ErrInvalidRequest: blank origin, non-positive or non-finite radius, or
//     no filter when Config.RequireScope is set. No outbound call is made.
//   - ErrOriginGeocodeFailed: the provider could not resolve the origin.
//   - ErrCatalogUnavailable: the candidate query failed.
//   - ErrTimeout: the origin or overall deadline expired.
//
// Cancellation by the caller returns the context error unwrapped.
func (e *Engine) Search(ctx context.Context, c model.SearchCriteria) (out []model.RankedResult, err error) {
	start := time.Now()
	r := run{id: logger.NewID()}
	ctx = logger.WithSearchID(ctx, r.id)
	log := logger.With(ctx, e.logger)

	defer func() {
		dur := time.Since(start)
		outcome := outcomeOf(err)
		observability.ObserveSearch(outcome, len(out), dur.Seconds())
		if errors.Is(err, ErrInvalidRequest) {
			return
		}
		ev := events.SearchEvent{
			SearchID:   r.id,
			OriginCell: r.originCell,
			RadiusKm:   c.MaxDistanceKm,
			Candidates: r.candidates,
			Results:    len(out),
			Dropped:    r.dropped,
			Outcome:    outcome,
			DurationMs: dur.Milliseconds(),
		}
		if c.Category != nil {
			ev.Category = *c.Category
		}
		e.pub.Publish(ev)
		log.Info("search done", "outcome", outcome, "candidates", r.candidates,
			"results", len(out), "dropped", r.dropped, "dur", dur.String())
	}()

	if err := validate(c); err != nil {
		return nil, err
	}
	pred := catalog.Compile(c)
	if e.cfg.RequireScope && pred.IsIdentity() {
		return nil, fmt.Errorf("%w: at least one filter is required", ErrInvalidRequest)
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	origin, err := e.geocodeOrigin(ctx, c.OriginAddress)
	if err != nil {
		return nil, err
	}
	if cell, ok := e.cellOf(origin); ok {
		r.originCell = cell
		if e.hot != nil {
			e.hot.Inc(cell)
		}
	}

	cands, err := e.store.Find(ctx, pred)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: catalog: %w", ErrTimeout, err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	r.candidates = len(cands)
	log.Debug("candidates fetched", "predicate", pred.String(), "n", len(cands))

	coords := e.geocodeCandidates(ctx, cands)
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, err
	}

	drops := map[string]int{}
	out = make([]model.RankedResult, 0, len(cands))
	for i, cand := range cands {
		g := coords[i]
		if !g.done || g.err != nil {
			reason := dropReason(g)
			drops[reason]++
			log.Debug("candidate dropped", "id", cand.ID, "reason", reason, "err", g.err)
			continue
		}
		d := geo.DistanceKm(origin, g.coord)
		if d > c.MaxDistanceKm {
			continue
		}
		res := model.RankedResult{
			Location:   cand,
			DistanceKm: d,
			Latitude:   g.coord.Lat,
			Longitude:  g.coord.Lng,
		}
		if cell, ok := e.cellOf(g.coord); ok {
			res.Cell = cell
		}
		out = append(out, res)
	}
	for reason, n := range drops {
		observability.AddCandidatesDropped(reason, n)
		r.dropped += n
	}

	// out is in catalog order, so a stable sort keeps it for equal distances
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

func (e *Engine) geocodeOrigin(ctx context.Context, address string) (model.Coordinate, error) {
	octx := ctx
	if e.cfg.OriginTimeout > 0 {
		var cancel context.CancelFunc
		octx, cancel = context.WithTimeout(ctx, e.cfg.OriginTimeout)
		defer cancel()
	}
	coord, err := e.geocoder.Resolve(octx, address)
	if err == nil {
		return coord, nil
	}
	if errors.Is(octx.Err(), context.DeadlineExceeded) {
		return model.Coordinate{}, fmt.Errorf("%w: origin geocode: %w", ErrTimeout, err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return model.Coordinate{}, ctx.Err()
	}
	return model.Coordinate{}, fmt.Errorf("%w: %w", ErrOriginGeocodeFailed, err)
}

// geocodeCandidates resolves every candidate address with a bounded worker
// pool. The result slice is indexed like cands, so completion order never
// affects ranking.
func (e *Engine) geocodeCandidates(ctx context.Context, cands []model.Location) []candidate {
	out := make([]candidate, len(cands))
	if len(cands) == 0 {
		return out
	}

	type result struct {
		idx   int
		coord model.Coordinate
		err   error
	}
	jobs := make(chan int)
	results := make(chan result, len(cands))

	workerN := min(e.cfg.MaxWorkers, len(cands))
	var wg sync.WaitGroup
	wg.Add(workerN)
	for range workerN {
		go func() {
			defer wg.Done()
			for i := range jobs {
				cctx, cancel := ctx, context.CancelFunc(func() {})
				if e.cfg.CandidateTimeout > 0 {
					cctx, cancel = context.WithTimeout(ctx, e.cfg.CandidateTimeout)
				}
				coord, err := e.geocoder.Resolve(cctx, cands[i].Address)
				cancel()
				results <- result{idx: i, coord: coord, err: err}
			}
		}()
	}

feed:
	for i := range cands {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	for r := range results {
		out[r.idx] = candidate{coord: r.coord, err: r.err, done: true}
	}
	return out
}

func (e *Engine) cellOf(c model.Coordinate) (string, bool) {
	if e.cfg.H3Res < 0 {
		return "", false
	}
	cell, err := geo.CellOf(c, e.cfg.H3Res)
	if err != nil {
		return "", false
	}
	return cell, true
}

func validate(c model.SearchCriteria) error {
	if strings.TrimSpace(c.OriginAddress) == "" {
		return fmt.Errorf("%w: origin address is required", ErrInvalidRequest)
	}
	d := c.MaxDistanceKm
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return fmt.Errorf("%w: maxDistance must be a positive number of km", ErrInvalidRequest)
	}
	return nil
}

func dropReason(c candidate) string {
	switch {
	case !c.done:
		return "not_attempted"
	case errors.Is(c.err, context.DeadlineExceeded):
		return "timeout"
	default:
		return string(geocode.ReasonOf(c.err))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrOriginGeocodeFailed):
		return "origin_geocode_failed"
	case errors.Is(err, ErrCatalogUnavailable):
		return "catalog_unavailable"
	default:
		return "canceled"
	}
}
