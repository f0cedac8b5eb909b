package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dante-alig/lovelyplace-back/internal/core/model"
	"github.com/dante-alig/lovelyplace-back/internal/search"
)

type Searcher interface {
	Search(ctx context.Context, c model.SearchCriteria) ([]model.RankedResult, error)
}

// HandleSearch serves GET /filter-nearby.
func HandleSearch(logger *slog.Logger, s Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := ParseSearchRequest(r)
		if err != nil {
			writeError(w, logger, r, err)
			return
		}
		res, err := s.Search(r.Context(), c)
		if err != nil {
			writeError(w, logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ParseSearchRequest reads the search criteria from the query string.
// List parameters are comma separated.
func ParseSearchRequest(r *http.Request) (model.SearchCriteria, error) {
	q := r.URL.Query()

	address := strings.TrimSpace(q.Get("address"))
	if address == "" {
		return model.SearchCriteria{}, fmt.Errorf("%w: missing required parameter: address", search.ErrInvalidRequest)
	}
	rawDist := strings.TrimSpace(q.Get("maxDistance"))
	if rawDist == "" {
		return model.SearchCriteria{}, fmt.Errorf("%w: missing required parameter: maxDistance", search.ErrInvalidRequest)
	}
	dist, err := strconv.ParseFloat(rawDist, 64)
	if err != nil {
		return model.SearchCriteria{}, fmt.Errorf("%w: invalid maxDistance %q", search.ErrInvalidRequest, rawDist)
	}

	return model.NewCriteria(address, dist).
		WithCategory(q.Get("placeCategory")).
		WithPostalCode(q.Get("postalCode")).
		WithPriceRange(q.Get("priceRange")).
		WithKeywords(model.SplitList(q.Get("keywords"))...).
		WithRequiredTags(model.SplitList(q.Get("filters"))...).
		Build(), nil
}
