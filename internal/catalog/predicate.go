package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dante-alig/lovelyplace-back/internal/core/model"
)

// Predicate is the conjunction of the present criteria fields. The zero
// value is the identity predicate and matches every record.
type Predicate struct {
	category   *string
	postalCode *string
	priceRange *string
	keywords   []string // any-of
	tags       []string // all-of
}

// Compile turns criteria into a Predicate. Absent fields contribute nothing.
func Compile(c model.SearchCriteria) Predicate {
	return Predicate{
		category:   c.Category,
		postalCode: c.PostalCode,
		priceRange: c.PriceRange,
		keywords:   slices.Clone(c.Keywords),
		tags:       slices.Clone(c.RequiredTags),
	}
}

func (p Predicate) IsIdentity() bool {
	return p.category == nil && p.postalCode == nil && p.priceRange == nil &&
		len(p.keywords) == 0 && len(p.tags) == 0
}

func (p Predicate) Match(l model.Location) bool {
	if p.category != nil && l.Category != *p.category {
		return false
	}
	if p.postalCode != nil && l.PostalCode != *p.postalCode {
		return false
	}
	if p.priceRange != nil && l.PriceRange != *p.priceRange {
		return false
	}
	if len(p.keywords) > 0 && !slices.ContainsFunc(l.Keywords, func(k string) bool {
		return slices.Contains(p.keywords, k)
	}) {
		return false
	}
	for _, t := range p.tags {
		if !slices.Contains(l.Filters, t) {
			return false
		}
	}
	return true
}

// SQL renders the predicate as a Postgres WHERE fragment with positional
// placeholders starting at $firstArg. Set arguments are []string; the caller
// adapts them to its driver's array type. An identity predicate renders
// "TRUE" with no args.
func (p Predicate) SQL(firstArg int) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(format string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(format, firstArg+len(args)-1))
	}
	if p.category != nil {
		add("category = $%d", *p.category)
	}
	if p.postalCode != nil {
		add("postal_code = $%d", *p.postalCode)
	}
	if p.priceRange != nil {
		add("price_range = $%d", *p.priceRange)
	}
	if len(p.keywords) > 0 {
		add("keywords && $%d", slices.Clone(p.keywords))
	}
	if len(p.tags) > 0 {
		add("filters @> $%d", slices.Clone(p.tags))
	}
	if len(clauses) == 0 {
		return "TRUE", nil
	}
	return strings.Join(clauses, " AND "), args
}

func (p Predicate) String() string {
	if p.IsIdentity() {
		return "*"
	}
	var parts []string
	if p.category != nil {
		parts = append(parts, "category="+*p.category)
	}
	if p.postalCode != nil {
		parts = append(parts, "postalCode="+*p.postalCode)
	}
	if p.priceRange != nil {
		parts = append(parts, "priceRange="+*p.priceRange)
	}
	if len(p.keywords) > 0 {
		parts = append(parts, "keywords~"+strings.Join(p.keywords, "|"))
	}
	if len(p.tags) > 0 {
		parts = append(parts, "filters>="+strings.Join(p.tags, "&"))
	}
	return strings.Join(parts, " ")
}
