package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"regexp"
	"strings"

	"github.com/dante-alig/lovelyplace-back/internal/core/model"
)

// locationPayload is a create or update body. Absent fields leave the
// record untouched. List and map fields accept native JSON, a string
// holding JSON, or (lists only) a comma separated string.
type locationPayload struct {
	Name        *string         `json:"locationName"`
	Address     *string         `json:"locationAddress"`
	Description *string         `json:"locationDescription"`
	Tips        *string         `json:"tips"`
	SocialMedia *string         `json:"socialmedia"`
	PriceRange  *string         `json:"priceRange"`
	PostalCode  *string         `json:"postalCode"`
	Category    *string         `json:"placeCategory"`
	MediaLink   json.RawMessage `json:"mediaLink"`
	Hours       json.RawMessage `json:"hours"`
	Keywords    json.RawMessage `json:"keywords"`
	Filters     json.RawMessage `json:"filters"`
	Photos      json.RawMessage `json:"photos"`
}

func payloadFromForm(form *multipart.Form) locationPayload {
	str := func(k string) *string {
		if v, ok := form.Value[k]; ok && len(v) > 0 {
			s := v[0]
			return &s
		}
		return nil
	}
	raw := func(k string) json.RawMessage {
		v := str(k)
		if v == nil {
			return nil
		}
		b, _ := json.Marshal(*v)
		return b
	}
	return locationPayload{
		Name:        str("locationName"),
		Address:     str("locationAddress"),
		Description: str("locationDescription"),
		Tips:        str("tips"),
		SocialMedia: str("socialmedia"),
		PriceRange:  str("priceRange"),
		PostalCode:  str("postalCode"),
		Category:    str("placeCategory"),
		MediaLink:   raw("mediaLink"),
		Hours:       raw("hours"),
		Keywords:    raw("keywords"),
		Filters:     raw("filters"),
	}
}

func (p locationPayload) applyTo(l *model.Location) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&l.Name, p.Name)
	set(&l.Address, p.Address)
	set(&l.Description, p.Description)
	set(&l.Tips, p.Tips)
	set(&l.SocialMedia, p.SocialMedia)
	set(&l.PriceRange, p.PriceRange)
	set(&l.PostalCode, p.PostalCode)
	set(&l.Category, p.Category)

	lists := []struct {
		name string
		raw  json.RawMessage
		dst  *[]string
	}{
		{"mediaLink", p.MediaLink, &l.MediaLinks},
		{"keywords", p.Keywords, &l.Keywords},
		{"filters", p.Filters, &l.Filters},
		{"photos", p.Photos, &l.Photos},
	}
	for _, f := range lists {
		v, ok, err := flexibleList(f.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		if ok {
			*f.dst = v
		}
	}
	l.MediaLinks = extractLinks(l.MediaLinks)

	if h, ok, err := flexibleMap(p.Hours); err != nil {
		return fmt.Errorf("hours: %w", err)
	} else if ok {
		l.Hours = h
	}
	return nil
}

// unwrapString returns the inner JSON of a string-encoded value.
func unwrapString(raw json.RawMessage) (json.RawMessage, string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return raw, "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw, "", false
	}
	return json.RawMessage(strings.TrimSpace(s)), s, true
}

func flexibleList(raw json.RawMessage) ([]string, bool, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, false, nil
	}
	inner, s, wasString := unwrapString(raw)
	if wasString && !bytes.HasPrefix(inner, []byte("[")) {
		return model.SplitList(s), true, nil
	}
	var out []string
	if err := json.Unmarshal(inner, &out); err != nil {
		return nil, false, fmt.Errorf("expected a list of strings: %w", err)
	}
	return out, true, nil
}

func flexibleMap(raw json.RawMessage) (map[string]string, bool, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, false, nil
	}
	inner, s, wasString := unwrapString(raw)
	if wasString && strings.TrimSpace(s) == "" {
		return nil, true, nil
	}
	var out map[string]string
	if err := json.Unmarshal(inner, &out); err != nil {
		return nil, false, fmt.Errorf("expected an object of strings: %w", err)
	}
	return out, true, nil
}

var hrefPattern = regexp.MustCompile(`href=["']([^"']+)["']`)

// extractLinks keeps the href target of embed snippets and plain links as is.
func extractLinks(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if m := hrefPattern.FindStringSubmatch(s); m != nil {
			out = append(out, m[1])
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
