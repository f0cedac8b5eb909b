package geocode

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
)

type Factory func(cfg Config, client *http.Client, logger *slog.Logger) (Resolver, error)

var reg = map[string]Factory{}

func Register(name string, f Factory) {
	reg[name] = f
}

// New builds the named provider, falling back to google for unknown names.
func New(name string, cfg Config, client *http.Client, logger *slog.Logger) (Resolver, error) {
	if f, ok := reg[name]; ok {
		return f(cfg, client, logger)
	}
	if f, ok := reg["google"]; ok {
		logger.Warn("unknown geocoder; falling back to google", "provider", name)
		return f(cfg, client, logger)
	}
	return nil, fmt.Errorf("no factory for geocoder %q and no google registered", name)
}

func Providers() []string {
	out := make([]string, 0, len(reg))
	for k := range reg {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
