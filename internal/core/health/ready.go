package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// ReadinessReporter is implemented by background consumers that need a
// partition assignment before they are useful.
type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

// Probe checks one dependency. A nil error means ready.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

var errNoPartitions = errors.New("no partitions assigned")

// FromReporter adapts a ReadinessReporter to a Probe.
func FromReporter(name string, rr ReadinessReporter) Probe {
	return Probe{Name: name, Check: func(context.Context) error {
		if ready, _ := rr.Readiness(); !ready {
			return errNoPartitions
		}
		return nil
	}}
}

// Readiness reports 200 when every probe passes and 503 otherwise.
func Readiness(timeout time.Duration, probes ...Probe) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks,omitempty"`
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		out := resp{Status: "ready"}
		if len(probes) > 0 {
			out.Checks = make(map[string]string, len(probes))
		}
		for _, p := range probes {
			if err := p.Check(ctx); err != nil {
				out.Status = "not_ready"
				out.Checks[p.Name] = err.Error()
				continue
			}
			out.Checks[p.Name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		if out.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
