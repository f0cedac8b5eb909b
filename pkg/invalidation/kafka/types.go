package kafka

import (
	"errors"
	"strings"
	"time"
)

// WireEvent asks consumers to forget cached geocodes. Address and Addresses
// may both be set; Version is per address and only newer versions apply.
type WireEvent struct {
	Address    string    `json:"address,omitempty"`
	Addresses  []string  `json:"addresses,omitempty"`
	LocationID string    `json:"locationId,omitempty"`
	Version    uint64    `json:"version"`
	TS         time.Time `json:"ts"`
	Op         string    `json:"op,omitempty"`
}

func (w WireEvent) targets() []string {
	var out []string
	if a := strings.TrimSpace(w.Address); a != "" {
		out = append(out, a)
	}
	for _, a := range w.Addresses {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (w WireEvent) Validate() error {
	if len(w.targets()) == 0 {
		return errors.New("event has no address")
	}
	return nil
}
