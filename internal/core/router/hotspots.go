package router

import (
	"net/http"
	"strconv"

	"github.com/dante-alig/lovelyplace-back/internal/hotness"
)

const (
	defaultHotspots = 10
	maxHotspots     = 100
)

// HandleHotspots lists the H3 cells that receive the most search origins.
func HandleHotspots(hot hotness.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := defaultHotspots
		if raw := r.URL.Query().Get("n"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v <= 0 {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "n must be a positive integer"})
				return
			}
			n = min(v, maxHotspots)
		}
		top := hot.Top(n)
		if top == nil {
			top = []hotness.CellScore{}
		}
		writeJSON(w, http.StatusOK, top)
	}
}
