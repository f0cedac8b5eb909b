// Package hotness tracks how often search origins fall in each H3 cell.
package hotness

type Interface interface {
	Inc(cell string)
	Score(cell string) float64
	Reset(cells ...string)
	Top(n int) []CellScore
}

type CellScore struct {
	Cell  string  `json:"cell"`
	Score float64 `json:"score"`
}
