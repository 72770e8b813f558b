package domain

// Facets narrows what a generation request should cover.
type Facets struct {
	Horizons   []Horizon
	Categories []string
}
