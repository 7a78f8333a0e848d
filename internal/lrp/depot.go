package lrp

import "fmt"

// DepotSite is one candidate depot location. ID is its stable catalog index.
type DepotSite struct {
	ID          int
	X, Y        float64
	OpeningCost float64
	Capacity    int
}

// Catalog is the immutable set of candidate depot sites shared by every
// scenario and configuration of a run.
type Catalog struct {
	sites []DepotSite
}

// NewCatalog validates sites and renumbers them so that ID equals the
// position in the catalog.
func NewCatalog(sites []DepotSite) (*Catalog, error) {
	if len(sites) == 0 {
		return nil, ErrEmptyCatalog
	}
	out := make([]DepotSite, len(sites))
	for i, s := range sites {
		if s.Capacity <= 0 {
			return nil, fmt.Errorf("depot %d: capacity must be > 0 (got %d): %w", i, s.Capacity, ErrInputMalformed)
		}
		if s.OpeningCost < 0 {
			return nil, fmt.Errorf("depot %d: opening cost must be >= 0 (got %f): %w", i, s.OpeningCost, ErrInputMalformed)
		}
		s.ID = i
		out[i] = s
	}
	return &Catalog{sites: out}, nil
}

func (c *Catalog) Len() int { return len(c.sites) }

// Site returns the site with the given id. It panics on an unknown id.
func (c *Catalog) Site(id int) DepotSite { return c.sites[id] }

// Lookup returns the site with the given id and whether it exists.
func (c *Catalog) Lookup(id int) (DepotSite, bool) {
	if id < 0 || id >= len(c.sites) {
		return DepotSite{}, false
	}
	return c.sites[id], true
}

func (c *Catalog) Sites() []DepotSite { return append([]DepotSite(nil), c.sites...) }

func (c *Catalog) Capacities() []int {
	out := make([]int, len(c.sites))
	for i, s := range c.sites {
		out[i] = s.Capacity
	}
	return out
}

func (c *Catalog) OpeningCosts() []float64 {
	out := make([]float64, len(c.sites))
	for i, s := range c.sites {
		out[i] = s.OpeningCost
	}
	return out
}

// Equal reports whether both catalogs list the same sites in the same order.
func (c *Catalog) Equal(o *Catalog) bool {
	if c == nil || o == nil {
		return c == o
	}
	if len(c.sites) != len(o.sites) {
		return false
	}
	for i := range c.sites {
		if c.sites[i] != o.sites[i] {
			return false
		}
	}
	return true
}
