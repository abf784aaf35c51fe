// Public domain.

package perturb

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/coord"
)

// ErrCacheSize is returned when a cache for the requested span would exceed
// the configured memory limit.
var ErrCacheSize = errors.New("perturber cache exceeds size limit")

// Tick is a point on the cache grid: a macro-step boundary counted in
// whole steps from J2000, and an integrator stage within the step.
//
// Grid times and free-form adaptive times are kept as distinct types.
// Only times that land on a Tick can be served from the cache.
type Tick struct {
	Step  int64
	Stage int
}

// tickTol is the tolerance, in fraction of a macro-step, for recognizing a
// time as a grid point.
const tickTol = 1e-9

// cachePad is the number of extra macro-steps held beyond each end of the
// requested span.
const cachePad = 2

// Grid is the macro-step grid.  H is signed; boundaries are at multiples of
// |H| from J2000 regardless of sign so forward and backward runs over the
// same span share boundaries.
type Grid struct {
	H float64
}

// Floor returns the index of the last boundary at or before jde in the
// direction of integration.
func (g Grid) Floor(jde float64) int64 {
	x := (jde - J2000) / math.Abs(g.H)
	k := math.Round(x)
	if math.Abs(x-k) < tickTol {
		return int64(k)
	}
	if g.H < 0 {
		return int64(math.Ceil(x))
	}
	return int64(math.Floor(x))
}

// Time returns the time of boundary k.
func (g Grid) Time(k int64) float64 {
	return J2000 + float64(k)*math.Abs(g.H)
}

// Next returns the boundary following k in the direction of integration.
func (g Grid) Next(k int64) int64 {
	if g.H < 0 {
		return k - 1
	}
	return k + 1
}

// Cache holds perturber positions on the grid for a fixed span.  It is
// immutable once built and safe for concurrent use.
type Cache struct {
	src   Source
	mask  Mask
	grid  Grid
	fracs []float64
	first int64 // lowest step index held
	n     int64 // number of steps held
	pos   [][NumPerturbers]coord.Cart
}

// NewCache builds the cache of the perturbers in mask for integrations
// between t0 and t1 with macro-step h and stage fractions fracs.  maxBytes
// limits the table size; zero means no limit.
func NewCache(src Source, mask Mask, t0, t1, h float64, fracs []float64, maxBytes int64) (*Cache, error) {
	if h == 0 || len(fracs) == 0 {
		return nil, errors.New("perturber cache: zero step or no stages")
	}
	lo, hi := math.Min(t0, t1), math.Max(t0, t1)
	hs := math.Abs(h)
	kLo := int64(math.Floor((lo-J2000)/hs)) - cachePad
	kHi := int64(math.Ceil((hi-J2000)/hs)) + cachePad
	c := &Cache{
		src:   src,
		mask:  mask,
		grid:  Grid{h},
		fracs: append([]float64{}, fracs...),
		first: kLo,
		n:     kHi - kLo + 1,
	}
	cells := c.n * int64(len(fracs))
	size := cells * NumPerturbers * 3 * 8
	if maxBytes > 0 && size > maxBytes {
		return nil, fmt.Errorf("%w: %d steps, %d bytes, limit %d",
			ErrCacheSize, c.n, size, maxBytes)
	}
	c.pos = make([][NumPerturbers]coord.Cart, cells)
	for k := int64(0); k < c.n; k++ {
		for s := range fracs {
			t := c.TickTime(Tick{c.first + k, s})
			if err := Positions(src, t, mask, &c.pos[k*int64(len(fracs))+int64(s)]); err != nil {
				return nil, fmt.Errorf("building perturber cache: %w", err)
			}
		}
	}
	return c, nil
}

// Mask returns the perturbers held.  Others are at Far.
func (c *Cache) Mask() Mask { return c.mask }

// Grid returns the macro-step grid of the cache.
func (c *Cache) Grid() Grid { return c.grid }

// Steps returns the number of macro-steps held.
func (c *Cache) Steps() int64 { return c.n }

// Bytes returns the approximate size of the position table.
func (c *Cache) Bytes() int64 {
	return int64(len(c.pos)) * NumPerturbers * 3 * 8
}

// TickTime returns the time of a grid point.
func (c *Cache) TickTime(tk Tick) float64 {
	return c.grid.Time(tk.Step) + c.fracs[tk.Stage]*c.grid.H
}

// Tick returns the grid point at time jde, if jde is on the grid within
// tolerance and inside the cached span.
func (c *Cache) Tick(jde float64) (Tick, bool) {
	hs := math.Abs(c.grid.H)
	for s, f := range c.fracs {
		x := (jde - J2000 - f*c.grid.H) / hs
		k := math.Round(x)
		if math.Abs(x-k) >= tickTol {
			continue
		}
		if ki := int64(k); ki >= c.first && ki < c.first+c.n {
			return Tick{ki, s}, true
		}
	}
	return Tick{}, false
}

// At returns the positions stored at a grid point.  The Tick must come
// from Tick.
func (c *Cache) At(tk Tick) *[NumPerturbers]coord.Cart {
	return &c.pos[(tk.Step-c.first)*int64(len(c.fracs))+int64(tk.Stage)]
}

// Positions fills dst with perturber positions at jde.  Times on the grid
// are served from the table; others are computed by the source.  hit
// reports which.
func (c *Cache) Positions(jde float64, dst *[NumPerturbers]coord.Cart) (hit bool, err error) {
	if tk, ok := c.Tick(jde); ok {
		*dst = *c.At(tk)
		return true, nil
	}
	return false, Positions(c.src, jde, c.mask, dst)
}
