// Public domain.

package perturb

import (
	"fmt"
	"math"
	"sort"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/encke/internal/kepel"
)

// Source supplies heliocentric ecliptic J2000 positions of perturbers.
// Implementations must be safe for concurrent use.
type Source interface {
	Position(p Perturber, jde float64) (coord.Cart, error)
}

// J2000 is the Julian ephemeris date of the J2000.0 epoch.
const J2000 = 2451545.0

// obliquity of the ecliptic at J2000, IAU 2006
var sOblJ2000, cOblJ2000 = math.Sincos(84381.406 / 3600 * math.Pi / 180)

// sphCart converts spherical ecliptic coordinates to rectangular.
func sphCart(l, b, r float64) coord.Cart {
	sl, cl := math.Sincos(l)
	sb, cb := math.Sincos(b)
	return coord.Cart{X: r * cb * cl, Y: r * cb * sl, Z: r * sb}
}

// Track is the motion of a promoted asteroid, represented as a sequence of
// osculating elements.  Position uses the element set with the epoch
// nearest the requested time.
type Track struct {
	els []kepel.Elements
}

// NewTrack constructs a Track.  The elements need not be sorted.
func NewTrack(els []kepel.Elements) *Track {
	t := &Track{els: append([]kepel.Elements{}, els...)}
	sort.Slice(t.els, func(i, j int) bool {
		return t.els[i].Epoch < t.els[j].Epoch
	})
	for i := range t.els {
		t.els[i].Setup() // no lazy setup once shared across workers
	}
	return t
}

// Len returns the number of element sets in the track.
func (t *Track) Len() int { return len(t.els) }

// Position returns the two-body position from the nearest element set.
func (t *Track) Position(jde float64) coord.Cart {
	i := sort.Search(len(t.els), func(i int) bool {
		return t.els[i].Epoch >= jde
	})
	switch {
	case i == len(t.els):
		i--
	case i > 0 && jde-t.els[i-1].Epoch < t.els[i].Epoch-jde:
		i--
	}
	p, _ := t.els[i].State(jde)
	return p
}

// System is the complete perturber source for a run: major bodies from a
// backend, promoted asteroids from their tracks, and placeholder positions
// for everything not enabled.
type System struct {
	Bodies  Source
	Tracks  [3]*Track // Ceres, Pallas, Vesta
	Enabled Mask
}

// Position implements Source.
func (s *System) Position(p Perturber, jde float64) (coord.Cart, error) {
	if !s.Enabled.Has(p) {
		return Far, nil
	}
	if p.Asteroid() {
		if tr := s.Tracks[p-Ceres]; tr != nil && tr.Len() > 0 {
			return tr.Position(jde), nil
		}
		return Far, nil
	}
	return s.Bodies.Position(p, jde)
}

// Active returns the enabled perturbers that actually have positions.
func (s *System) Active() Mask {
	m := s.Enabled
	for p := Ceres; p <= Vesta; p++ {
		if tr := s.Tracks[p-Ceres]; tr == nil || tr.Len() == 0 {
			m = m.Without(p)
		}
	}
	return m
}

// Positions fills dst with positions at time jde of the perturbers in mask.
// Others get the placeholder Far; src is not asked for them.
func Positions(src Source, jde float64, mask Mask, dst *[NumPerturbers]coord.Cart) error {
	for p := range dst {
		if !mask.Has(Perturber(p)) {
			dst[p] = Far
			continue
		}
		c, err := src.Position(Perturber(p), jde)
		if err != nil {
			return fmt.Errorf("%v at JDE %.5f: %w", Perturber(p), jde, err)
		}
		dst[p] = c
	}
	return nil
}
