// Public domain.

package perturb

import (
	"fmt"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/meeus/v3/planetposition"
	"github.com/soniakeys/meeus/v3/pluto"
)

// VSOP87 is an analytic series source: VSOP87B for the planets, the meeus
// Pluto theory, and the meeus lunar theory.  It requires the VSOP87B data
// files.
type VSOP87 struct {
	planets [8]*planetposition.V87Planet
}

var v87Index = [8]int{
	Mercury: planetposition.Mercury,
	Venus:   planetposition.Venus,
	Earth:   planetposition.Earth,
	Mars:    planetposition.Mars,
	Jupiter: planetposition.Jupiter,
	Saturn:  planetposition.Saturn,
	Uranus:  planetposition.Uranus,
	Neptune: planetposition.Neptune,
}

// LoadVSOP87 loads the VSOP87B series files from directory dir.
// A missing file is an error.
func LoadVSOP87(dir string) (*VSOP87, error) {
	var v VSOP87
	for p, ib := range v87Index {
		pl, err := planetposition.LoadPlanetPath(ib, dir)
		if err != nil {
			return nil, fmt.Errorf("loading VSOP87 %v: %w", Perturber(p), err)
		}
		v.planets[p] = pl
	}
	return &v, nil
}

// Position implements Source.
func (v *VSOP87) Position(p Perturber, jde float64) (coord.Cart, error) {
	switch {
	case p >= Mercury && p <= Neptune:
		l, b, r := v.planets[p].Position2000(jde)
		return sphCart(l.Rad(), b.Rad(), r), nil
	case p == Pluto:
		l, b, r := pluto.Heliocentric(jde)
		return sphCart(l.Rad(), b.Rad(), r), nil
	case p == Moon:
		l, b, r := v.planets[Earth].Position2000(jde)
		e := sphCart(l.Rad(), b.Rad(), r)
		m := moonGeocentric(jde)
		e.Add(&e, &m)
		return e, nil
	}
	return coord.Cart{}, ErrNotModeled
}
