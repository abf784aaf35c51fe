// Public domain.

package encke

import (
	"math"

	"github.com/soniakeys/astro"
	"github.com/soniakeys/coord"
	"github.com/soniakeys/encke/internal/perturb"
)

// speed of light, AU/day
const cAUDay = 173.1446326846693

// Deviation is the perturbed state minus the reference orbit state,
// position then velocity.
type Deviation [6]float64

func (d *Deviation) pos() coord.Cart { return coord.Cart{X: d[0], Y: d[1], Z: d[2]} }
func (d *Deviation) vel() coord.Cart { return coord.Cart{X: d[3], Y: d[4], Z: d[5]} }

// Zero reports whether every component is exactly zero.
func (d *Deviation) Zero() bool {
	return *d == Deviation{}
}

// Softening returns the scale applied to the pull of a body of radius r at
// distance d.  It is 0 inside .8r, 1 at r and beyond, and follows a cubic
// smoothstep between.
func Softening(d, r float64) float64 {
	if r <= 0 {
		return 1
	}
	x := d / r
	switch {
	case x >= 1:
		return 1
	case x <= .8:
		return 0
	}
	u := (x - .8) / .2
	return u * u * (3 - 2*u)
}

// twoBodyDiff returns the difference between two-body acceleration at
// rho = r+delta and at r, without subtracting nearly equal quantities.
//
//	rho/|rho|³ - r/|r|³ = delta/|rho|³ + r(1/|rho|³ - 1/|r|³)
//	1/ρ³ - 1/r³ = -(2r·δ + δ²)(r² + rρ + ρ²) / ((r + ρ)ρ³r³)
func twoBodyDiff(r, delta, rho *coord.Cart) coord.Cart {
	r2 := r.Square()
	rm := math.Sqrt(r2)
	rho2 := rho.Square()
	rhom := math.Sqrt(rho2)
	r3 := r2 * rm
	rho3 := rho2 * rhom
	q := -(2*r.Dot(delta) + delta.Square()) * (r2 + rm*rhom + rho2) /
		((rm + rhom) * rho3 * r3)
	var a, b coord.Cart
	a.MulScalar(delta, 1/rho3)
	b.MulScalar(r, q)
	a.Add(&a, &b)
	a.MulScalar(&a, -astro.U)
	return a
}

// pull accumulates into acc the heliocentric perturbing acceleration on an
// object at rho from the perturbers in mask at positions pos.  The direct
// term toward each body is softened near the body; the indirect term, the
// pull of the body on the Sun, is not.
func (w *Integrator) pull(acc, rho *coord.Cart, pos *[perturb.NumPerturbers]coord.Cart, mask perturb.Mask) {
	cfg := &w.e.cfg
	for i := range pos {
		p := perturb.Perturber(i)
		if !mask.Has(p) || cfg.Mass[p] == 0 {
			continue
		}
		gm := astro.U * cfg.Mass[p]
		s := &pos[p]
		var dv coord.Cart
		dv.Sub(s, rho)
		d2 := dv.Square()
		d := math.Sqrt(d2)
		f := gm / (d2 * d)
		if p.CloseApproach() {
			f *= Softening(d, perturb.Radius[p]*cfg.RadiusFudge)
		}
		s2 := s.Square()
		g := gm / (s2 * math.Sqrt(s2))
		acc.X += f*dv.X - g*s.X
		acc.Y += f*dv.Y - g*s.Y
		acc.Z += f*dv.Z - g*s.Z
	}
}

// relativity returns the post-Newtonian correction of the Sun's field at
// position r, velocity v.
func relativity(r, v *coord.Cart) coord.Cart {
	r2 := r.Square()
	rm := math.Sqrt(r2)
	k := astro.U / (cAUDay * cAUDay * r2 * rm)
	a := 4*astro.U/rm - v.Square()
	b := 4 * r.Dot(v)
	return coord.Cart{
		X: k * (a*r.X + b*v.X),
		Y: k * (a*r.Y + b*v.Y),
		Z: k * (a*r.Z + b*v.Z),
	}
}

// deriv returns the time derivative of deviation d at time t, relative to
// the current reference orbit.
func (w *Integrator) deriv(t float64, d *Deviation) (Deviation, error) {
	r, v := w.el.State(t)
	delta := d.pos()
	var rho coord.Cart
	rho.Add(&r, &delta)

	acc := twoBodyDiff(&r, &delta, &rho)
	if w.mask != 0 {
		if err := w.positions(t); err != nil {
			return Deviation{}, err
		}
		w.pull(&acc, &rho, &w.pos, w.mask)
	}
	if w.e.cfg.Relativity {
		dv := d.vel()
		var vel coord.Cart
		vel.Add(&v, &dv)
		rel := relativity(&rho, &vel)
		acc.Add(&acc, &rel)
	}
	return Deviation{d[3], d[4], d[5], acc.X, acc.Y, acc.Z}, nil
}

// positions loads w.pos for time t, from the cache when t is on the grid.
func (w *Integrator) positions(t float64) error {
	if w.e.cache == nil {
		w.Stats.CacheMisses++
		return perturb.Positions(w.e.src, t, w.mask, &w.pos)
	}
	hit, err := w.e.cache.Positions(t, &w.pos)
	if hit {
		w.Stats.CacheHits++
	} else {
		w.Stats.CacheMisses++
	}
	return err
}
