// Public domain.

package kepel

import (
	"math"

	"github.com/soniakeys/astro"
	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"
)

// FromState solves osculating elements from a heliocentric state vector.
//
// Args:
//   pos = position, AU
//   vel = velocity, AU/day
//   jde = time of the state, which becomes the epoch of the elements.
//
// The returned elements are set up and ready for State.
func FromState(pos, vel coord.Cart, jde float64) (Elements, error) {
	r := math.Sqrt(pos.Square())
	if r == 0 {
		return Elements{}, ErrDegenerate
	}

	// momentum vector
	var hv coord.Cart
	hv.Cross(&pos, &vel)
	hsq := hv.Square()
	hm := math.Sqrt(hsq)
	if hm == 0 {
		return Elements{}, ErrDegenerate
	}

	// eccentricity vector
	vsq := vel.Square()
	rv := pos.Dot(&vel)
	f1 := vsq/astro.U - 1/r
	f2 := rv / astro.U
	ev := coord.Cart{
		X: f1*pos.X - f2*vel.X,
		Y: f1*pos.Y - f2*vel.Y,
		Z: f1*pos.Z - f2*vel.Z,
	}
	ecc := math.Sqrt(ev.Square())
	q := hsq / astro.U / (1 + ecc)

	// inclination.  same care as astro.AeiHv for i near 0.
	ci := hv.Z / hm
	if ci > 1 {
		ci = 1
	} else if ci < -1 {
		ci = -1
	}
	inc := math.Acos(ci)

	// node.  taken as 0 when the orbit lies in the ecliptic.
	var node float64
	hxy := math.Hypot(hv.X, hv.Y)
	if hxy > 1e-15*hm {
		node = math.Atan2(hv.X, -hv.Y)
	}

	// in-plane basis: nv toward the node, mv 90° ahead of it.
	sn, cn := math.Sincos(node)
	nv := coord.Cart{X: cn, Y: sn}
	var hu, mv coord.Cart
	hu.MulScalar(&hv, 1/hm)
	mv.Cross(&hu, &nv)

	// argument of latitude of the object, then of perihelion.
	u := math.Atan2(pos.Dot(&mv), pos.Dot(&nv))
	var argp float64
	if ecc > 0 {
		argp = math.Atan2(ev.Dot(&mv), ev.Dot(&nv))
	}
	nu := u - argp

	e := Elements{
		Q:     q,
		Ecc:   ecc,
		Inc:   unit.Angle(inc),
		ArgP:  unit.Angle(pmod(argp)),
		Node:  unit.Angle(pmod(node)),
		Epoch: jde,
	}
	e.Setup()

	sv, cv := math.Sincos(nu)
	switch {
	case e.a == 0:
		s := math.Tan(nu * .5)
		e.SinceP = (s*s*s + 3*s) / (3 * e.w)
	case e.a > 0:
		E := math.Atan2(math.Sqrt(1-ecc*ecc)*sv, ecc+cv)
		M := E - ecc*math.Sin(E)
		e.SinceP = M / e.n
	default:
		H := math.Asinh(math.Sqrt(ecc*ecc-1) * sv / (1 + ecc*cv))
		M := ecc*math.Sinh(H) - H
		e.SinceP = M / e.n
	}
	return e, nil
}

// pmod reduces an angle in radians to the range [0, 2π).
func pmod(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x
}
