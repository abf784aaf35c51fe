// Public domain.

// Package kepel holds osculating Keplerian elements and the unperturbed
// two-body motion they describe.
//
// Distances are in AU, times are Julian ephemeris days (TT), velocities are
// AU/day.  Angles are referred to the ecliptic and equinox of J2000.
package kepel

import (
	"errors"
	"math"

	"github.com/soniakeys/astro"
	"github.com/soniakeys/coord"
	"github.com/soniakeys/meeus/v3/kepler"
	"github.com/soniakeys/unit"
)

// ErrDegenerate is returned by FromState for a state vector that does not
// describe an orbit, for example zero position or rectilinear motion.
var ErrDegenerate = errors.New("kepel: degenerate state vector")

// orbits with |1-e| below this are handled with Barker's equation.
const parabolicBand = 1e-10

// Elements are osculating elements of a heliocentric two-body orbit.
type Elements struct {
	Q     float64    // perihelion distance
	Ecc   float64    // eccentricity
	Inc   unit.Angle // inclination
	ArgP  unit.Angle // argument of perihelion
	Node  unit.Angle // longitude of ascending node
	Epoch float64    // epoch of osculation, JDE

	// SinceP is the time from perihelion passage to Epoch, days.  Held
	// relative to the epoch so rectification keeps full precision.
	SinceP float64

	// derived by Setup
	pv, qv coord.Cart // unit vectors toward perihelion and 90° ahead of it
	a      float64    // semimajor axis, > 0 elliptic, < 0 hyperbolic
	n      float64    // mean motion, radians/day.  0 for parabolic.
	w      float64    // k/sqrt(2q³), parabolic only
	ready  bool
}

// Setup computes the orientation vectors and period related constants.
// It must be called after any exported field is changed.  State calls it
// as needed.
func (e *Elements) Setup() {
	sw, cw := math.Sincos(e.ArgP.Rad())
	sn, cn := math.Sincos(e.Node.Rad())
	si, ci := math.Sincos(e.Inc.Rad())
	e.pv = coord.Cart{
		X: cw*cn - sw*sn*ci,
		Y: cw*sn + sw*cn*ci,
		Z: sw * si,
	}
	e.qv = coord.Cart{
		X: -sw*cn - cw*sn*ci,
		Y: -sw*sn + cw*cn*ci,
		Z: cw * si,
	}
	switch {
	case e.Parabolic():
		e.a = 0
		e.n = 0
		e.w = astro.K / math.Sqrt(2*e.Q*e.Q*e.Q)
	default:
		e.a = e.Q / (1 - e.Ecc)
		aa := math.Abs(e.a)
		e.n = astro.K / (aa * math.Sqrt(aa))
	}
	e.ready = true
}

// Parabolic reports whether the orbit is handled as a parabola.
func (e *Elements) Parabolic() bool {
	return math.Abs(1-e.Ecc) < parabolicBand
}

// MeanMotion returns the mean motion in radians per day, zero for a
// parabolic orbit.
func (e *Elements) MeanMotion() float64 {
	if !e.ready {
		e.Setup()
	}
	return e.n
}

// Period returns the orbital period in days, or +Inf for an open orbit.
func (e *Elements) Period() float64 {
	if !e.ready {
		e.Setup()
	}
	if e.a <= 0 {
		return math.Inf(1)
	}
	return 2 * math.Pi / e.n
}

// MeanAnomaly returns mean anomaly at time jde, not reduced to a range.
func (e *Elements) MeanAnomaly(jde float64) float64 {
	if !e.ready {
		e.Setup()
	}
	return e.n * e.sinceP(jde)
}

// TimeP returns the time of perihelion passage, JDE.
func (e *Elements) TimeP() float64 {
	return e.Epoch - e.SinceP
}

// SetTimeP sets the time of perihelion passage.  Epoch must already be
// set.
func (e *Elements) SetTimeP(tp float64) {
	e.SinceP = e.Epoch - tp
}

// Advance moves the epoch to jde without changing the orbit.
func (e *Elements) Advance(jde float64) {
	e.SinceP += jde - e.Epoch
	e.Epoch = jde
}

// sinceP returns the time from perihelion passage to jde.
func (e *Elements) sinceP(jde float64) float64 {
	return (jde - e.Epoch) + e.SinceP
}

// State returns heliocentric ecliptic position and velocity at time jde.
func (e *Elements) State(jde float64) (pos, vel coord.Cart) {
	if !e.ready {
		e.Setup()
	}
	dt := e.sinceP(jde)
	var x, y, vx, vy float64
	switch {
	case e.a == 0:
		// Barker's equation, s = tan(ν/2)
		W := 3 * e.w * dt
		Y := math.Cbrt(W*.5 + math.Sqrt(W*W*.25+1))
		s := Y - 1/Y
		ss := 1 + s*s
		x = e.Q * (1 - s*s)
		y = 2 * e.Q * s
		ds := e.w / ss
		vx = -2 * e.Q * s * ds
		vy = 2 * e.Q * ds
	case e.a > 0:
		E := eccentricAnomaly(e.Ecc, e.n*dt)
		sE, cE := math.Sincos(E)
		b := math.Sqrt(1 - e.Ecc*e.Ecc)
		x = e.a * (cE - e.Ecc)
		y = e.a * b * sE
		f := e.a * e.n / (1 - e.Ecc*cE)
		vx = -f * sE
		vy = f * b * cE
	default:
		aa := -e.a
		H := hyperbolicAnomaly(e.Ecc, e.n*dt)
		sh, ch := math.Sinh(H), math.Cosh(H)
		b := math.Sqrt(e.Ecc*e.Ecc - 1)
		x = aa * (e.Ecc - ch)
		y = aa * b * sh
		f := aa * e.n / (e.Ecc*ch - 1)
		vx = -f * sh
		vy = f * b * ch
	}
	pos = coord.Cart{
		X: x*e.pv.X + y*e.qv.X,
		Y: x*e.pv.Y + y*e.qv.Y,
		Z: x*e.pv.Z + y*e.qv.Z,
	}
	vel = coord.Cart{
		X: vx*e.pv.X + vy*e.qv.X,
		Y: vx*e.pv.Y + vy*e.qv.Y,
		Z: vx*e.pv.Z + vy*e.qv.Z,
	}
	return
}

// eccentricAnomaly solves Kepler's equation for an ellipse.
func eccentricAnomaly(e, M float64) float64 {
	// reduce to -π..π, keeping the whole revolutions
	rev := math.Floor((M + math.Pi) / (2 * math.Pi))
	m := M - rev*2*math.Pi
	if e < .9 {
		if E, err := kepler.Kepler2b(e, unit.Angle(m), 14); err == nil {
			return E.Rad() + rev*2*math.Pi
		}
	}
	// Newton from Danby's starting value.  this handles high eccentricities
	// where the meeus iteration limit is too tight.
	E := m
	if e > .8 {
		E = m + .85*e*math.Copysign(1, math.Sin(m))
	}
	for i := 0; i < 60; i++ {
		s, c := math.Sincos(E)
		d := (E - e*s - m) / (1 - e*c)
		E -= d
		if math.Abs(d) < 1e-15 {
			break
		}
	}
	return E + rev*2*math.Pi
}

// hyperbolicAnomaly solves e sinh H - H = M.
func hyperbolicAnomaly(e, M float64) float64 {
	H := math.Asinh(M / e)
	if math.Abs(M) > 6*e {
		H = math.Copysign(math.Log(2*math.Abs(M)/e+1.8), M)
	}
	for i := 0; i < 100; i++ {
		d := (e*math.Sinh(H) - H - M) / (e*math.Cosh(H) - 1)
		H -= d
		if math.Abs(d) < 1e-15*math.Max(1, math.Abs(H)) {
			break
		}
	}
	return H
}
