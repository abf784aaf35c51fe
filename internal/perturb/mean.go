// Public domain.

package perturb

import (
	"errors"
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/encke/internal/kepel"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/unit"
)

// ErrNotModeled is returned by a backend asked for a body it does not
// supply.
var ErrNotModeled = errors.New("perturber not modeled by source")

// Keplerian elements and rates for approximate positions of the major
// planets, valid 1800-2050.  Standish, E.M., JPL/Caltech.
//
// columns: a, e, I, L, long. peri., long. node.  degrees and AU;
// rates per Julian century.
var meanElements = [9][2][6]float64{
	Mercury: {
		{0.38709927, 0.20563593, 7.00497902, 252.25032350, 77.45779628, 48.33076593},
		{0.00000037, 0.00001906, -0.00594749, 149472.67411175, 0.16047689, -0.12534081}},
	Venus: {
		{0.72333566, 0.00677672, 3.39467605, 181.97909950, 131.60246718, 76.67984255},
		{0.00000390, -0.00004107, -0.00078890, 58517.81538729, 0.00268329, -0.27769418}},
	Earth: { // Earth-Moon barycenter
		{1.00000261, 0.01671123, -0.00001531, 100.46457166, 102.93768193, 0},
		{0.00000562, -0.00004392, -0.01294668, 35999.37244981, 0.32327364, 0}},
	Mars: {
		{1.52371034, 0.09339410, 1.84969142, -4.55343205, -23.94362959, 49.55953891},
		{0.00001847, 0.00007882, -0.00813131, 19140.30268499, 0.44441088, -0.29257343}},
	Jupiter: {
		{5.20288700, 0.04838624, 1.30439695, 34.39644051, 14.72847983, 100.47390909},
		{-0.00011607, -0.00013253, -0.00183714, 3034.74612775, 0.21252668, 0.20469106}},
	Saturn: {
		{9.53667594, 0.05386179, 2.48599187, 49.95424423, 92.59887831, 113.66242448},
		{-0.00125060, -0.00050991, 0.00193609, 1222.49362201, -0.41897216, -0.28867794}},
	Uranus: {
		{19.18916464, 0.04725744, 0.77263783, 313.23810451, 170.95427630, 74.01692503},
		{-0.00196176, -0.00004397, -0.00242939, 428.48202785, 0.40805281, 0.04240589}},
	Neptune: {
		{30.06992276, 0.00859048, 1.77004347, -55.12002969, 44.96476227, 131.78422574},
		{0.00026291, 0.00005105, 0.00035372, 218.45945325, -0.32241464, -0.00508664}},
	Pluto: {
		{39.48211675, 0.24882730, 17.14001206, 238.92903833, 224.06891629, 110.30393684},
		{-0.00031596, 0.00005170, 0.00004818, 145.20780515, -0.04062942, -0.01183482}},
}

// MeanElements is the built-in analytic source.  Planets move on Keplerian
// orbits with linearly varying mean elements; the Moon is placed by the
// meeus lunar theory.  It needs no data files and is accurate to a few
// thousandths of an AU for the inner planets, which is ample for
// perturbation modeling of most minor planets.
type MeanElements struct{}

// Position implements Source.
func (MeanElements) Position(p Perturber, jde float64) (coord.Cart, error) {
	switch {
	case p == Moon:
		e := meanPlanet(Earth, jde)
		m := moonGeocentric(jde)
		e.Add(&e, &m)
		f := 1 / (1 + Mass[Earth]/Mass[Moon]) // moon fraction of EMB mass
		m.MulScalar(&m, f)
		e.Sub(&e, &m)
		return e, nil
	case p == Earth:
		e := meanPlanet(Earth, jde)
		m := moonGeocentric(jde)
		m.MulScalar(&m, 1/(1+Mass[Earth]/Mass[Moon]))
		e.Sub(&e, &m)
		return e, nil
	case p >= Mercury && p <= Pluto:
		return meanPlanet(p, jde), nil
	}
	return coord.Cart{}, ErrNotModeled
}

func meanPlanet(p Perturber, jde float64) coord.Cart {
	T := (jde - J2000) / 36525
	var v [6]float64
	for i := range v {
		v[i] = meanElements[p][0][i] + meanElements[p][1][i]*T
	}
	a, e := v[0], v[1]
	peri := v[4]
	M := math.Mod(v[3]-peri, 360) * math.Pi / 180
	if M > math.Pi {
		M -= 2 * math.Pi
	} else if M < -math.Pi {
		M += 2 * math.Pi
	}
	el := kepel.Elements{
		Q:     a * (1 - e),
		Ecc:   e,
		Inc:   unit.AngleFromDeg(v[2]),
		ArgP:  unit.AngleFromDeg(peri - v[5]),
		Node:  unit.AngleFromDeg(v[5]),
		Epoch: jde,
	}
	el.Setup()
	el.SinceP = M / el.MeanMotion()
	pos, _ := el.State(jde)
	return pos
}

// moonGeocentric returns the geocentric position of the Moon, ecliptic
// J2000, AU.  The meeus theory gives coordinates of date; longitude is
// brought back to J2000 with the general precession.
func moonGeocentric(jde float64) coord.Cart {
	λ, β, Δ := moonposition.Position(jde)
	T := (jde - J2000) / 36525
	pA := (5028.796195*T + 1.1054348*T*T) / 3600 * math.Pi / 180
	return sphCart(λ.Rad()-pA, β.Rad(), Δ/AUKm)
}
