// Public domain.

// Package perturb supplies positions of the massive bodies that perturb
// minor planet orbits.
//
// Positions are heliocentric, in AU, referred to the ecliptic and equinox
// of J2000.  A Source computes positions on demand; a Cache holds them on
// the fixed time grid shared by all objects of a run.
package perturb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/soniakeys/coord"
)

// Perturber identifies a perturbing body.
type Perturber int

// Tracked perturbers.  The first NumCloseApproach are modeled with physical
// radii for close approach softening.  The last three are optional massive
// asteroids, "promoted" from the catalog being processed.
const (
	Mercury Perturber = iota
	Venus
	Earth
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune
	Pluto
	Moon
	Ceres
	Pallas
	Vesta
	NumPerturbers = iota
)

// None is the Perturber value for an object that is not itself a perturber.
const None Perturber = -1

// NumCloseApproach is the number of perturbers with modeled radii.
const NumCloseApproach = 10

// AUKm is the astronomical unit in km.
const AUKm = 149597870.7

// Far is the placeholder position of a disabled perturber.  At this
// distance the pull of any tracked body is negligible.
var Far = coord.Cart{X: 1e10, Y: 1e10, Z: 1e10}

// Mass holds perturber masses relative to the Sun.  Earth excludes the
// Moon.  Values are DE430 planetary masses; asteroid masses from recent
// spacecraft and astrometric determinations.
var Mass = [NumPerturbers]float64{
	Mercury: 1 / 6023682.155592,
	Venus:   1 / 408523.71860,
	Earth:   1 / 332946.048773,
	Mars:    1 / 3098703.59,
	Jupiter: 1 / 1047.348644,
	Saturn:  1 / 3497.9018,
	Uranus:  1 / 22902.98,
	Neptune: 1 / 19412.26,
	Pluto:   1 / 135836683.8,
	Moon:    1 / (332946.048773 * 81.30056907),
	Ceres:   4.72e-10,
	Pallas:  1.03e-10,
	Vesta:   1.30e-10,
}

// Radius holds physical radii in AU of the close approach capable
// perturbers.
var Radius = [NumCloseApproach]float64{
	Mercury: 2439.7 / AUKm,
	Venus:   6051.8 / AUKm,
	Earth:   6378.137 / AUKm,
	Mars:    3396.19 / AUKm,
	Jupiter: 71492 / AUKm,
	Saturn:  60268 / AUKm,
	Uranus:  25559 / AUKm,
	Neptune: 24764 / AUKm,
	Pluto:   1188.3 / AUKm,
	Moon:    1737.4 / AUKm,
}

var names = [NumPerturbers]string{
	"Mercury", "Venus", "Earth", "Mars", "Jupiter", "Saturn", "Uranus",
	"Neptune", "Pluto", "Moon", "Ceres", "Pallas", "Vesta",
}

// minor planet numbers of the promoted asteroids
var asteroidNumber = [...]int{Ceres - Ceres: 1, Pallas - Ceres: 2, Vesta - Ceres: 4}

func (p Perturber) String() string {
	if p < 0 || int(p) >= NumPerturbers {
		return "Perturber(" + strconv.Itoa(int(p)) + ")"
	}
	return names[p]
}

// CloseApproach reports whether p has a modeled radius.
func (p Perturber) CloseApproach() bool {
	return p >= 0 && int(p) < NumCloseApproach
}

// Asteroid reports whether p is one of the optional massive asteroids.
func (p Perturber) Asteroid() bool {
	return p >= Ceres && p <= Vesta
}

// Number returns the minor planet number of an asteroid perturber, or 0.
func (p Perturber) Number() int {
	if !p.Asteroid() {
		return 0
	}
	return asteroidNumber[p-Ceres]
}

// Promoted returns the asteroid perturber matching a catalog designation.
// Numbered designations may be written plain, zero padded, or in
// parentheses: "1", "00001", "(1)".  Names are accepted too.
func Promoted(desig string) Perturber {
	d := strings.TrimSpace(desig)
	d = strings.TrimSuffix(strings.TrimPrefix(d, "("), ")")
	if n, err := strconv.Atoi(d); err == nil {
		for p := Ceres; p <= Vesta; p++ {
			if p.Number() == n {
				return p
			}
		}
		return None
	}
	for p := Ceres; p <= Vesta; p++ {
		if strings.EqualFold(d, names[p]) {
			return p
		}
	}
	return None
}

// Parse parses a perturber name, case insensitive.
func Parse(s string) (Perturber, error) {
	for p, n := range names {
		if strings.EqualFold(s, n) {
			return Perturber(p), nil
		}
	}
	return None, fmt.Errorf("unknown perturber %q", s)
}

// Mask is a set of perturbers.
type Mask uint16

// Common masks.
const (
	Planets   Mask = 1<<NumCloseApproach - 1
	Asteroids Mask = 1<<Ceres | 1<<Pallas | 1<<Vesta
	All            = Planets | Asteroids
)

// Has reports whether p is in the set.
func (m Mask) Has(p Perturber) bool {
	return p >= 0 && m&(1<<uint(p)) != 0
}

// With returns the set with p added.
func (m Mask) With(p Perturber) Mask {
	if p < 0 {
		return m
	}
	return m | 1<<uint(p)
}

// Without returns the set with p removed.
func (m Mask) Without(p Perturber) Mask {
	if p < 0 {
		return m
	}
	return m &^ (1 << uint(p))
}

func (m Mask) String() string {
	var s []string
	for p := Perturber(0); int(p) < NumPerturbers; p++ {
		if m.Has(p) {
			s = append(s, names[p])
		}
	}
	return strings.Join(s, ",")
}

// ParseMask parses a comma separated list of perturber names.  The words
// "planets", "asteroids", and "all" name the common sets.
func ParseMask(s string) (Mask, error) {
	var m Mask
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		switch strings.ToLower(f) {
		case "":
			continue
		case "planets":
			m |= Planets
			continue
		case "asteroids":
			m |= Asteroids
			continue
		case "all":
			m |= All
			continue
		}
		p, err := Parse(f)
		if err != nil {
			return 0, err
		}
		m = m.With(p)
	}
	return m, nil
}
