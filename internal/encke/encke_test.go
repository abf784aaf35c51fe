// Public domain.

package encke_test

import (
	"errors"
	"math"
	"testing"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/encke/internal/encke"
	"github.com/soniakeys/encke/internal/kepel"
	"github.com/soniakeys/encke/internal/perturb"
)

// a main belt orbit
func mainBelt() kepel.Elements {
	return kepel.Elements{
		Q:      2.2,
		Ecc:    .15,
		Inc:    unit.AngleFromDeg(8),
		ArgP:   unit.AngleFromDeg(120),
		Node:   unit.AngleFromDeg(80),
		Epoch:  perturb.J2000 + 10,
		SinceP: 410,
	}
}

func dist(a, b coord.Cart) float64 {
	var d coord.Cart
	d.Sub(&a, &b)
	return math.Sqrt(d.Square())
}

// planetConfig is the default configuration without asteroid perturbers,
// which a bare ephemeris backend does not supply.
func planetConfig() encke.Config {
	cfg := encke.DefaultConfig()
	cfg.Enabled = perturb.Planets
	return cfg
}

func newIntegrator(t *testing.T, cfg encke.Config, src perturb.Source, cache *perturb.Cache) *encke.Integrator {
	e, err := encke.New(cfg, src, cache)
	if err != nil {
		t.Fatal(err)
	}
	return e.NewIntegrator()
}

func TestSoftening(t *testing.T) {
	r := 1e-4
	if encke.Softening(.5*r, r) != 0 || encke.Softening(.8*r, r) != 0 {
		t.Fatal("nonzero inside .8")
	}
	if encke.Softening(r, r) != 1 || encke.Softening(3*r, r) != 1 {
		t.Fatal("not 1 at or beyond radius")
	}
	last := 0.
	for x := .8; x <= 1; x += .001 {
		f := encke.Softening(x*r, r)
		if f < last || f > 1 {
			t.Fatalf("not monotone at %g: %g after %g", x, f, last)
		}
		last = f
	}
	if f := encke.Softening(.9*r, r); math.Abs(f-.5) > 1e-12 {
		t.Fatal("midpoint", f)
	}
}

func TestZeroMass(t *testing.T) {
	cfg := encke.DefaultConfig()
	cfg.Mass = [perturb.NumPerturbers]float64{}
	cfg.Relativity = false
	w := newIntegrator(t, cfg, perturb.MeanElements{}, nil)
	el := mainBelt()
	target := el.Epoch + 1000
	got, err := w.Integrate(el, target, perturb.None)
	if err != nil {
		t.Fatal(err)
	}
	p0, _ := el.State(target)
	p1, _ := got.State(target)
	if d := dist(p0, p1); d > cfg.Tolerance {
		t.Fatal("deviation from two-body", d)
	}
	if got.Epoch != target {
		t.Fatal("epoch", got.Epoch)
	}
}

func TestEnabledOnly(t *testing.T) {
	el := mainBelt()
	w := newIntegrator(t, planetConfig(), perturb.MeanElements{}, nil)
	if _, err := w.Integrate(el, el.Epoch+40, perturb.None); err != nil {
		t.Fatal(err)
	}
	// asteroids enabled on a backend without them
	w = newIntegrator(t, encke.DefaultConfig(), perturb.MeanElements{}, nil)
	if _, err := w.Integrate(el, el.Epoch+40, perturb.None); !errors.Is(err, perturb.ErrNotModeled) {
		t.Fatal("expected ErrNotModeled, got", err)
	}
	// a cache missing an enabled perturber is refused
	cfg := encke.DefaultConfig()
	c, err := perturb.NewCache(perturb.MeanElements{}, perturb.Planets, el.Epoch, el.Epoch+40,
		cfg.MacroStep, encke.Stages[:], 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := encke.New(cfg, perturb.MeanElements{}, c); err == nil {
		t.Fatal("cache without asteroids accepted")
	}
}

func TestCircularPeriod(t *testing.T) {
	cfg := encke.DefaultConfig()
	cfg.Enabled = 0
	cfg.Relativity = false
	w := newIntegrator(t, cfg, perturb.MeanElements{}, nil)
	el := kepel.Elements{Q: 1, Epoch: perturb.J2000}
	got, err := w.Integrate(el, perturb.J2000+el.Period(), perturb.None)
	if err != nil {
		t.Fatal(err)
	}
	if got.Ecc != 0 {
		t.Fatal("eccentricity", got.Ecc)
	}
	m := math.Mod(got.MeanAnomaly(got.Epoch), 2*math.Pi)
	if m > math.Pi {
		m -= 2 * math.Pi
	}
	if math.Abs(m) > 1e-10 {
		t.Fatal("mean anomaly", m)
	}
}

func TestForwardBack(t *testing.T) {
	cfg := planetConfig()
	w := newIntegrator(t, cfg, perturb.MeanElements{}, nil)
	el := mainBelt()
	fwd, err := w.Integrate(el, el.Epoch+2000, perturb.None)
	if err != nil {
		t.Fatal(err)
	}
	back, err := w.Integrate(fwd, el.Epoch, perturb.None)
	if err != nil {
		t.Fatal(err)
	}
	p0, v0 := el.State(el.Epoch)
	p1, v1 := back.State(el.Epoch)
	if d := dist(p0, p1); d > 1e-8 {
		t.Fatal("position not recovered", d)
	}
	if d := dist(v0, v1); d > 1e-10 {
		t.Fatal("velocity not recovered", d)
	}
	// Jupiter should have moved the object measurably over 2000 days.
	p2, _ := el.State(fwd.Epoch)
	p3, _ := fwd.State(fwd.Epoch)
	if dist(p2, p3) < 1e-5 {
		t.Fatal("no perturbation")
	}
}

// Rectification at modern epochs must reproduce the state well inside the
// default tolerance, whatever the size of the deviation.
func TestRectifyPrecision(t *testing.T) {
	tol := encke.DefaultConfig().Tolerance
	el := mainBelt()
	el.Advance(2460000.5)
	for i := 0; i < 200; i++ {
		tb := el.Epoch + float64(i)*7.3
		for _, s := range []float64{1e-10, 1e-8, 1e-6, 1e-4, 1e-2} {
			d := encke.Deviation{s, -s, .5 * s, .01 * s, -.02 * s, .005 * s}
			n, err := encke.Rectify(&el, d, tb)
			if err != nil {
				t.Fatal(err)
			}
			r, _ := el.State(tb)
			want := coord.Cart{X: r.X + d[0], Y: r.Y + d[1], Z: r.Z + d[2]}
			got, _ := n.State(tb)
			if e := dist(got, want); e > tol {
				t.Fatalf("deviation %g at %.1f: error %g", s, tb, e)
			}
		}
	}
}

func TestRectifyRoundTrip(t *testing.T) {
	el := mainBelt()
	d := encke.Deviation{1e-6, -2e-6, 5e-7, 1e-8, 3e-9, -2e-9}
	tb := el.Epoch + 20
	n, err := encke.Rectify(&el, d, tb)
	if err != nil {
		t.Fatal(err)
	}
	r, v := el.State(tb)
	want := coord.Cart{X: r.X + d[0], Y: r.Y + d[1], Z: r.Z + d[2]}
	wantV := coord.Cart{X: v.X + d[3], Y: v.Y + d[4], Z: v.Z + d[5]}
	gr, gv := n.State(tb)
	if dist(gr, want) > 1e-12 || dist(gv, wantV) > 1e-14 {
		t.Fatal("state not reproduced", dist(gr, want), dist(gv, wantV))
	}
}

// fixedSource places every body far away except Earth, which sits at a
// fixed position.
type fixedSource struct {
	earth coord.Cart
}

func (s fixedSource) Position(p perturb.Perturber, jde float64) (coord.Cart, error) {
	if p == perturb.Earth {
		return s.earth, nil
	}
	return perturb.Far, nil
}

func TestGraze(t *testing.T) {
	el := kepel.Elements{Q: 1, Epoch: perturb.J2000}
	tc := perturb.J2000 + 5
	p, v := el.State(tc)
	// offset perpendicular to the motion, within the ecliptic
	vm := math.Sqrt(v.Square())
	off := .7 * perturb.Radius[perturb.Earth] * 1.2
	earth := coord.Cart{X: p.X - v.Y/vm*off, Y: p.Y + v.X/vm*off, Z: p.Z}

	cfg := encke.DefaultConfig()
	cfg.Enabled = 0
	cfg.Enabled = cfg.Enabled.With(perturb.Earth)
	cfg.MacroStep = 1
	w := newIntegrator(t, cfg, fixedSource{earth}, nil)
	if _, err := w.Integrate(el, perturb.J2000+10, perturb.None); err != nil {
		t.Fatal(err)
	}
	if w.Stats.Rejected > 2000 {
		t.Fatal("rejected steps", w.Stats.Rejected)
	}
}

func TestSelfExcluded(t *testing.T) {
	// Ceres sits on top of the object.  Integrating Ceres itself must
	// not see its own pull.
	el := mainBelt()
	track := perturb.NewTrack([]kepel.Elements{el})
	sys := &perturb.System{
		Bodies:  perturb.MeanElements{},
		Tracks:  [3]*perturb.Track{track},
		Enabled: perturb.Asteroids.Without(perturb.Pallas).Without(perturb.Vesta),
	}
	cfg := encke.DefaultConfig()
	cfg.Enabled = sys.Active()
	cfg.Relativity = false
	w := newIntegrator(t, cfg, sys, nil)
	got, err := w.Integrate(el, el.Epoch+100, perturb.Ceres)
	if err != nil {
		t.Fatal(err)
	}
	p0, _ := el.State(got.Epoch)
	p1, _ := got.State(got.Epoch)
	if d := dist(p0, p1); d > 1e-12 {
		t.Fatal("self perturbation", d)
	}
}

func TestCacheUse(t *testing.T) {
	cfg := planetConfig()
	cfg.Tolerance = 1e-9
	el := mainBelt()
	el.Epoch = perturb.J2000 // on the grid
	target := el.Epoch + 400
	c, err := perturb.NewCache(perturb.MeanElements{}, cfg.Enabled, el.Epoch, target,
		cfg.MacroStep, encke.Stages[:], 0)
	if err != nil {
		t.Fatal(err)
	}
	wc := newIntegrator(t, cfg, perturb.MeanElements{}, c)
	wd := newIntegrator(t, cfg, perturb.MeanElements{}, nil)
	a, err := wc.Integrate(el, target, perturb.None)
	if err != nil {
		t.Fatal(err)
	}
	b, err := wd.Integrate(el, target, perturb.None)
	if err != nil {
		t.Fatal(err)
	}
	if wc.Stats.CacheHits == 0 {
		t.Fatal("no cache hits")
	}
	pa, _ := a.State(target)
	pb, _ := b.State(target)
	if d := dist(pa, pb); d > 1e-12 {
		t.Fatal("cache changed result", d)
	}
	if wc.Stats.MacroSteps != 20 {
		t.Fatal("macro steps", wc.Stats.MacroSteps)
	}
}

func TestSample(t *testing.T) {
	cfg := planetConfig()
	w := newIntegrator(t, cfg, perturb.MeanElements{}, nil)
	var times []float64
	w.Sample = func(el *kepel.Elements) { times = append(times, el.Epoch) }
	el := mainBelt() // epoch J2000+10, grid every 20 days
	if _, err := w.Integrate(el, perturb.J2000+75, perturb.None); err != nil {
		t.Fatal(err)
	}
	want := []float64{10, 20, 40, 60, 75}
	if len(times) != len(want) {
		t.Fatal("samples", times)
	}
	for i, x := range want {
		if math.Abs(times[i]-perturb.J2000-x) > 1e-9 {
			t.Fatal("sample times", times)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := encke.DefaultConfig()
	cfg.MacroStep = 0
	if _, err := encke.New(cfg, perturb.MeanElements{}, nil); err == nil {
		t.Fatal("zero step accepted")
	}
	cfg = planetConfig()
	c, err := perturb.NewCache(perturb.MeanElements{}, cfg.Enabled, perturb.J2000, perturb.J2000+10,
		5, encke.Stages[:], 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := encke.New(cfg, perturb.MeanElements{}, c); err == nil {
		t.Fatal("mismatched cache accepted")
	}
}
