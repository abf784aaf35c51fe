// Public domain.

package encke

import (
	"fmt"
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/encke/internal/kepel"
	"github.com/soniakeys/encke/internal/perturb"
)

// Engine is the immutable part of an integration run: configuration,
// perturber source, and optional cache.  It is shared by all workers.
type Engine struct {
	cfg     Config
	src     perturb.Source
	cache   *perturb.Cache
	massive perturb.Mask // enabled perturbers with nonzero mass
}

// New creates an Engine.  cache may be nil, in which case all perturber
// positions come from src.  A cache must be built on the configured
// macro-step and hold every enabled perturber of nonzero mass.  src is
// only asked for those.
func New(cfg Config, src perturb.Source, cache *perturb.Cache) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cache != nil && math.Abs(cache.Grid().H) != math.Abs(cfg.MacroStep) {
		return nil, fmt.Errorf("encke: cache step %g does not match macro-step %g",
			cache.Grid().H, cfg.MacroStep)
	}
	var massive perturb.Mask
	for p := perturb.Perturber(0); p < perturb.NumPerturbers; p++ {
		if cfg.Enabled.Has(p) && cfg.Mass[p] != 0 {
			massive = massive.With(p)
		}
	}
	if cache != nil && massive&^cache.Mask() != 0 {
		return nil, fmt.Errorf("encke: cache lacks perturbers %v", massive&^cache.Mask())
	}
	return &Engine{cfg: cfg, src: src, cache: cache, massive: massive}, nil
}

// Integrator is the workspace for integrating one object at a time.
// It is not safe for concurrent use; create one per worker.
type Integrator struct {
	e     *Engine
	Stats Stats

	// Sample, if not nil, is called with the osculating elements at the
	// start and at every macro-step boundary.
	Sample func(el *kepel.Elements)

	// per object
	el   kepel.Elements
	mask perturb.Mask

	// scratch
	pos [perturb.NumPerturbers]coord.Cart
	k   [len(Stages)]Deviation
}

// NewIntegrator creates a workspace for e.
func (e *Engine) NewIntegrator() *Integrator {
	return &Integrator{e: e}
}

// Integrate propagates el to epoch target and returns the osculating
// elements there.
//
// self identifies the object being integrated when it is itself a
// perturber, perturb.None otherwise.  A body never perturbs itself.
func (w *Integrator) Integrate(el kepel.Elements, target float64, self perturb.Perturber) (kepel.Elements, error) {
	el.Setup()
	w.el = el
	w.mask = w.e.massive.Without(self)
	w.Stats.Objects++
	t := el.Epoch
	if w.Sample != nil {
		w.Sample(&w.el)
	}
	if t == target {
		return w.el, nil
	}
	h := math.Copysign(math.Abs(w.e.cfg.MacroStep), target-t)
	g := perturb.Grid{H: h}
	k := g.Floor(t)
	for t != target {
		k = g.Next(k)
		tb := g.Time(k)
		if (h > 0 && tb > target) || (h < 0 && tb < target) {
			tb = target
		}
		d, err := w.advance(Deviation{}, t, tb, tb-t)
		if err != nil {
			return w.el, fmt.Errorf("integrating to %.5f from %.5f: %w", target, t, err)
		}
		if d.Zero() {
			w.el.Advance(tb)
		} else if w.el, err = Rectify(&w.el, d, tb); err != nil {
			return w.el, fmt.Errorf("rectifying at %.5f: %w", tb, err)
		}
		w.Stats.MacroSteps++
		t = tb
		if w.Sample != nil {
			w.Sample(&w.el)
		}
	}
	return w.el, nil
}

// Rectify returns fresh osculating elements at time t from the reference
// orbit el plus deviation d.
func Rectify(el *kepel.Elements, d Deviation, t float64) (kepel.Elements, error) {
	r, v := el.State(t)
	dp, dv := d.pos(), d.vel()
	r.Add(&r, &dp)
	v.Add(&v, &dv)
	if !finite(&r) || !finite(&v) {
		return *el, ErrNonFinite
	}
	n, err := kepel.FromState(r, v, t)
	if err != nil {
		return *el, err
	}
	n.Setup()
	return n, nil
}

func finite(c *coord.Cart) bool {
	s := c.X + c.Y + c.Z
	return !math.IsNaN(s) && !math.IsInf(s, 0)
}

// TwoBody propagates el to target on the unperturbed orbit.
func TwoBody(el kepel.Elements, target float64) (kepel.Elements, error) {
	if el.Epoch == target {
		return el, nil
	}
	el.Setup()
	el.Advance(target)
	return el, nil
}
