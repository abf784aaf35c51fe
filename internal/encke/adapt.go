// Public domain.

package encke

import (
	"math"
)

// advance integrates deviation d from t0 to exactly t1 with adaptive step
// control, starting with trial step h.  Rejected steps only affect the
// step size.
func (w *Integrator) advance(d Deviation, t0, t1, h float64) (Deviation, error) {
	cfg := &w.e.cfg
	tol2 := cfg.Tolerance * cfg.Tolerance
	h = clampStep(h, t1-t0)
	var ev Deviation
	for t := t0; t != t1; {
		if t+h == t {
			return d, ErrStepUnderflow
		}
		n, err := w.step(t, h, &d, &ev)
		if err != nil {
			return d, err
		}
		var e2 float64
		for _, e := range ev {
			e2 += e * e
		}
		if math.IsNaN(e2) {
			return d, ErrNonFinite
		}
		if e2 <= tol2 {
			w.Stats.Steps++
			d = n
			if h == t1-t {
				t = t1
			} else {
				t += h
			}
		} else {
			w.Stats.Rejected++
		}
		f := cfg.MaxGrow
		if e2 > 0 {
			f = cfg.Safety * math.Pow(tol2/e2, .1)
		}
		switch {
		case f > cfg.MaxGrow:
			f = cfg.MaxGrow
		case f < cfg.MinShrink:
			f = cfg.MinShrink
		}
		h = clampStep(h*f, t1-t)
	}
	return d, nil
}

// clampStep limits h so a step cannot pass the remaining interval rem.
// The sign of the result is the sign of rem.
func clampStep(h, rem float64) float64 {
	h = math.Copysign(h, rem)
	if math.Abs(h) > math.Abs(rem) {
		return rem
	}
	return h
}
