// Public domain.

// Package encke propagates osculating elements by Encke's method.
//
// Only the deviation of the perturbed motion from a two-body reference
// orbit is integrated.  The reference is rectified at every macro-step
// boundary so the deviation stays small.
package encke

import (
	"errors"
	"fmt"

	"github.com/soniakeys/encke/internal/perturb"
)

// Errors returned by integration.
var (
	ErrStepUnderflow = errors.New("encke: step size underflow")
	ErrNonFinite     = errors.New("encke: non-finite state")
)

// Config holds the run parameters of the integrator.  It is fixed for a
// run and shared by all workers.
type Config struct {
	Tolerance   float64      // per step error limit, root sum square
	MacroStep   float64      // days between rectifications, sign ignored
	Enabled     perturb.Mask // perturbers included in the force model
	Mass        [perturb.NumPerturbers]float64
	RadiusFudge float64 // softening radius scale
	Relativity  bool
	Safety      float64 // step resize damping, < 1
	MaxGrow     float64 // largest step increase factor
	MinShrink   float64 // smallest step decrease factor
}

// DefaultConfig returns a Config with the full force model.
func DefaultConfig() Config {
	return Config{
		Tolerance:   1e-12,
		MacroStep:   20,
		Enabled:     perturb.All,
		Mass:        perturb.Mass,
		RadiusFudge: 1.2,
		Relativity:  true,
		Safety:      .9,
		MaxGrow:     4,
		MinShrink:   .1,
	}
}

// Validate checks Config for values that cannot produce an integration.
func (c *Config) Validate() error {
	switch {
	case !(c.Tolerance > 0):
		return fmt.Errorf("encke: tolerance %g must be positive", c.Tolerance)
	case c.MacroStep == 0:
		return errors.New("encke: zero macro-step")
	case !(c.Safety > 0 && c.Safety < 1):
		return fmt.Errorf("encke: safety factor %g not in (0,1)", c.Safety)
	case !(c.MaxGrow > 1):
		return fmt.Errorf("encke: growth limit %g must exceed 1", c.MaxGrow)
	case !(c.MinShrink > 0 && c.MinShrink < 1):
		return fmt.Errorf("encke: shrink limit %g not in (0,1)", c.MinShrink)
	case c.RadiusFudge < 0:
		return fmt.Errorf("encke: negative radius fudge %g", c.RadiusFudge)
	}
	return nil
}

// Stats counts integrator work.  Each Integrator owns its Stats; combine
// them with Add.
type Stats struct {
	Objects     int `yaml:"objects"`
	MacroSteps  int `yaml:"macro_steps"`
	Steps       int `yaml:"steps"`
	Rejected    int `yaml:"rejected"`
	CacheHits   int `yaml:"cache_hits"`
	CacheMisses int `yaml:"cache_misses"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Objects += o.Objects
	s.MacroSteps += o.MacroSteps
	s.Steps += o.Steps
	s.Rejected += o.Rejected
	s.CacheHits += o.CacheHits
	s.CacheMisses += o.CacheMisses
}
