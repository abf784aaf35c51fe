// Public domain.

package runner

import (
	"github.com/sirupsen/logrus"

	"github.com/soniakeys/encke/internal/catalog"
	"github.com/soniakeys/encke/internal/encke"
	"github.com/soniakeys/encke/internal/kepel"
	"github.com/soniakeys/encke/internal/perturb"
)

// refinePasses is the number of times asteroid perturber tracks are
// re-integrated.  The first pass perturbs them with two-body tracks of
// each other, later passes with the integrated tracks.
const refinePasses = 2

// promote builds the perturber system for the run.  Enabled asteroid
// perturbers with no record in the scanned part of the catalog, or whose
// integration fails, are disabled with a warning.
func (r *run) promote(found map[perturb.Perturber]*catalog.Record) (*perturb.System, error) {
	sys := &perturb.System{
		Bodies:  r.opt.Bodies,
		Enabled: r.opt.Engine.Enabled,
	}
	for p := perturb.Ceres; p <= perturb.Vesta; p++ {
		if !sys.Enabled.Has(p) {
			continue
		}
		rec, ok := found[p]
		if !ok {
			r.log.WithField("perturber", p).Warn("record not found, perturber disabled")
			sys.Enabled = sys.Enabled.Without(p)
			continue
		}
		sys.Tracks[p-perturb.Ceres] = perturb.NewTrack([]kepel.Elements{rec.Elements})
	}
	if sys.Enabled&perturb.Asteroids == 0 {
		return sys, nil
	}
	for pass := 0; pass < refinePasses; pass++ {
		cfg := r.opt.Engine
		cfg.Enabled = sys.Enabled
		eng, err := encke.New(cfg, sys, nil)
		if err != nil {
			return nil, err
		}
		var next [3]*perturb.Track
		for p := perturb.Ceres; p <= perturb.Vesta; p++ {
			if !sys.Enabled.Has(p) {
				continue
			}
			var els []kepel.Elements
			integ := eng.NewIntegrator()
			integ.Sample = func(el *kepel.Elements) { els = append(els, *el) }
			if _, err := integ.Integrate(found[p].Elements, r.opt.Target, p); err != nil {
				r.log.WithFields(logrus.Fields{
					"perturber": p,
					"error":     err,
				}).Warn("integration failed, perturber disabled")
				sys.Enabled = sys.Enabled.Without(p)
				continue
			}
			next[p-perturb.Ceres] = perturb.NewTrack(els)
		}
		sys.Tracks = next
		r.log.WithFields(logrus.Fields{
			"pass":       pass + 1,
			"perturbers": sys.Enabled & perturb.Asteroids,
		}).Debug("asteroid perturber tracks integrated")
	}
	return sys, nil
}
