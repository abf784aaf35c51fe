// Public domain.

// Package runner updates a whole catalog to a new epoch.
//
// A run has a serial phase and a parallel phase.  The serial phase reads
// the header, finds any asteroid perturbers near the top of the catalog,
// integrates them self-consistently, and builds the perturber cache.  The
// parallel phase deals records to workers by stride and merges results
// round-robin so output order matches input order.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/soniakeys/encke/internal/catalog"
	"github.com/soniakeys/encke/internal/encke"
	"github.com/soniakeys/encke/internal/kepel"
	"github.com/soniakeys/encke/internal/logger"
	"github.com/soniakeys/encke/internal/perturb"
	"github.com/soniakeys/encke/internal/update"
)

// Options configure a run.
type Options struct {
	Target             float64 // target epoch, JDE
	Engine             encke.Config
	Bodies             perturb.Source // major planets and Moon
	Backend            string         // name of Bodies, recorded in provenance
	Workers            int            // <= 0 means one per CPU
	IncludeUnperturbed bool           // two-body fallback for failed records
	Previous           string         // previous output file for reuse
	Samples            io.Writer      // ephemeris samples, optional
	CacheMaxBytes      int64
	ScanLimit          int // records searched for asteroid perturbers
	Log                logrus.FieldLogger

	fault func(worker int, line string) // test hook
}

// DefaultScanLimit is the default number of leading records searched for
// asteroid perturbers.
const DefaultScanLimit = 1000

// Summary counts the outcome of a run.
type Summary struct {
	RunID         string      `yaml:"run_id,omitempty"`
	Records       int         `yaml:"records"`
	Integrated    int         `yaml:"integrated"`
	Reused        int         `yaml:"reused"`
	CopiedThrough int         `yaml:"copied_through"`
	PassedThrough int         `yaml:"passed_through"` // unparseable
	Failed        int         `yaml:"failed"`         // passed through after integration failure
	Fallback      int         `yaml:"fallback"`       // two-body after integration failure
	Perturbers    string      `yaml:"perturbers"`
	CacheSteps    int64       `yaml:"cache_steps"`
	CacheBytes    int64       `yaml:"cache_bytes"`
	Workers       int         `yaml:"workers"`
	Integrator    encke.Stats `yaml:"integrator"`
}

func (s *Summary) add(o *Summary) {
	s.Records += o.Records
	s.Integrated += o.Integrated
	s.Reused += o.Reused
	s.CopiedThrough += o.CopiedThrough
	s.PassedThrough += o.PassedThrough
	s.Failed += o.Failed
	s.Fallback += o.Fallback
	s.Integrator.Add(o.Integrator)
}

// run holds what the serial phase produces.  It is read only during the
// parallel phase.
type run struct {
	opt    Options
	log    logrus.FieldLogger
	in     *catalog.Header
	out    *catalog.Header
	prev   *update.Index
	eng    *encke.Engine
	params update.Params
}

type result struct {
	line    string
	samples []string
}

// Run reads catalog in, writes the updated catalog to out.
func Run(ctx context.Context, in io.Reader, out io.Writer, opt Options) (*Summary, error) {
	if opt.Log == nil {
		opt.Log = logger.Discard()
	}
	if opt.Workers <= 0 {
		opt.Workers = runtime.NumCPU()
	}
	if opt.ScanLimit <= 0 {
		opt.ScanLimit = DefaultScanLimit
	}
	if opt.Bodies == nil {
		opt.Bodies = perturb.MeanElements{}
	}
	if err := opt.Engine.Validate(); err != nil {
		return nil, err
	}
	cr, err := catalog.NewReader(in)
	if err != nil {
		return nil, err
	}
	r := &run{opt: opt, log: opt.Log, in: cr.Header, out: cr.Header.Output()}
	if opt.Previous != "" {
		r.prev = r.loadPrevious(opt.Previous)
	}

	// serial phase
	head, found, epoch0, err := scanHead(cr, opt.ScanLimit, opt.Engine.Enabled)
	if err != nil {
		return nil, err
	}
	sys, err := r.promote(found)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Perturbers: sys.Enabled.String(), Workers: opt.Workers}
	cfg := opt.Engine
	cfg.Enabled = sys.Enabled
	var cache *perturb.Cache
	if epoch0 != 0 && epoch0 != opt.Target && sys.Enabled != 0 {
		h := cfg.MacroStep
		if opt.Target < epoch0 {
			h = -h
		}
		if cache, err = perturb.NewCache(sys, sys.Enabled, epoch0, opt.Target, h,
			encke.Stages[:], opt.CacheMaxBytes); err != nil {
			return nil, err
		}
		sum.CacheSteps, sum.CacheBytes = cache.Steps(), cache.Bytes()
		r.log.WithFields(logrus.Fields{
			"steps": cache.Steps(),
			"bytes": cache.Bytes(),
		}).Debug("perturber cache built")
	}
	if r.eng, err = encke.New(cfg, sys, cache); err != nil {
		return nil, err
	}
	r.params = update.Params{
		Target:      opt.Target,
		Tolerance:   cfg.Tolerance,
		MacroStep:   cfg.MacroStep,
		Perturbers:  cfg.Enabled,
		Relativity:  cfg.Relativity,
		RadiusFudge: cfg.RadiusFudge,
		Backend:     opt.Backend,
		Promoted:    promotedDigest(found, sys.Enabled),
	}

	// parallel phase
	bw := bufio.NewWriter(out)
	for _, l := range cr.Preamble {
		fmt.Fprintln(bw, l)
	}
	fmt.Fprintln(bw, r.out.Line)
	var sw *bufio.Writer
	if opt.Samples != nil {
		sw = bufio.NewWriter(opt.Samples)
	}
	n := opt.Workers
	jobs := make([]chan string, n)
	results := make([]chan result, n)
	for w := range jobs {
		jobs[w] = make(chan string, 64)
		results[w] = make(chan result, 64)
	}
	stats := make([]Summary, n)
	g, gctx := newSafeGroup(ctx, r.log)
	g.Go("reader", func() error {
		defer func() {
			for _, j := range jobs {
				close(j)
			}
		}()
		i := 0
		send := func(line string) error {
			select {
			case jobs[i%n] <- line:
				i++
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		for _, l := range head {
			if err := send(l); err != nil {
				return err
			}
		}
		for cr.Scan() {
			if err := send(cr.Line()); err != nil {
				return err
			}
		}
		return cr.Err()
	})
	for w := 0; w < n; w++ {
		w := w
		g.Go(fmt.Sprintf("worker %d", w), func() error {
			defer close(results[w])
			return r.work(gctx, w, jobs[w], results[w], &stats[w])
		})
	}
	g.Go("merge", func() error {
		return merge(gctx, results, bw, sw)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	if sw != nil {
		if err := sw.Flush(); err != nil {
			return nil, err
		}
	}
	for w := range stats {
		sum.add(&stats[w])
	}
	return sum, nil
}

// merge reads worker results round-robin, the same order records were
// dealt.  The first closed channel in that order marks the end of input.
func merge(ctx context.Context, results []chan result, out, samples *bufio.Writer) error {
	for i := 0; ; i++ {
		var res result
		var ok bool
		select {
		case res, ok = <-results[i%len(results)]:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !ok {
			return nil
		}
		if _, err := fmt.Fprintln(out, res.line); err != nil {
			return err
		}
		if samples != nil {
			for _, s := range res.samples {
				if _, err := fmt.Fprintln(samples, s); err != nil {
					return err
				}
			}
		}
	}
}

// loadPrevious reads the previous output.  Problems with it only disable
// reuse.
func (r *run) loadPrevious(path string) *update.Index {
	f, err := os.Open(path)
	if err != nil {
		r.log.WithError(err).Warn("previous output not read, integrating everything")
		return nil
	}
	defer f.Close()
	x, err := update.Load(f, r.out)
	if err != nil {
		r.log.WithError(err).Warn("previous output not usable, integrating everything")
		return nil
	}
	r.log.WithField("lines", x.Len()).Info("previous output indexed")
	return x
}

// work processes the records dealt to one worker.
func (r *run) work(ctx context.Context, w int, jobs <-chan string, results chan<- result, st *Summary) error {
	integ := r.eng.NewIntegrator()
	log := r.log.WithField("worker", w)
	for line := range jobs {
		if r.opt.fault != nil {
			r.opt.fault(w, line)
		}
		res := r.process(integ, line, st, log)
		select {
		case results <- res:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	st.Integrator = integ.Stats
	return nil
}

// process updates one line.  Anything that cannot be updated is passed
// through unchanged.
func (r *run) process(integ *encke.Integrator, line string, st *Summary, log logrus.FieldLogger) result {
	if catalog.IsComment(line) || strings.TrimSpace(line) == "" {
		return result{line: line}
	}
	st.Records++
	rec, err := r.in.Parse(line)
	if err != nil {
		st.PassedThrough++
		log.WithError(err).Debug("passing through")
		return result{line: line}
	}
	src := update.Src(r.in, line, r.params)
	if prev, ok := r.prev.Lookup(r.in, line, src); ok {
		st.Reused++
		return result{line: prev}
	}
	var res result
	integ.Sample = nil
	if r.opt.Samples != nil {
		integ.Sample = func(el *kepel.Elements) {
			p, _ := el.State(el.Epoch)
			res.samples = append(res.samples, fmt.Sprintf("%-12s %.7f %15.12f %15.12f %15.12f",
				rec.Desig, el.Epoch, p.X, p.Y, p.Z))
		}
	}
	// outcome is counted only once the line is written
	el := rec.Elements
	outcome := &st.Integrated
	if el.Epoch == r.opt.Target {
		outcome = &st.CopiedThrough
	} else if el, err = integ.Integrate(rec.Elements, r.opt.Target, perturb.Promoted(rec.Desig)); err != nil {
		log := log.WithField("desig", rec.Desig).WithError(err)
		if !r.opt.IncludeUnperturbed {
			st.Failed++
			log.Warn("integration failed, passing through")
			return result{line: line}
		}
		log.Warn("integration failed, propagating unperturbed")
		el, _ = encke.TwoBody(rec.Elements, r.opt.Target)
		outcome = &st.Fallback
		res.samples = nil
		src = "" // never reused
	}
	if res.line, err = r.out.Format(rec, &el, src); err != nil {
		st.Failed++
		log.WithField("desig", rec.Desig).WithError(err).Warn("passing through")
		return result{line: line}
	}
	*outcome++
	return res
}

// scanHead reads up to limit records looking for asteroid perturbers.  It
// returns the lines read, the perturber records found, and the epoch of
// the first parseable record.
func scanHead(cr *catalog.Reader, limit int, want perturb.Mask) (
	head []string, found map[perturb.Perturber]*catalog.Record, epoch0 float64, err error) {
	found = map[perturb.Perturber]*catalog.Record{}
	want &= perturb.Asteroids
	for n := 0; n < limit && cr.Scan(); {
		line := cr.Line()
		head = append(head, line)
		if catalog.IsComment(line) {
			continue
		}
		n++
		rec, err := cr.Header.Parse(line)
		if err != nil {
			continue
		}
		if epoch0 == 0 {
			epoch0 = rec.Elements.Epoch
		}
		if p := perturb.Promoted(rec.Desig); want.Has(p) {
			if _, dup := found[p]; !dup {
				found[p] = rec
			}
		}
		if len(found) == popCount(want) && epoch0 != 0 {
			break
		}
	}
	return head, found, epoch0, cr.Err()
}

// promotedDigest digests the input lines of the enabled asteroid
// perturbers.  Every integrated record depends on them.
func promotedDigest(found map[perturb.Perturber]*catalog.Record, enabled perturb.Mask) string {
	var s []string
	for p := perturb.Ceres; p <= perturb.Vesta; p++ {
		if enabled.Has(p) {
			s = append(s, p.String(), found[p].Line)
		}
	}
	return update.Digest(s...)
}

func popCount(m perturb.Mask) int {
	n := 0
	for p := perturb.Perturber(0); int(p) < perturb.NumPerturbers; p++ {
		if m.Has(p) {
			n++
		}
	}
	return n
}
