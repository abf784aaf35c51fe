// Public domain.

package prog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/soniakeys/encke/internal/catalog"
	"github.com/soniakeys/encke/internal/encke"
	"github.com/soniakeys/encke/internal/perturb"
	"github.com/soniakeys/encke/internal/runner"
)

// configuration keys, also flag names.  Environment variables are the
// upper case key with prefix ENCKE_ and dashes as underscores.
const (
	kTarget             = "target"
	kStep               = "step"
	kTolerance          = "tolerance"
	kWorkers            = "workers"
	kIncludeUnperturbed = "include-unperturbed"
	kSamples            = "samples"
	kPrevious           = "previous"
	kPerturbers         = "perturbers"
	kRelativity         = "relativity"
	kRadiusFudge        = "radius-fudge"
	kEphemeris          = "ephemeris"
	kEphemerisPath      = "ephemeris-path"
	kCacheMax           = "cache-max-mb"
	kScanLimit          = "scan-limit"
	kSummary            = "summary"
	kLogLevel           = "log-level"
	kColor              = "color"
)

// Ephemeris backends.
const (
	backendKepler = "kepler"
	backendVSOP87 = "vsop87"
)

func addRunFlags(fs *pflag.FlagSet) {
	d := encke.DefaultConfig()
	fs.String(kTarget, "", "target epoch, JDE or TT date \"YYYY MM DD.ddddddd\" (required)")
	fs.Float64(kStep, d.MacroStep, "macro-step between rectifications, days")
	fs.Float64(kTolerance, d.Tolerance, "per step error tolerance")
	fs.Int(kWorkers, 0, "worker count, 0 for one per CPU")
	fs.Bool(kIncludeUnperturbed, false, "propagate two-body when integration fails")
	fs.String(kSamples, "", "write ephemeris samples at each macro-step to this file")
	fs.String(kPrevious, "", "previous output; unchanged records are copied from it")
	fs.String(kPerturbers, "all", "perturbers: names, \"planets\", \"asteroids\", \"all\"")
	fs.Bool(kRelativity, d.Relativity, "include the relativistic term")
	fs.Float64(kRadiusFudge, d.RadiusFudge, "scale of perturber radii for close approach softening")
	fs.String(kEphemeris, backendKepler, "perturber ephemeris: kepler, vsop87")
	fs.String(kEphemerisPath, "", "VSOP87 series directory")
	fs.Int64(kCacheMax, 1024, "perturber cache size limit, MB")
	fs.Int(kScanLimit, runner.DefaultScanLimit, "records searched for asteroid perturbers")
	fs.String(kSummary, "", "write a YAML run summary to this file")
}

// settings are the validated run settings.
type settings struct {
	opt           runner.Options
	ephemeris     string
	ephemerisPath string
	samples       string
	summary       string
}

func loadSettings(v *viper.Viper) (*settings, error) {
	s := &settings{
		ephemeris:     strings.ToLower(v.GetString(kEphemeris)),
		ephemerisPath: v.GetString(kEphemerisPath),
		samples:       v.GetString(kSamples),
		summary:       v.GetString(kSummary),
	}
	ts := v.GetString(kTarget)
	if ts == "" {
		return nil, errors.New("target epoch required")
	}
	target, err := parseTarget(ts)
	if err != nil {
		return nil, err
	}
	mask, err := perturb.ParseMask(v.GetString(kPerturbers))
	if err != nil {
		return nil, err
	}
	cfg := encke.DefaultConfig()
	cfg.MacroStep = v.GetFloat64(kStep)
	cfg.Tolerance = v.GetFloat64(kTolerance)
	cfg.Enabled = mask
	cfg.Relativity = v.GetBool(kRelativity)
	cfg.RadiusFudge = v.GetFloat64(kRadiusFudge)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch s.ephemeris {
	case backendKepler:
	case backendVSOP87:
		if s.ephemerisPath == "" {
			return nil, fmt.Errorf("ephemeris %s requires %s", s.ephemeris, kEphemerisPath)
		}
	default:
		return nil, fmt.Errorf("unknown ephemeris %q", s.ephemeris)
	}
	s.opt = runner.Options{
		Target:             target,
		Engine:             cfg,
		Backend:            s.ephemeris,
		Workers:            v.GetInt(kWorkers),
		IncludeUnperturbed: v.GetBool(kIncludeUnperturbed),
		Previous:           v.GetString(kPrevious),
		CacheMaxBytes:      v.GetInt64(kCacheMax) << 20,
		ScanLimit:          v.GetInt(kScanLimit),
	}
	return s, nil
}

// parseTarget accepts a JDE number or a TT calendar date.
func parseTarget(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if jd, err := strconv.ParseFloat(s, 64); err == nil {
		return jd, nil
	}
	jd, err := catalog.ParseDate(s)
	if err != nil {
		return 0, fmt.Errorf("target epoch %q: %w", s, err)
	}
	return jd, nil
}

// openBodies opens the configured ephemeris backend.
func openBodies(name, path string) (perturb.Source, error) {
	if name == backendVSOP87 {
		v, err := perturb.LoadVSOP87(path)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	return perturb.MeanElements{}, nil
}
