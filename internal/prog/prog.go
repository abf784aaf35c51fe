// Public domain.

// Package prog is the encke command.
package prog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/soniakeys/exit"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/soniakeys/encke/internal/catalog"
	"github.com/soniakeys/encke/internal/logger"
	"github.com/soniakeys/encke/internal/runner"
)

const versionString = "encke version 0.1 Go source."
const copyrightString = "Public domain."

// Main runs the command line program.
func Main() {
	defer exit.Handler()
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		exit.Log(err)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:   "encke [flags] <catalog> <output>",
		Short: "update minor planet orbits to a new epoch",
		Long: `encke propagates the osculating elements of an orbit catalog to a target
epoch, integrating perturbations by the planets, the Moon, and optionally
Ceres, Pallas, and Vesta.

Either file may be "-" for standard input or output.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cmd, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), v, args[0], args[1])
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./encke.yaml if present)")
	pf.String(kLogLevel, "info", "log level: debug, info, warn, error")
	pf.Bool(kColor, isatty.IsTerminal(os.Stderr.Fd()), "color log output")
	addRunFlags(root.Flags())

	root.AddCommand(newSynthCmd(), newVersionCmd())
	return root
}

// initConfig binds flags, environment, and config file, in increasing
// order of precedence: file, environment, flags.
func initConfig(v *viper.Viper, cmd *cobra.Command, cfgFile string) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	v.SetEnvPrefix("ENCKE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("encke")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &nf) {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

func runUpdate(ctx context.Context, v *viper.Viper, in, out string) error {
	log, err := logger.New(os.Stderr, v.GetString(kLogLevel), v.GetBool(kColor))
	if err != nil {
		return err
	}
	s, err := loadSettings(v)
	if err != nil {
		return err
	}
	bodies, err := openBodies(s.ephemeris, s.ephemerisPath)
	if err != nil {
		return err
	}
	runID := uuid.New().String()
	entry := log.WithField("run", runID[:8])
	s.opt.Bodies = bodies
	s.opt.Log = entry

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	entry.WithFields(logrus.Fields{
		"input":     in,
		"target":    catalog.FormatDate(s.opt.Target),
		"ephemeris": s.ephemeris,
	}).Info("starting")
	start := time.Now()
	sum, err := runner.RunFiles(ctx, in, out, s.samples, s.opt)
	if err != nil {
		return err
	}
	sum.RunID = runID
	entry.WithFields(logrus.Fields{
		"records":    sum.Records,
		"integrated": sum.Integrated,
		"reused":     sum.Reused,
		"passed":     sum.PassedThrough + sum.Failed,
		"fallback":   sum.Fallback,
		"rejected":   sum.Integrator.Rejected,
		"elapsed":    time.Since(start).Round(time.Millisecond),
	}).Info("done")
	if s.summary != "" {
		return writeSummary(s.summary, sum)
	}
	return nil
}

func writeSummary(path string, sum *runner.Summary) error {
	b, err := yaml.Marshal(sum)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0666)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "display version and copyright",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString)
			fmt.Fprintln(cmd.OutOrStdout(), copyrightString)
		},
	}
}

func newSynthCmd() *cobra.Command {
	var (
		n       int
		seed    uint64
		epoch   string
		promote bool
	)
	cmd := &cobra.Command{
		Use:   "synth [flags] <output>",
		Short: "write a synthetic catalog of main belt orbits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jd, err := parseTarget(epoch)
			if err != nil {
				return err
			}
			if args[0] == "-" {
				return catalog.Synthesize(cmd.OutOrStdout(), n, seed, jd, promote)
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := catalog.Synthesize(f, n, seed, jd, promote); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	fs := cmd.Flags()
	fs.IntVarP(&n, "count", "n", 1000, "number of records")
	fs.Uint64Var(&seed, "seed", 1, "random seed")
	fs.StringVar(&epoch, "epoch", "2460000.5", "epoch of the elements")
	fs.BoolVar(&promote, "promote", true, "start with Ceres, Pallas, and Vesta")
	return cmd
}
