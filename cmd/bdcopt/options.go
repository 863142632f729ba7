package main

import (
	"github.com/spf13/pflag"

	"github.com/siph-lab/bdc-optimizer/pkg/config"
)

type options struct {
	ConfigFile string
	EnvFile    string
	Quiet      bool

	// flagEnv maps override flags to the environment variable they stand for.
	flagEnv map[string]string
}

func newOptions() *options {
	return &options{
		EnvFile: ".env",
		flagEnv: map[string]string{
			"dry-run":      "DRY_RUN",
			"data-root":    "DATA_ROOT",
			"output-dir":   "OUTPUT_DIR",
			"archive":      "ARCHIVE",
			"metrics-file": "METRICS_FILE",
			"pop-size":     "POP_SIZE",
			"generations":  "GENERATIONS",
			"workers":      "WORKERS",
			"seed":         "SEED",
		},
	}
}

func (o *options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigFile, "config", o.ConfigFile, "Path to the OptimizationConfig file. Defaults are used when empty.")
	fs.StringVar(&o.EnvFile, "env-file", o.EnvFile, "Dotenv file with "+config.EnvPrefix+"* overrides. Ignored when missing.")
	fs.BoolVarP(&o.Quiet, "quiet", "q", o.Quiet, "Do not print the generation display and the final report.")

	fs.Bool("dry-run", false, "Replace the solver with an ideal 3 dB coupler.")
	fs.String("data-root", "", "Directory receiving the simulated scattering matrices.")
	fs.String("output-dir", "", "Directory receiving plots and reports.")
	fs.String("archive", "", "Evaluation archive backend: memory or sqlite.")
	fs.String("metrics-file", "", "Write run metrics in the Prometheus text format to this file.")
	fs.Int("pop-size", 0, "Population size.")
	fs.Int("generations", 0, "Number of generations.")
	fs.Int("workers", 0, "Concurrent evaluations per generation.")
	fs.Uint64("seed", 0, "Random seed.")
}

// lookup resolves configuration overrides: flags set on the command line
// win over env.
func (o *options) lookup(fs *pflag.FlagSet, env func(string) (string, bool)) func(string) (string, bool) {
	set := map[string]string{}
	fs.Visit(func(f *pflag.Flag) {
		if key, ok := o.flagEnv[f.Name]; ok {
			set[config.EnvPrefix+key] = f.Value.String()
		}
	})
	return func(key string) (string, bool) {
		if v, ok := set[key]; ok {
			return v, true
		}
		return env(key)
	}
}
