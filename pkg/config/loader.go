// Package config loads optimization run configuration from a YAML file, an
// optional .env file and BDC_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"

	"github.com/siph-lab/bdc-optimizer/apis/config/v1alpha1"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BDC_"

// Options controls where configuration is read from.
type Options struct {
	// EnvFile is a dotenv file consulted for variables absent from the
	// process environment. A missing file is not an error.
	EnvFile string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load reads path (empty means all defaults), applies environment overrides,
// fills defaults and validates the result.
func Load(ctx context.Context, path string, opts Options) (*v1alpha1.OptimizationConfig, error) {
	logger := klog.FromContext(ctx)
	cfg := &v1alpha1.OptimizationConfig{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if cfg, err = Decode(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		logger.V(2).Info("Loaded configuration", "path", path)
	}

	lookup, err := opts.lookup()
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	v1alpha1.SetDefaults_OptimizationConfig(cfg)
	if errs := v1alpha1.ValidateOptimizationConfig(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errs.ToAggregate())
	}
	return cfg, nil
}

// Decode parses a YAML or JSON document, rejecting unknown fields.
func Decode(raw []byte) (*v1alpha1.OptimizationConfig, error) {
	cfg := &v1alpha1.OptimizationConfig{}
	if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func (o Options) lookup() (func(string) (string, bool), error) {
	env := o.LookupEnv
	if env == nil {
		env = os.LookupEnv
	}
	if o.EnvFile == "" {
		return env, nil
	}
	values, err := godotenv.Read(o.EnvFile)
	if errors.Is(err, fs.ErrNotExist) {
		return env, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", o.EnvFile, err)
	}
	return func(key string) (string, bool) {
		if v, ok := env(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}, nil
}

type override struct {
	key   string
	apply func(cfg *v1alpha1.OptimizationConfig, value string) error
}

var overrides = []override{
	{"DATA_ROOT", func(c *v1alpha1.OptimizationConfig, v string) error { c.Design.DataRoot = v; return nil }},
	{"DATA_TAG", func(c *v1alpha1.OptimizationConfig, v string) error { c.Design.DataTag = v; return nil }},
	{"SOLVER_COMMAND", func(c *v1alpha1.OptimizationConfig, v string) error { c.Solver.Command = v; return nil }},
	{"SOLVER_ARGS", func(c *v1alpha1.OptimizationConfig, v string) error { c.Solver.Args = strings.Fields(v); return nil }},
	{"DRY_RUN", func(c *v1alpha1.OptimizationConfig, v string) error {
		b, err := strconv.ParseBool(v)
		c.Solver.DryRun = b
		return err
	}},
	{"OUTPUT_DIR", func(c *v1alpha1.OptimizationConfig, v string) error { c.Output.Dir = v; return nil }},
	{"ARCHIVE", func(c *v1alpha1.OptimizationConfig, v string) error { c.Output.Archive = v; return nil }},
	{"ARCHIVE_PATH", func(c *v1alpha1.OptimizationConfig, v string) error { c.Output.ArchivePath = v; return nil }},
	{"METRICS_FILE", func(c *v1alpha1.OptimizationConfig, v string) error { c.Output.MetricsFile = v; return nil }},
	{"POP_SIZE", intOverride(func(c *v1alpha1.OptimizationConfig) **int { return &c.Optimizer.PopSize })},
	{"GENERATIONS", intOverride(func(c *v1alpha1.OptimizationConfig) **int { return &c.Optimizer.NumGenerations })},
	{"WORKERS", intOverride(func(c *v1alpha1.OptimizationConfig) **int { return &c.Optimizer.Workers })},
	{"SEED", func(c *v1alpha1.OptimizationConfig, v string) error {
		seed, err := strconv.ParseUint(v, 10, 64)
		c.Optimizer.Seed = ptr.To(seed)
		return err
	}},
}

func intOverride(field func(*v1alpha1.OptimizationConfig) **int) func(*v1alpha1.OptimizationConfig, string) error {
	return func(c *v1alpha1.OptimizationConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = ptr.To(n)
		return nil
	}
}

// ApplyEnv overrides cfg with the BDC_* variables found through lookup.
func ApplyEnv(cfg *v1alpha1.OptimizationConfig, lookup func(string) (string, bool)) error {
	var errs []error
	for _, o := range overrides {
		v, ok := lookup(EnvPrefix + o.key)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(cfg, v); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, o.key, err))
		}
	}
	return errors.Join(errs...)
}
