// Command bdcopt runs the taper optimization of a broadband directional coupler.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"k8s.io/component-base/logs"
	"k8s.io/klog/v2"

	"github.com/siph-lab/bdc-optimizer/pkg/bdc"
	"github.com/siph-lab/bdc-optimizer/pkg/config"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("bdcopt", pflag.ContinueOnError)
	opts := newOptions()
	opts.AddFlags(fs)
	logs.AddFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logs.InitLogs()
	defer logs.FlushLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := klog.Background().WithName("bdcopt")
	ctx = klog.NewContext(ctx, logger)

	cfg, err := config.Load(ctx, opts.ConfigFile, config.Options{
		EnvFile:   opts.EnvFile,
		LookupEnv: opts.lookup(fs, os.LookupEnv),
	})
	if err != nil {
		logger.Error(err, "Loading configuration failed")
		return 1
	}

	runOpts := bdc.RunOptions{}
	if !opts.Quiet {
		runOpts.Out = os.Stdout
	}
	if _, err := bdc.Run(ctx, cfg, runOpts); err != nil {
		logger.Error(err, "Optimization failed")
		return 1
	}
	return 0
}
