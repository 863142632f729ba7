package oracle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/siph-lab/bdc-optimizer/pkg/smatrix"
)

const (
	// DeviceFileName is the layout description handed to the solver.
	DeviceFileName = "device.json"
	// DefaultSolverOutput is the Touchstone file the solver is expected to produce.
	DefaultSolverOutput = "solver.s4p"

	stderrTail = 2048
)

// Exec drives an external solver process. Args may contain the placeholders
// {project}, {device}, {output}, {start}, {stop}, {count} and {mesh}. The
// process runs with the project folder as working directory and must write a
// Touchstone file to {output}. No timeout is applied; ctx cancellation kills it.
type Exec struct {
	Command string
	Args    []string
	Env     []string
	// OutputName is relative to the project folder, DefaultSolverOutput if empty.
	OutputName string

	// Stdout receives solver output, discarded when nil.
	Stdout io.Writer
}

func (e *Exec) outputName() string {
	if e.OutputName == "" {
		return DefaultSolverOutput
	}
	return e.OutputName
}

func (e *Exec) expand(req Request, devicePath, outputPath string) []string {
	r := strings.NewReplacer(
		"{project}", req.ProjectFolder,
		"{device}", devicePath,
		"{output}", outputPath,
		"{start}", strconv.FormatFloat(req.Sweep.Start, 'g', -1, 64),
		"{stop}", strconv.FormatFloat(req.Sweep.Stop, 'g', -1, 64),
		"{count}", strconv.Itoa(req.Sweep.Count),
		"{mesh}", strconv.Itoa(req.MeshAccuracy),
	)
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = r.Replace(a)
	}
	return args
}

func (e *Exec) Simulate(ctx context.Context, req Request) (*smatrix.SMatrix, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if e.Command == "" {
		return nil, fmt.Errorf("%w: no solver command configured", ErrInvalidRequest)
	}
	logger := klog.FromContext(ctx)

	project, err := filepath.Abs(req.ProjectFolder)
	if err != nil {
		return nil, err
	}
	req.ProjectFolder = project
	if err := os.MkdirAll(project, 0o755); err != nil {
		return nil, fmt.Errorf("creating project folder: %w", err)
	}

	raw, err := req.Device.MarshalIndent()
	if err != nil {
		return nil, fmt.Errorf("encoding device: %w", err)
	}
	devicePath := filepath.Join(project, DeviceFileName)
	if err := os.WriteFile(devicePath, raw, 0o644); err != nil {
		return nil, fmt.Errorf("writing device description: %w", err)
	}
	outputPath := filepath.Join(project, e.outputName())
	// A stale output from an earlier run must not be mistaken for this one.
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale solver output: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.Command, e.expand(req, devicePath, outputPath)...)
	cmd.Dir = project
	cmd.Env = append(os.Environ(), e.Env...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = e.Stdout

	start := time.Now()
	logger.V(4).Info("Starting solver", "command", e.Command, "project", project)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("solver %s failed: %w: %s", e.Command, err, tail(stderr.String()))
	}
	logger.V(4).Info("Solver finished", "project", project, "elapsed", time.Since(start))

	m, err := smatrix.ReadTouchstoneFile(outputPath, req.Device.PortNames())
	if err != nil {
		return nil, fmt.Errorf("solver output: %w", err)
	}
	if len(m.Wavelengths) != req.Sweep.Count {
		return nil, fmt.Errorf("solver output has %d wavelengths, sweep has %d", len(m.Wavelengths), req.Sweep.Count)
	}
	return m, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		return "..." + s[len(s)-stderrTail:]
	}
	return s
}
