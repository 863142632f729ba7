package oracle

import (
	"context"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/siph-lab/bdc-optimizer/pkg/smatrix"
)

// Cached returns a scattering matrix already persisted in the project folder
// instead of running Next again. Files that cannot be read or whose sweep
// length differs from the request are ignored.
type Cached struct {
	Next Oracle
	// FileName is relative to the project folder, smatrix.s4p if empty.
	FileName string
}

func (c *Cached) Simulate(ctx context.Context, req Request) (*smatrix.SMatrix, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	name := c.FileName
	if name == "" {
		name = smatrix.FileName(len(req.Device.Ports))
	}
	path := filepath.Join(req.ProjectFolder, name)
	m, err := smatrix.ReadTouchstoneFile(path, req.Device.PortNames())
	if err == nil && len(m.Wavelengths) == req.Sweep.Count {
		klog.FromContext(ctx).V(4).Info("Reusing persisted scattering matrix", "path", path)
		return m, nil
	}
	return c.Next.Simulate(ctx, req)
}
