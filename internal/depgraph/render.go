package depgraph

import (
	"context"
	"os/exec"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// DefaultRenderer is the module-graph tool expected on PATH; it reads the
// synthetic require() tree and draws the image.
const DefaultRenderer = "madge"

// execCommand is swapped out in tests.
var execCommand = exec.CommandContext

// Renderer shells out to an external graph-drawing tool.
type Renderer struct {
	// Bin is the renderer binary; DefaultRenderer when empty.
	Bin string
}

func (r Renderer) bin() string {
	if r.Bin == "" {
		return DefaultRenderer
	}
	return r.Bin
}

// RenderModuleTree draws the module tree under dir into image.
func (r Renderer) RenderModuleTree(ctx context.Context, dir, image string) error {
	cmd := execCommand(ctx, r.bin(), "--image", image, dir)
	glog.V(1).Infof("rendering: %v", cmd.Args)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "%s failed: %s", r.bin(), string(out))
	}
	return nil
}

// RenderDOT draws a DOT file into image using graphviz.
func (r Renderer) RenderDOT(ctx context.Context, dotPath, image string) error {
	cmd := execCommand(ctx, "dot", "-Tsvg", "-o", image, dotPath)
	glog.V(1).Infof("rendering: %v", cmd.Args)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "dot failed: %s", string(out))
	}
	return nil
}
