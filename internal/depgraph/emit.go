package depgraph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/stackatlas/cfn-depgraph/internal/common"
)

var unsafeUnitChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// unitBase maps a node id onto a filesystem-safe module name; the `/`
// between app and component becomes `__` so both granularities stay flat.
// A node id the mapping altered gets a hash of the original appended so two
// ids differing only in replaced characters keep distinct units.
func unitBase(n common.NodeID) string {
	name := strings.ReplaceAll(string(n), "/", "__")
	name = unsafeUnitChars.ReplaceAllString(name, "-")
	if name != string(n) {
		sum := sha256.Sum256([]byte(n))
		name += "-" + hex.EncodeToString(sum[:4])
	}
	return name
}

func unitPath(dir string, n common.NodeID) string {
	return filepath.Join(dir, unitBase(n)+".js")
}

// EmitModuleTree writes the view as a synthetic module-import tree under
// dir: one placeholder unit per node, then one require() declaration per
// edge appended to the referencing unit. The module-graph renderer derives
// the picture purely from these imports; the units carry no other content.
func (v View) EmitModuleTree(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s graph directory", v.Name)
	}

	for _, n := range v.Nodes {
		glog.V(2).Infof("unit %s -> %s", n, unitPath(dir, n))
		if err := os.WriteFile(unitPath(dir, n), nil, 0o644); err != nil {
			return errors.Wrapf(err, "writing unit for node %q", n)
		}
	}

	for _, e := range v.Edges {
		decl := fmt.Sprintf("require('./%s');\n", unitBase(e.To))
		if err := appendToFile(unitPath(dir, e.From), decl); err != nil {
			return errors.Wrapf(err, "declaring dependency %q -> %q", e.From, e.To)
		}
	}

	glog.V(1).Infof("emitted %s tree: %d units, %d dependencies", v.Name, len(v.Nodes), len(v.Edges))
	return nil
}

func appendToFile(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Emit writes the module trees under outDir: stacks/ always, apps/ only
// when more than one app is involved. It returns the directories written.
func (g Graph) Emit(outDir string) ([]string, error) {
	stacksDir := filepath.Join(outDir, "stacks")
	if err := g.Stacks.EmitModuleTree(stacksDir); err != nil {
		return nil, err
	}
	dirs := []string{stacksDir}

	if g.MultiApp() {
		appsDir := filepath.Join(outDir, "apps")
		if err := g.Apps.EmitModuleTree(appsDir); err != nil {
			return nil, err
		}
		dirs = append(dirs, appsDir)
	}
	return dirs, nil
}
