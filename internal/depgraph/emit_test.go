package depgraph

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackatlas/cfn-depgraph/internal/common"
)

func TestEmitModuleTree(t *testing.T) {
	v := View{
		Name:  "stacks",
		Nodes: []common.NodeID{"billing/api", "billing/db", "search/api"},
		Edges: []Edge{
			{From: "billing/api", To: "billing/db"},
			{From: "search/api", To: "billing/db"},
		},
	}

	dir := t.TempDir()
	require.NoError(t, v.EmitModuleTree(dir))

	// leaf node is an empty placeholder
	data, err := os.ReadFile(unitPath(dir, "billing/db"))
	require.NoError(t, err)
	assert.Empty(t, data)

	// dependents carry one require per edge
	decl := "require('./" + unitBase("billing/db") + "');\n"
	data, err = os.ReadFile(unitPath(dir, "billing/api"))
	require.NoError(t, err)
	assert.Equal(t, decl, string(data))

	data, err = os.ReadFile(unitPath(dir, "search/api"))
	require.NoError(t, err)
	assert.Equal(t, decl, string(data))
}

func TestUnitBase(t *testing.T) {
	t.Run("clean names pass through", func(t *testing.T) {
		assert.Equal(t, "billing", unitBase("billing"))
	})

	t.Run("stack nodes stay flat", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(unitBase("billing/db"), "billing__db-"))
	})

	t.Run("replaced characters do not collide", func(t *testing.T) {
		assert.NotEqual(t, unitBase("billing/db"), unitBase("billing__db"))
		assert.NotEqual(t, unitBase("a.b"), unitBase("a-b"))
	})
}

func TestEmit(t *testing.T) {
	t.Run("multi-app writes both trees", func(t *testing.T) {
		g := Graph{
			Stacks: View{Name: "stacks", Nodes: []common.NodeID{"billing/db", "search/api"}},
			Apps:   View{Name: "apps", Nodes: []common.NodeID{"billing", "search"}},
		}
		out := t.TempDir()
		dirs, err := g.Emit(out)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(out, "stacks"),
			filepath.Join(out, "apps"),
		}, dirs)
	})

	t.Run("single app skips the coarse tree", func(t *testing.T) {
		g := Graph{
			Stacks: View{Name: "stacks", Nodes: []common.NodeID{"billing/db", "billing/api"}},
			Apps:   View{Name: "apps", Nodes: []common.NodeID{"billing"}},
		}
		out := t.TempDir()
		dirs, err := g.Emit(out)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(out, "stacks")}, dirs)
		_, err = os.Stat(filepath.Join(out, "apps"))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestWriteDOT(t *testing.T) {
	v := View{
		Name:  "apps",
		Nodes: []common.NodeID{"billing", "search"},
		Edges: []Edge{{From: "search", To: "billing"}},
	}

	var b strings.Builder
	require.NoError(t, v.WriteDOT(&b, "123456789012 eu-west-1"))
	out := b.String()

	assert.Contains(t, out, `digraph "apps" {`)
	assert.Contains(t, out, `label = "123456789012 eu-west-1";`)
	assert.Contains(t, out, `"billing";`)
	assert.Contains(t, out, `"search" -> "billing";`)
}

func TestRenderer(t *testing.T) {
	var got []string
	execCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		got = append([]string{name}, args...)
		return exec.CommandContext(ctx, "true")
	}
	defer func() { execCommand = exec.CommandContext }()

	t.Run("module tree uses the configured bin", func(t *testing.T) {
		r := Renderer{Bin: "my-madge"}
		require.NoError(t, r.RenderModuleTree(context.Background(), "modules/stacks", "out/stacks.svg"))
		assert.Equal(t, []string{"my-madge", "--image", "out/stacks.svg", "modules/stacks"}, got)
	})

	t.Run("dot renders svg", func(t *testing.T) {
		r := Renderer{}
		require.NoError(t, r.RenderDOT(context.Background(), "out/apps.dot", "out/apps.svg"))
		assert.Equal(t, []string{"dot", "-Tsvg", "-o", "out/apps.svg", "out/apps.dot"}, got)
	})
}
