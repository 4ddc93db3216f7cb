package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stackatlas/cfn-depgraph/internal/common"
	"github.com/stackatlas/cfn-depgraph/internal/depgraph"
	"github.com/stackatlas/cfn-depgraph/internal/discover"
	"github.com/stackatlas/cfn-depgraph/internal/naming"
)

const (
	formatImage = "image"
	formatDOT   = "dot"
)

type graphConfig struct {
	env        string
	apps       stringSlice
	kinds      stringSlice
	excludes   stringSlice
	out        string
	format     string
	renderer   string
	configFile string
}

func newGraphCommand(opts *rootOptions) *cobra.Command {
	cfg := graphConfig{}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Build and render the stack and app dependency graphs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateGraphConfig(cfg); err != nil {
				return err
			}
			return runGraph(cmd.Context(), opts, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.env, "env", "", "Only include stacks in this environment")
	cmd.Flags().Var(&cfg.apps, "app", "Only include stacks of these apps (repeatable, comma-separated)")
	cmd.Flags().Var(&cfg.kinds, "kind", "Only include stacks whose component matches these kinds (repeatable)")
	cmd.Flags().Var(&cfg.excludes, "exclude", "Exclude stacks whose name matches these regexps (repeatable)")
	cmd.Flags().StringVarP(&cfg.out, "out", "o", "graph", "Output directory")
	cmd.Flags().StringVar(&cfg.format, "format", formatImage, "Output format: image (render via the module-graph tool) or dot")
	cmd.Flags().StringVar(&cfg.renderer, "renderer", "", "Renderer binary for --format image (default "+depgraph.DefaultRenderer+")")
	cmd.Flags().StringVar(&cfg.configFile, "config", ".cfn-depgraph.yaml", "Naming convention config file")

	return cmd
}

func validateGraphConfig(cfg graphConfig) error {
	if cfg.out == "" {
		return fmt.Errorf("output directory is required")
	}
	if cfg.format != formatImage && cfg.format != formatDOT {
		return fmt.Errorf("unknown format %q: want %q or %q", cfg.format, formatImage, formatDOT)
	}
	return nil
}

func runGraph(ctx context.Context, opts *rootOptions, cfg graphConfig) error {
	sess, err := newSession(ctx, opts)
	if err != nil {
		return err
	}

	d := &discover.Discoverer{
		API:     sess.client,
		Cache:   sess.cache,
		Logger:  sess.logger,
		Account: sess.client.Account,
		Region:  sess.client.Region,
	}
	topo, err := d.Topology(ctx)
	if err != nil {
		return err
	}

	conv, err := naming.LoadConvention(cfg.configFile)
	if err != nil {
		return err
	}
	excludes, err := naming.CompileExcludes(cfg.excludes)
	if err != nil {
		return err
	}
	filter := naming.Filter{
		Env:     common.Environment(cfg.env),
		Apps:    toAppNames(cfg.apps),
		Kinds:   cfg.kinds,
		Exclude: excludes,
	}

	g := depgraph.Build(topo.Stacks, topo.Exports, conv, filter)
	if len(g.Stacks.Nodes) == 0 {
		return fmt.Errorf("no stacks matched the filters")
	}
	sess.logger.Info("built graph",
		"stacks", len(g.Stacks.Nodes), "stackEdges", len(g.Stacks.Edges),
		"apps", len(g.Apps.Nodes), "appEdges", len(g.Apps.Edges))

	title := fmt.Sprintf("%s %s", topo.Account, topo.Region)
	switch cfg.format {
	case formatDOT:
		return writeDOTFiles(g, cfg.out, title, sess)
	default:
		return renderImages(ctx, g, cfg, sess)
	}
}

func writeDOTFiles(g depgraph.Graph, outDir, title string, sess *session) error {
	views := []depgraph.View{g.Stacks}
	if g.MultiApp() {
		views = append(views, g.Apps)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, v := range views {
		path := filepath.Join(outDir, v.Name+".dot")
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := v.WriteDOT(f, title); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		sess.logger.Info("wrote dot file", "path", path)
	}
	return nil
}

func renderImages(ctx context.Context, g depgraph.Graph, cfg graphConfig, sess *session) error {
	dirs, err := g.Emit(filepath.Join(cfg.out, "modules"))
	if err != nil {
		return err
	}
	r := depgraph.Renderer{Bin: cfg.renderer}
	for _, dir := range dirs {
		image := filepath.Join(cfg.out, filepath.Base(dir)+".svg")
		if err := r.RenderModuleTree(ctx, dir, image); err != nil {
			return err
		}
		sess.logger.Info("rendered graph", "image", image)
	}
	return nil
}

func toAppNames(apps []string) []common.AppName {
	names := make([]common.AppName, 0, len(apps))
	for _, a := range apps {
		names = append(names, common.AppName(a))
	}
	return names
}
