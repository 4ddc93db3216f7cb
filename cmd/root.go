package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stackatlas/cfn-depgraph/internal/cache"
	"github.com/stackatlas/cfn-depgraph/internal/cfn"
	"github.com/stackatlas/cfn-depgraph/internal/logging"
)

type rootOptions struct {
	profile  string
	region   string
	cacheDir string
	noCache  bool
	refresh  bool
	verbose  bool
}

// Execute runs the CLI.
func Execute() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "cfn-depgraph",
		Short: "Draw dependency graphs of CloudFormation stacks and their cross-stack imports",
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.profile, "profile", "", "AWS shared config profile to use")
	pf.StringVar(&opts.region, "region", "", "AWS region (falls back to AWS_REGION / AWS_DEFAULT_REGION)")
	pf.StringVar(&opts.cacheDir, "cache-dir", "", "Directory for the API response cache (default: user cache dir)")
	pf.BoolVar(&opts.noCache, "no-cache", false, "Bypass the API response cache entirely")
	pf.BoolVar(&opts.refresh, "refresh", false, "Refetch API responses and rewrite the cache")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newGraphCommand(opts), newExportsCommand(opts), newResourcesCommand(opts))

	return cmd
}

func validateRootOptions(opts *rootOptions) error {
	if opts.region == "" && os.Getenv("AWS_REGION") == "" && os.Getenv("AWS_DEFAULT_REGION") == "" {
		return fmt.Errorf("--region, AWS_REGION or AWS_DEFAULT_REGION must be set")
	}
	return nil
}

// session bundles the pieces every subcommand needs: an authenticated
// client, a cache scoped to its account/region, and a logger.
type session struct {
	client *cfn.Client
	cache  *cache.Cache
	logger *slog.Logger
}

func newSession(ctx context.Context, opts *rootOptions) (*session, error) {
	if err := validateRootOptions(opts); err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, opts.verbose)

	client, err := cfn.NewClient(ctx, opts.profile, opts.region)
	if err != nil {
		return nil, err
	}

	dir := opts.cacheDir
	if dir == "" {
		dir = defaultCacheDir()
	}
	// Scope the cache by account and region so switching credentials can
	// never serve another account's topology.
	c := cache.New(filepath.Join(dir, string(client.Account), client.Region))
	c.Disabled = opts.noCache
	c.Refresh = opts.refresh

	return &session{client: client, cache: c, logger: logger}, nil
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ".cfn-depgraph-cache"
	}
	return filepath.Join(base, "cfn-depgraph")
}
