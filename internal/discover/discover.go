package discover

import (
	"context"
	"log/slog"

	"github.com/stackatlas/cfn-depgraph/internal/cache"
	"github.com/stackatlas/cfn-depgraph/internal/cfn"
	"github.com/stackatlas/cfn-depgraph/internal/common"
)

// API is the slice of the CloudFormation wrapper the discoverer needs.
type API interface {
	DescribeStacks(ctx context.Context) ([]cfn.Stack, error)
	ListExports(ctx context.Context) ([]cfn.Export, error)
	ListImports(ctx context.Context, export common.ExportName) ([]common.StackName, error)
}

// Topology is everything the graph is built from.
type Topology struct {
	Account common.AccountID
	Region  string
	Stacks  []cfn.Stack
	Exports []cfn.Export
}

// Discoverer fetches the full export/import topology, memoizing every API
// call through the cache.
type Discoverer struct {
	API     API
	Cache   *cache.Cache
	Logger  *slog.Logger
	Account common.AccountID
	Region  string
}

// Topology fetches stacks, exports, and the importers of every export.
func (d *Discoverer) Topology(ctx context.Context) (*Topology, error) {
	topo := &Topology{Account: d.Account, Region: d.Region}

	err := d.Cache.Do(cache.Key("describe-stacks"), &topo.Stacks, func() (any, error) {
		return d.API.DescribeStacks(ctx)
	})
	if err != nil {
		return nil, err
	}
	d.Logger.Info("fetched stacks", "count", len(topo.Stacks))

	err = d.Cache.Do(cache.Key("list-exports"), &topo.Exports, func() (any, error) {
		return d.API.ListExports(ctx)
	})
	if err != nil {
		return nil, err
	}
	d.Logger.Info("fetched exports", "count", len(topo.Exports))

	for i := range topo.Exports {
		exp := &topo.Exports[i]
		key := cache.Key("list-imports", string(exp.Name))
		err := d.Cache.Do(key, &exp.Importers, func() (any, error) {
			return d.API.ListImports(ctx, exp.Name)
		})
		if err != nil {
			return nil, err
		}
		d.Logger.Debug("fetched importers", "export", exp.Name, "count", len(exp.Importers))
	}

	return topo, nil
}
