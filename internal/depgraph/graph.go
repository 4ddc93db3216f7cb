package depgraph

import (
	"sort"

	"github.com/stackatlas/cfn-depgraph/internal/cfn"
	"github.com/stackatlas/cfn-depgraph/internal/common"
	"github.com/stackatlas/cfn-depgraph/internal/naming"
)

// Edge is a dependency: From imports a value that To exports.
type Edge struct {
	From common.NodeID
	To   common.NodeID
}

// View is the dependency relation at one granularity. Nodes and Edges are
// sorted and de-duplicated; self-edges never appear.
type View struct {
	Name  string
	Nodes []common.NodeID
	Edges []Edge
}

// Graph holds the two granularities of the same dependency relation.
type Graph struct {
	Stacks View
	Apps   View
}

type viewBuilder struct {
	name  string
	nodes map[common.NodeID]struct{}
	edges map[Edge]struct{}
}

func newViewBuilder(name string) *viewBuilder {
	return &viewBuilder{
		name:  name,
		nodes: map[common.NodeID]struct{}{},
		edges: map[Edge]struct{}{},
	}
}

func (b *viewBuilder) addNode(n common.NodeID) {
	b.nodes[n] = struct{}{}
}

// addEdge records a dependency, dropping self-references. At the app
// granularity two different stacks of one app collapse onto the same node,
// so their edge must vanish rather than become a loop.
func (b *viewBuilder) addEdge(from, to common.NodeID) {
	if from == to {
		return
	}
	b.edges[Edge{From: from, To: to}] = struct{}{}
}

func (b *viewBuilder) view() View {
	v := View{Name: b.name}
	for n := range b.nodes {
		v.Nodes = append(v.Nodes, n)
	}
	sort.Slice(v.Nodes, func(i, j int) bool { return v.Nodes[i] < v.Nodes[j] })
	for e := range b.edges {
		v.Edges = append(v.Edges, e)
	}
	sort.Slice(v.Edges, func(i, j int) bool {
		if v.Edges[i].From != v.Edges[j].From {
			return v.Edges[i].From < v.Edges[j].From
		}
		return v.Edges[i].To < v.Edges[j].To
	})
	return v
}

// Build turns the fetched topology into the two-granularity dependency
// graph. Only interesting stacks become nodes, and an edge exists only when
// both of its endpoints are interesting.
func Build(stacks []cfn.Stack, exports []cfn.Export, conv naming.Convention, filter naming.Filter) Graph {
	byID := map[string]naming.Identity{}
	byName := map[common.StackName]naming.Identity{}

	stackView := newViewBuilder("stacks")
	appView := newViewBuilder("apps")

	for _, s := range stacks {
		id := conv.Identify(s)
		if !filter.Interesting(s, id) {
			continue
		}
		byID[s.ID] = id
		byName[s.Name] = id
		stackView.addNode(id.StackNode())
		appView.addNode(id.AppNode())
	}

	for _, e := range exports {
		exporter, ok := byID[e.ExportingStackID]
		if !ok {
			continue
		}
		for _, importerName := range e.Importers {
			importer, ok := byName[importerName]
			if !ok {
				continue
			}
			stackView.addEdge(importer.StackNode(), exporter.StackNode())
			appView.addEdge(importer.AppNode(), exporter.AppNode())
		}
	}

	return Graph{
		Stacks: stackView.view(),
		Apps:   appView.view(),
	}
}

// MultiApp reports whether the coarse-grained view is worth emitting: a
// single-app graph collapses to one node and says nothing.
func (g Graph) MultiApp() bool {
	return len(g.Apps.Nodes) > 1
}
