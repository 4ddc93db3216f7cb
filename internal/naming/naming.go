package naming

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stackatlas/cfn-depgraph/internal/cfn"
	"github.com/stackatlas/cfn-depgraph/internal/common"
)

// Convention describes how stack names and tags encode the
// environment/app/component hierarchy. Stack names are expected to look like
// `<env><sep><app><sep><component>`; tags, when present, win over name
// parsing.
type Convention struct {
	Separator string `yaml:"separator"`
	EnvTag    string `yaml:"envTag"`
	AppTag    string `yaml:"appTag"`
}

func DefaultConvention() Convention {
	return Convention{
		Separator: "-",
		EnvTag:    "environment",
		AppTag:    "app",
	}
}

// LoadConvention reads a YAML convention file, merging it over the defaults.
// A missing file is not an error; the defaults apply.
func LoadConvention(path string) (Convention, error) {
	conv := DefaultConvention()
	if path == "" {
		return conv, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return conv, nil
		}
		return conv, err
	}
	if err := yaml.Unmarshal(data, &conv); err != nil {
		return conv, fmt.Errorf("parsing %s: %w", path, err)
	}
	if conv.Separator == "" {
		conv.Separator = DefaultConvention().Separator
	}
	return conv, nil
}

// Identity is where a stack sits in the env/app/component hierarchy.
type Identity struct {
	Env       common.Environment
	App       common.AppName
	Component string
}

// Identify derives a stack's identity from its name and tags.
func (c Convention) Identify(s cfn.Stack) Identity {
	var id Identity
	parts := strings.SplitN(string(s.Name), c.Separator, 3)
	switch len(parts) {
	case 3:
		id.Env = common.Environment(parts[0])
		id.App = common.AppName(parts[1])
		id.Component = parts[2]
	case 2:
		id.Env = common.Environment(parts[0])
		id.App = common.AppName(parts[1])
	default:
		id.App = common.AppName(parts[0])
	}
	if v, ok := s.Tag(c.EnvTag); ok && v != "" {
		id.Env = common.Environment(v)
	}
	if v, ok := s.Tag(c.AppTag); ok && v != "" {
		id.App = common.AppName(v)
	}
	return id
}

// StackNode is the fine-grained graph node id for the stack.
func (id Identity) StackNode() common.NodeID {
	if id.Component == "" {
		return common.NodeID(id.App)
	}
	return common.NodeID(fmt.Sprintf("%s/%s", id.App, id.Component))
}

// AppNode is the coarse-grained graph node id for the stack.
func (id Identity) AppNode() common.NodeID {
	return common.NodeID(id.App)
}

// Filter decides which stacks are interesting enough to appear in the graph.
// Zero-valued fields match everything.
type Filter struct {
	Env     common.Environment
	Apps    []common.AppName
	Kinds   []string
	Exclude []*regexp.Regexp
}

// CompileExcludes turns user-supplied patterns into a usable exclusion list.
func CompileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	excludes := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		excludes = append(excludes, re)
	}
	return excludes, nil
}

// Interesting reports whether a stack belongs in the graph given its
// identity. Deleted stacks never do.
func (f Filter) Interesting(s cfn.Stack, id Identity) bool {
	if s.Deleted() {
		return false
	}
	for _, re := range f.Exclude {
		if re.MatchString(string(s.Name)) {
			return false
		}
	}
	if f.Env != "" && id.Env != f.Env {
		return false
	}
	if len(f.Apps) > 0 && !containsApp(f.Apps, id.App) {
		return false
	}
	if len(f.Kinds) > 0 && !matchesKind(f.Kinds, id.Component) {
		return false
	}
	return true
}

func containsApp(apps []common.AppName, app common.AppName) bool {
	for _, a := range apps {
		if a == app {
			return true
		}
	}
	return false
}

// matchesKind reports whether the stack component names one of the wanted
// resource kinds, either exactly or as its leading segment
// (kind "db" matches components "db" and "db-replica", not "dbx").
func matchesKind(kinds []string, component string) bool {
	for _, k := range kinds {
		if component == k || strings.HasPrefix(component, k+"-") {
			return true
		}
	}
	return false
}
