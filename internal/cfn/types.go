package cfn

import (
	"strings"

	"github.com/stackatlas/cfn-depgraph/internal/common"
)

// Tag is a CloudFormation stack tag.
type Tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// Output is a stack output. ExportName is empty when the output is not
// exported.
type Output struct {
	Key        string `json:"Key"`
	Value      string `json:"Value"`
	ExportName string `json:"ExportName,omitempty"`
}

// Stack is the subset of a described CloudFormation stack that the graph
// cares about. The shape round-trips through JSON so fetched results can be
// memoized on disk.
type Stack struct {
	Name    common.StackName `json:"Name"`
	ID      string           `json:"Id"`
	Status  string           `json:"Status"`
	Tags    []Tag            `json:"Tags,omitempty"`
	Outputs []Output         `json:"Outputs,omitempty"`
}

// Tag returns the value of the named tag.
func (s Stack) Tag(key string) (string, bool) {
	for _, t := range s.Tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// Deleted reports whether the stack is gone or on its way out.
func (s Stack) Deleted() bool {
	return strings.HasPrefix(s.Status, "DELETE_")
}

// Export is a cross-stack export together with the stacks importing it.
type Export struct {
	Name             common.ExportName  `json:"Name"`
	ExportingStackID string             `json:"ExportingStackId"`
	Value            string             `json:"Value,omitempty"`
	Importers        []common.StackName `json:"Importers,omitempty"`
}

// StackResource is a single resource of a stack, as returned by
// ListStackResources.
type StackResource struct {
	LogicalID  string              `json:"LogicalId"`
	PhysicalID string              `json:"PhysicalId"`
	Type       common.ResourceType `json:"Type"`
	Status     string              `json:"Status"`
}
