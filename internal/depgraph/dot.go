package depgraph

import (
	"fmt"
	"io"
	"strings"
)

// WriteDOT renders the view as a Graphviz digraph for users who prefer
// feeding dot directly instead of the module-graph renderer.
func (v View) WriteDOT(w io.Writer, title string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", v.Name)
	b.WriteString("  rankdir = LR;\n")
	if title != "" {
		fmt.Fprintf(&b, "  label = %q;\n", title)
		b.WriteString("  labelloc = t;\n")
	}
	b.WriteString("  node [shape=box, style=rounded];\n\n")

	for _, n := range v.Nodes {
		fmt.Fprintf(&b, "  %q;\n", string(n))
	}
	b.WriteString("\n")
	for _, e := range v.Edges {
		fmt.Fprintf(&b, "  %q -> %q;\n", string(e.From), string(e.To))
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
