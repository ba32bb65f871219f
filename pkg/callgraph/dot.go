package callgraph

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/smith-xyz/apk-dataset-generator/pkg/engine"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

const driverNodeStyle = ` fontcolor=black, color=cornflowerblue fillcolor=cornflowerblue];`

// WriteDOT writes the graph in Graphviz DOT format. Nodes are declared in index
// order and each edge is written once as "caller -> callee ;".
func (f *Filter) WriteDOT(w io.Writer, g *ApplicationGraph) error {
	if g == nil {
		return engine.ErrNoCallGraph
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %s {\nnode [style=filled];\n", utils.SanitizeIdentifier(g.PackageName))

	for id, sig := range g.nodes {
		if f.config.IsEntryPointClass(sig.DeclaringType) {
			fmt.Fprintf(bw, "%d [label=\"%s\"%s\n", id, escapeLabel(driverLabel(g.PackageName, sig.ReturnType)), driverNodeStyle)
			continue
		}
		fmt.Fprintf(bw, "%d [label=\"%s\"];\n", id, escapeLabel(sig.ShortClassName()+"."+sig.Name))
	}

	for child, callers := range g.callers {
		for _, parent := range callers.AppendTo(nil) {
			fmt.Fprintf(bw, "%d -> %d ;\n", parent, child)
		}
	}

	bw.WriteString("}")
	return bw.Flush()
}

// Export writes the DOT rendering of g to path through store
func (f *Filter) Export(ctx context.Context, store utils.Store, g *ApplicationGraph, path string) error {
	var buf bytes.Buffer
	if err := f.WriteDOT(&buf, g); err != nil {
		return err
	}
	if err := store.WriteFile(ctx, path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to export call graph: %w", err)
	}
	f.logger.WithField("file", path).Info("Exported application call graph")
	return nil
}

// driverLabel names a synthetic driver node after the component type it drives
func driverLabel(packageName, componentType string) string {
	if packageName == "" {
		return componentType
	}
	return strings.ReplaceAll(componentType, packageName+".", "")
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
