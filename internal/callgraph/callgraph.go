// Package callgraph builds lattice call graphs and per-function statement
// graphs from the ASTs of collected functions.
package callgraph

import (
	"fmt"

	"github.com/zboralski/lattice"

	"recovar/internal/function"
)

// View selects which side of a collected function to graph.
type View int

const (
	ViewDebug View = iota
	ViewDecompiler
)

func (v View) String() string {
	switch v {
	case ViewDebug:
		return "debug"
	case ViewDecompiler:
		return "decompiler"
	}
	return fmt.Sprintf("View(%d)", int(v))
}

// ParseView accepts "debug" or "decompiler".
func ParseView(s string) (View, error) {
	switch s {
	case "debug", "b":
		return ViewDebug, nil
	case "decompiler", "decomp", "c":
		return ViewDecompiler, nil
	}
	return 0, fmt.Errorf("callgraph: unknown view %q (want debug or decompiler)", s)
}

// Pick returns the selected view of cf.
func (v View) Pick(cf *function.CollectedFunction) *function.Function {
	if v == ViewDecompiler {
		return cf.Decompiler
	}
	return cf.Debug
}

// BuildCallGraph constructs a lattice.Graph from collected functions.
// Each function becomes a node named after the selected view. Each named
// call expression in its AST becomes an edge; callees outside the corpus
// are kept as edge targets but not added as nodes.
func BuildCallGraph(fns []*function.CollectedFunction, view View) *lattice.Graph {
	g := &lattice.Graph{}
	seen := make(map[string]bool, len(fns))
	for _, cf := range fns {
		f := view.Pick(cf)
		name := f.Name()
		if !seen[name] {
			seen[name] = true
			g.Nodes = append(g.Nodes, name)
		}
		for _, callee := range f.AST().Calls() {
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: name,
				Callee: callee,
			})
		}
	}
	g.Dedup()
	return g
}

// Internal returns a copy of g restricted to edges whose callee is a node.
func Internal(g *lattice.Graph) *lattice.Graph {
	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n] = true
	}
	out := &lattice.Graph{Nodes: append([]string(nil), g.Nodes...)}
	for _, e := range g.Edges {
		if known[e.Callee] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}
