package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zboralski/lattice"
)

// FindEntryPoints returns graph nodes no other node calls.
// Decompiler placeholders (sub_*) are excluded.
func FindEntryPoints(g *lattice.Graph) []string {
	called := make(map[string]bool)
	for _, e := range g.Edges {
		if e.Caller != e.Callee {
			called[e.Callee] = true
		}
	}

	var entries []string
	for _, n := range g.Nodes {
		if strings.HasPrefix(n, "sub_") {
			continue
		}
		if !called[n] {
			entries = append(entries, n)
		}
	}
	sort.Strings(entries)
	return entries
}

// ReachableSet performs BFS from entry points following edges between
// graph nodes and returns the set of all reachable function names.
func ReachableSet(entryPoints []string, g *lattice.Graph) map[string]bool {
	known := nodeSet(g)
	adj := make(map[string][]string)
	for _, e := range g.Edges {
		if known[e.Callee] {
			adj[e.Caller] = append(adj[e.Caller], e.Callee)
		}
	}

	reachable := make(map[string]bool)
	queue := make([]string, 0, len(entryPoints))
	for _, ep := range entryPoints {
		if !reachable[ep] {
			reachable[ep] = true
			queue = append(queue, ep)
		}
	}

	for len(queue) > 0 {
		fn := queue[0]
		queue = queue[1:]
		for _, target := range adj[fn] {
			if !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}
	return reachable
}

// ReachabilityDOT renders the call graph restricted to the reachable set.
// Entry points are highlighted.
func ReachabilityDOT(g *lattice.Graph, reachable map[string]bool, entryPoints []string, title string, t Theme) string {
	entrySet := make(map[string]bool, len(entryPoints))
	for _, ep := range entryPoints {
		entrySet[ep] = true
	}

	type edgeKey struct{ from, to string }
	edgeCount := make(map[edgeKey]int)
	for _, e := range g.Edges {
		if reachable[e.Caller] && reachable[e.Callee] {
			edgeCount[edgeKey{e.Caller, e.Callee}]++
		}
	}
	keys := make([]edgeKey, 0, len(edgeCount))
	for k := range edgeCount {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		return keys[i].to < keys[j].to
	})

	names := make([]string, 0, len(reachable))
	for name := range reachable {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("digraph reachable {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.4;\n")
	b.WriteString("  ranksep=0.6;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=9, fontcolor=%q, height=0.3, margin=\"0.12,0.06\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee, color=%q];\n", t.EdgeInternal)
	if title != "" {
		fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	for _, name := range names {
		id := dotID(name)
		label := truncLabel(name, 50)
		if entrySet[name] {
			fmt.Fprintf(&b, "  %s [label=%q, penwidth=1.5, color=%q];\n", id, label, t.EntryBorder)
		} else {
			fmt.Fprintf(&b, "  %s [label=%q];\n", id, label)
		}
	}
	b.WriteByte('\n')

	for _, k := range keys {
		fmt.Fprintf(&b, "  %s -> %s;\n", dotID(k.from), dotID(k.to))
	}

	b.WriteString("}\n")
	return b.String()
}
