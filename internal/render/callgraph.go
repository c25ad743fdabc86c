package render

import (
	"sort"

	"github.com/zboralski/lattice"
)

// CallgraphStats summarises a call graph.
type CallgraphStats struct {
	TotalFunctions int
	TotalEdges     int
	InternalEdges  int // callee is a graph node
	ExternalEdges  int
	TopCallers     []NameCount // sorted desc
	TopCallees     []NameCount // sorted desc
}

// NameCount pairs a name with a count.
type NameCount struct {
	Name  string
	Count int
}

// ComputeStats computes call graph statistics.
func ComputeStats(g *lattice.Graph) CallgraphStats {
	stats := CallgraphStats{
		TotalFunctions: len(g.Nodes),
		TotalEdges:     len(g.Edges),
	}
	known := nodeSet(g)

	callerCount := make(map[string]int)
	calleeCount := make(map[string]int)
	for _, e := range g.Edges {
		callerCount[e.Caller]++
		calleeCount[e.Callee]++
		if known[e.Callee] {
			stats.InternalEdges++
		} else {
			stats.ExternalEdges++
		}
	}

	stats.TopCallers = topNMap(callerCount, 20)
	stats.TopCallees = topNMap(calleeCount, 20)
	return stats
}

func nodeSet(g *lattice.Graph) map[string]bool {
	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n] = true
	}
	return known
}

// topNMap returns the top N entries from a map, sorted by count descending
// then name.
func topNMap(m map[string]int, n int) []NameCount {
	entries := make([]NameCount, 0, len(m))
	for name, count := range m {
		entries = append(entries, NameCount{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
