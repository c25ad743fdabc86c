package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zboralski/lattice"

	"recovar/internal/corpus"
	"recovar/internal/types"
)

func sampleGraph() *lattice.Graph {
	return &lattice.Graph{
		Nodes: []string{"main", "init", "run", "log", "orphan", "sub_5000"},
		Edges: []lattice.Edge{
			{Caller: "main", Callee: "init"},
			{Caller: "main", Callee: "run"},
			{Caller: "init", Callee: "log"},
			{Caller: "run", Callee: "log"},
			{Caller: "run", Callee: "printf"},
			{Caller: "orphan", Callee: "orphan"},
		},
	}
}

func TestComputeStats(t *testing.T) {
	s := ComputeStats(sampleGraph())
	if s.TotalFunctions != 6 || s.TotalEdges != 6 {
		t.Errorf("totals = %d/%d", s.TotalFunctions, s.TotalEdges)
	}
	if s.InternalEdges != 5 || s.ExternalEdges != 1 {
		t.Errorf("internal/external = %d/%d", s.InternalEdges, s.ExternalEdges)
	}
	if len(s.TopCallees) == 0 || s.TopCallees[0] != (NameCount{"log", 2}) {
		t.Errorf("top callee = %+v", s.TopCallees)
	}
	// Ties break by name.
	if s.TopCallers[0] != (NameCount{"main", 2}) || s.TopCallers[1] != (NameCount{"run", 2}) {
		t.Errorf("top callers = %+v", s.TopCallers)
	}
}

func TestEntryPointsAndReachability(t *testing.T) {
	g := sampleGraph()
	eps := FindEntryPoints(g)
	// Self-recursion does not make a function called; sub_* is skipped.
	if strings.Join(eps, ",") != "main,orphan" {
		t.Fatalf("entry points = %v", eps)
	}

	r := ReachableSet([]string{"main"}, g)
	for _, n := range []string{"main", "init", "run", "log"} {
		if !r[n] {
			t.Errorf("%s not reachable", n)
		}
	}
	if r["printf"] || r["orphan"] {
		t.Errorf("unexpected reachable set %v", r)
	}

	dot := ReachabilityDOT(g, r, eps, "demo <corpus>", NASA)
	if !strings.HasPrefix(dot, "digraph reachable {") {
		t.Errorf("dot header: %q", dot[:30])
	}
	if !strings.Contains(dot, "n_main -> n_init;") {
		t.Error("missing main -> init edge")
	}
	if strings.Contains(dot, "printf") {
		t.Error("external callee rendered")
	}
	if !strings.Contains(dot, "demo &lt;corpus&gt;") {
		t.Error("title not escaped")
	}
	if again := ReachabilityDOT(g, r, eps, "demo <corpus>", NASA); again != dot {
		t.Error("output not deterministic")
	}
}

func TestDotID(t *testing.T) {
	if got := dotID("operator new"); got != "n_operator_0020new" {
		t.Errorf("dotID = %q", got)
	}
	if got := truncLabel(strings.Repeat("x", 10), 6); got != "xxx..." {
		t.Errorf("truncLabel = %q", got)
	}
}

func TestWriteIndexHTML(t *testing.T) {
	lib := types.NewLib(nil)
	if _, err := lib.Add(types.Scalar{Name: "int", ByteSize: 4}); err != nil {
		t.Fatal(err)
	}
	stats := &corpus.Stats{
		Functions:         2,
		WithUserNames:     1,
		Locations:         3,
		StackLocations:    1,
		RegisterLocations: 2,
		UnknownRegisters:  map[string]int{"zz<9>": 1},
		Types:             lib,
	}
	g := sampleGraph()
	eps := FindEntryPoints(g)

	var buf bytes.Buffer
	WriteIndexHTML(&buf, Report{
		Title:       "corpus & co",
		Stats:       stats,
		Graph:       ComputeStats(g),
		EntryPoints: eps,
		Reachable:   len(ReachableSet(eps, g)),
		HasCallDOT:  true,
	})
	out := buf.String()
	for _, want := range []string{
		"<title>corpus &amp; co</title>",
		"<td>Functions</td><td class=\"num\">2</td>",
		"zz&lt;9&gt;",
		"Entry Points",
		"callgraph.dot",
		"</body></html>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
}
