package callgraph

import (
	"strings"
	"testing"

	"github.com/zboralski/lattice/render"

	"recovar/internal/ast"
	"recovar/internal/function"
	"recovar/internal/types"
)

func call(name string) *ast.Node {
	return &ast.Node{Kind: ast.KindCall, Children: []*ast.Node{{Kind: "obj", Name: name}}}
}

func fn(t *testing.T, name string, root *ast.Node) *function.Function {
	t.Helper()
	var a *ast.AST
	if root != nil {
		a = &ast.AST{Root: root}
	}
	f, err := function.New(function.Params{Name: name, ReturnType: types.Void{}, AST: a})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func collected(t *testing.T, ea uint64, debug, decomp *function.Function) *function.CollectedFunction {
	t.Helper()
	cf, err := function.NewCollected(ea, debug, decomp)
	if err != nil {
		t.Fatal(err)
	}
	return cf
}

func TestBuildFuncCFG(t *testing.T) {
	// {
	//   init();
	//   if (x) { log(); free(); }
	//   return;
	// }
	root := &ast.Node{Kind: "block", Children: []*ast.Node{
		{Kind: "expr", Children: []*ast.Node{call("init")}},
		{Kind: "if", Children: []*ast.Node{
			{Kind: "var", Name: "x"},
			{Kind: "block", Children: []*ast.Node{call("log"), call("free")}},
		}},
		{Kind: "return"},
	}}
	lcfg, n := BuildFuncCFG(fn(t, "handler", root))

	if n != 3 || len(lcfg.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", n)
	}
	if lcfg.Name != "handler" {
		t.Errorf("func name = %q", lcfg.Name)
	}

	b0 := lcfg.Blocks[0]
	if len(b0.Calls) != 1 || b0.Calls[0].Callee != "init" {
		t.Errorf("B0 calls = %+v", b0.Calls)
	}
	if len(b0.Succs) != 1 || b0.Succs[0].BlockID != 1 || b0.Term {
		t.Errorf("B0 succs = %+v term=%v", b0.Succs, b0.Term)
	}

	b1 := lcfg.Blocks[1]
	if len(b1.Calls) != 2 || b1.Calls[0].Callee != "log" || b1.Calls[1].Callee != "free" {
		t.Errorf("B1 calls = %+v", b1.Calls)
	}
	if b1.Start != b0.End {
		t.Errorf("B1 start %d, B0 end %d", b1.Start, b0.End)
	}

	b2 := lcfg.Blocks[2]
	if len(b2.Calls) != 0 || !b2.Term || len(b2.Succs) != 0 {
		t.Errorf("B2 = %+v", b2)
	}
	if b2.End <= b2.Start {
		t.Errorf("B2 empty range [%d,%d)", b2.Start, b2.End)
	}

	g := BuildCFG([]*function.CollectedFunction{
		collected(t, 0x1000, fn(t, "handler", root), fn(t, "sub_1000", root)),
		collected(t, 0x2000, fn(t, "noast", nil), fn(t, "sub_2000", nil)),
	}, ViewDebug)
	if len(g.Funcs) != 1 || g.Funcs[0].Name != "handler" {
		t.Fatalf("BuildCFG funcs = %+v", g.Funcs)
	}
	dot := render.DOTCFG(g, "handler")
	if dot == "" {
		t.Error("expected non-empty DOT output")
	}
}

func TestBuildFuncCFGEdgeCases(t *testing.T) {
	lcfg, n := BuildFuncCFG(fn(t, "noast", nil))
	if n != 0 || len(lcfg.Blocks) != 0 {
		t.Errorf("no AST: %d blocks", n)
	}

	lcfg, n = BuildFuncCFG(fn(t, "empty", &ast.Node{Kind: "block"}))
	if n != 1 {
		t.Fatalf("empty: %d blocks", n)
	}
	if b := lcfg.Blocks[0]; !b.Term || len(b.Calls) != 0 || b.End != 1 {
		t.Errorf("empty block = %+v", b)
	}

	lcfg, n = BuildFuncCFG(fn(t, "tail", &ast.Node{Kind: "return", Children: []*ast.Node{call("abort")}}))
	if n != 1 {
		t.Fatalf("tail: %d blocks", n)
	}
	if b := lcfg.Blocks[0]; !b.Term || len(b.Calls) != 1 || b.Calls[0].Callee != "abort" {
		t.Errorf("tail block = %+v", b)
	}
}

func TestBuildSummaryCFG(t *testing.T) {
	root := &ast.Node{Kind: "block", Children: []*ast.Node{
		call("memcpy"), call("sub_401000"), call("memcpy"), call("0x4010"), call("strlen"), call("nullsub_1"),
	}}
	lcfg := BuildSummaryCFG(fn(t, "copy", root))
	if len(lcfg.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(lcfg.Blocks))
	}
	var got []string
	for _, c := range lcfg.Blocks[0].Calls {
		got = append(got, c.Callee)
	}
	if strings.Join(got, ",") != "memcpy,strlen" {
		t.Errorf("calls = %v", got)
	}

	if empty := BuildSummaryCFG(fn(t, "quiet", &ast.Node{Kind: "block"})); len(empty.Blocks) != 0 {
		t.Errorf("expected no blocks, got %d", len(empty.Blocks))
	}
}

func TestBuildCallGraph(t *testing.T) {
	fns := []*function.CollectedFunction{
		collected(t, 0x1000,
			fn(t, "main", &ast.Node{Kind: "block", Children: []*ast.Node{call("init"), call("run"), call("run")}}),
			fn(t, "sub_1000", &ast.Node{Kind: "block", Children: []*ast.Node{call("sub_2000")}})),
		collected(t, 0x2000,
			fn(t, "init", &ast.Node{Kind: "block", Children: []*ast.Node{call("log")}}),
			fn(t, "sub_2000", nil)),
		collected(t, 0x3000,
			fn(t, "run", &ast.Node{Kind: "block", Children: []*ast.Node{call("log"), call("printf")}}),
			fn(t, "sub_3000", nil)),
		collected(t, 0x4000, fn(t, "log", nil), fn(t, "sub_4000", nil)),
	}

	cg := BuildCallGraph(fns, ViewDebug)
	if len(cg.Nodes) != 4 {
		t.Errorf("expected 4 nodes, got %d", len(cg.Nodes))
	}
	edges := make(map[string]int)
	for _, e := range cg.Edges {
		edges[e.Caller+"->"+e.Callee]++
	}
	for _, want := range []string{"main->init", "main->run", "init->log", "run->log", "run->printf"} {
		if edges[want] != 1 {
			t.Errorf("edge %s count = %d", want, edges[want])
		}
	}

	in := Internal(cg)
	for _, e := range in.Edges {
		if e.Callee == "printf" {
			t.Error("external edge kept by Internal")
		}
	}
	if len(in.Edges) != 4 {
		t.Errorf("internal edges = %d", len(in.Edges))
	}

	dc := BuildCallGraph(fns, ViewDecompiler)
	if dc.Nodes[0] != "sub_1000" || len(dc.Edges) != 1 || dc.Edges[0].Callee != "sub_2000" {
		t.Errorf("decompiler graph = %+v", dc)
	}

	dot := render.DOT(cg, "call graph")
	if dot == "" {
		t.Error("expected non-empty DOT output")
	}
}

func TestParseView(t *testing.T) {
	for in, want := range map[string]View{"debug": ViewDebug, "decompiler": ViewDecompiler, "c": ViewDecompiler} {
		got, err := ParseView(in)
		if err != nil || got != want {
			t.Errorf("ParseView(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseView("hexrays"); err == nil {
		t.Error("expected error")
	}
}
