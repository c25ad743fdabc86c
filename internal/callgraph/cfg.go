package callgraph

import (
	"fmt"
	"strings"

	"github.com/zboralski/lattice"

	"recovar/internal/ast"
	"recovar/internal/function"
)

// BuildCFG constructs a lattice.CFGGraph with one FuncCFG per function.
// Functions without an AST have no blocks and are left out.
func BuildCFG(fns []*function.CollectedFunction, view View) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, cf := range fns {
		lcfg, n := BuildFuncCFG(view.Pick(cf))
		if n == 0 {
			continue
		}
		cg.Funcs = append(cg.Funcs, lcfg)
	}
	return cg
}

// BuildFuncCFG maps a function's AST to a straight-line lattice.FuncCFG.
// Each top-level statement of the root becomes a block whose calls are the
// call expressions beneath it, in visit order; blocks fall through to the
// next and the last one is terminal. A root with no children is one block.
// Returns the FuncCFG and the number of blocks.
func BuildFuncCFG(f *function.Function) (*lattice.FuncCFG, int) {
	lcfg := &lattice.FuncCFG{Name: f.Name()}
	a := f.AST()
	if a == nil || a.Root == nil {
		return lcfg, 0
	}

	stmts := a.Root.Children
	if len(stmts) == 0 {
		stmts = []*ast.Node{a.Root}
	}
	offset := 0
	for i, stmt := range stmts {
		lb := &lattice.BasicBlock{
			ID:    i,
			Start: offset,
			Term:  i == len(stmts)-1,
		}
		sub := &ast.AST{Root: stmt}
		for _, callee := range sub.Calls() {
			lb.Calls = append(lb.Calls, lattice.CallSite{Offset: offset, Callee: callee})
			offset++
		}
		if offset == lb.Start {
			offset++
		}
		lb.End = offset
		if !lb.Term {
			lb.Succs = append(lb.Succs, lattice.Successor{BlockID: i + 1})
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg, len(lcfg.Blocks)
}

// BuildSummaryCFG builds a single-block FuncCFG listing the distinct named
// callees of f, skipping decompiler placeholders.
func BuildSummaryCFG(f *function.Function) *lattice.FuncCFG {
	seen := make(map[string]bool)
	var calls []lattice.CallSite
	for _, callee := range f.AST().Calls() {
		if !isInterestingCallee(callee) || seen[callee] {
			continue
		}
		seen[callee] = true
		calls = append(calls, lattice.CallSite{Offset: len(calls), Callee: callee})
	}
	lcfg := &lattice.FuncCFG{Name: f.Name()}
	if len(calls) > 0 {
		lcfg.Blocks = append(lcfg.Blocks, &lattice.BasicBlock{
			ID:    0,
			Start: 0,
			End:   1,
			Term:  true,
			Calls: calls,
		})
	}
	return lcfg
}

// isInterestingCallee returns true if the callee name represents a real named
// function rather than a decompiler-generated placeholder.
func isInterestingCallee(name string) bool {
	switch {
	case name == "":
		return false
	case strings.HasPrefix(name, "sub_"), strings.HasPrefix(name, "nullsub_"), strings.HasPrefix(name, "j_"):
		return false
	case strings.HasPrefix(name, "0x"):
		return false
	}
	return true
}

// Label returns a DOT title for a function graph.
func Label(cf *function.CollectedFunction, view View) string {
	return fmt.Sprintf("%s @ 0x%x (%s)", view.Pick(cf).Name(), cf.EA, view)
}
