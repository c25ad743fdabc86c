package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"recovar/internal/callgraph"
	"recovar/internal/output"
	recrender "recovar/internal/render"
)

func newGraphCmd(a *app) *cobra.Command {
	var inPath, outDir, viewName string
	var internalOnly, cfg, summary bool
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the corpus call graph as DOT",
		Long: `Build a call graph from the call expressions in each function's AST and
write callgraph.dot and reachable.dot. --cfg also writes cfg.dot holding
every function's statement graph, plus one graph per function under cfg/.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag("in", inPath); err != nil {
				return err
			}
			if err := requireFlag("out", outDir); err != nil {
				return err
			}
			view, err := callgraph.ParseView(viewName)
			if err != nil {
				return err
			}
			c, err := a.load(cmd.Context(), inPath, a.cfg.Options())
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("mkdir %s: %w", outDir, err)
			}

			cg := callgraph.BuildCallGraph(c.Functions, view)
			if internalOnly {
				cg = callgraph.Internal(cg)
			}
			title := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
			if err := output.WriteDOT(outDir, "callgraph", render.DOT(cg, title)); err != nil {
				return err
			}
			a.log.Info().Int("nodes", len(cg.Nodes)).Int("edges", len(cg.Edges)).Msg("wrote callgraph.dot")

			eps := recrender.FindEntryPoints(cg)
			reachable := recrender.ReachableSet(eps, cg)
			if err := output.WriteDOT(outDir, "reachable", recrender.ReachabilityDOT(cg, reachable, eps, title, recrender.NASA)); err != nil {
				return err
			}
			a.log.Info().Int("entry_points", len(eps)).Int("reachable", len(reachable)).Msg("wrote reachable.dot")

			if !cfg && !summary {
				return nil
			}
			if cfg && !summary {
				all := callgraph.BuildCFG(c.Functions, view)
				if err := output.WriteDOT(outDir, "cfg", render.DOTCFG(all, title)); err != nil {
					return err
				}
				a.log.Info().Int("functions", len(all.Funcs)).Msg("wrote cfg.dot")
			}
			written := 0
			for _, cf := range c.Functions {
				f := view.Pick(cf)
				var lcfg *lattice.FuncCFG
				if summary {
					lcfg = callgraph.BuildSummaryCFG(f)
				} else {
					lcfg, _ = callgraph.BuildFuncCFG(f)
				}
				if len(lcfg.Blocks) == 0 {
					continue
				}
				g := &lattice.CFGGraph{Funcs: []*lattice.FuncCFG{lcfg}}
				name := filepath.Join("cfg", fmt.Sprintf("%x_%s", cf.EA, safeName(f.Name())))
				if err := output.WriteDOT(outDir, name, render.DOTCFG(g, callgraph.Label(cf, view))); err != nil {
					return err
				}
				written++
			}
			a.log.Info().Int("functions", written).Msg("wrote per-function graphs")
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "corpus file")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory")
	cmd.Flags().StringVar(&viewName, "view", "debug", "view to graph (debug or decompiler)")
	cmd.Flags().BoolVar(&internalOnly, "internal", false, "drop edges to functions outside the corpus")
	cmd.Flags().BoolVar(&cfg, "cfg", false, "write per-function statement graphs")
	cmd.Flags().BoolVar(&summary, "summary", false, "write per-function callee summaries instead of statement graphs")
	return cmd
}

// safeName keeps a function name usable as a file name.
func safeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() > 80 {
		return b.String()[:80]
	}
	return b.String()
}
