package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"recovar/internal/callgraph"
	"recovar/internal/corpus"
	"recovar/internal/output"
	"recovar/internal/render"
	"recovar/internal/types"
)

func newStatsCmd(a *app) *cobra.Command {
	var inPath, outDir, typesBase string
	var topTypes int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise a corpus",
		Long: `Count functions, variables, locations and types in a corpus. --types-base
adds the frequencies from an earlier types.json, so a type library can be
accumulated over several corpora.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag("in", inPath); err != nil {
				return err
			}
			c, err := a.load(cmd.Context(), inPath, a.cfg.Options())
			if err != nil {
				return err
			}
			s, err := corpus.Collect(c, a.codec)
			if err != nil {
				return err
			}
			if typesBase != "" {
				if err := mergeTypes(s.Types, typesBase, a.codec); err != nil {
					return err
				}
			}
			printStats(cmd.OutOrStdout(), s, topTypes)

			if outDir == "" {
				return nil
			}
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("mkdir %s: %w", outDir, err)
			}
			if err := output.WriteStatsJSON(outDir, s); err != nil {
				return err
			}
			if err := output.WriteTypesJSON(outDir, s.Types); err != nil {
				return err
			}
			if err := output.WriteDiagsJSONL(outDir, c.Diags.Items()); err != nil {
				return err
			}
			if err := writeIndex(outDir, inPath, c, s); err != nil {
				return err
			}
			a.log.Info().Str("dir", outDir).Msg("wrote stats.json, types.json, diags.jsonl, index.html")
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "corpus file (.jsonl, .jsonl.gz, .jsonl.zst)")
	cmd.Flags().StringVar(&outDir, "out", "", "directory for stats.json, types.json, diags.jsonl and index.html")
	cmd.Flags().IntVar(&topTypes, "top-types", 5, "most frequent types to list per size")
	cmd.Flags().StringVar(&typesBase, "types-base", "", "types.json whose frequencies are added to this corpus's")
	return cmd
}

func mergeTypes(lib *types.Lib, path string, codec *types.Codec) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	base, err := types.DecodeLib(data, codec)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return lib.Merge(base)
}

// writeIndex renders the HTML summary, using the debug-view call graph.
func writeIndex(dir, inPath string, c *corpus.Corpus, s *corpus.Stats) error {
	g := callgraph.BuildCallGraph(c.Functions, callgraph.ViewDebug)
	eps := render.FindEntryPoints(g)
	f, err := os.Create(filepath.Join(dir, "index.html"))
	if err != nil {
		return fmt.Errorf("create index.html: %w", err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	render.WriteIndexHTML(bw, render.Report{
		Title:       filepath.Base(inPath),
		Stats:       s,
		Graph:       render.ComputeStats(g),
		EntryPoints: eps,
		Reachable:   len(render.ReachableSet(eps, g)),
		Diags:       c.Diags.Len(),
	})
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write index.html: %w", err)
	}
	return f.Close()
}

func printStats(w io.Writer, s *corpus.Stats, topTypes int) {
	pct := func(n, d int) float64 {
		if d == 0 {
			return 0
		}
		return 100 * float64(n) / float64(d)
	}
	fmt.Fprintf(w, "functions:            %s\n", humanize.Comma(int64(s.Functions)))
	fmt.Fprintf(w, "  with user names:    %s (%.1f%%)\n", humanize.Comma(int64(s.WithUserNames)), pct(s.WithUserNames, s.Functions))
	fmt.Fprintf(w, "variables (debug):    %s\n", humanize.Comma(int64(s.DebugVariables)))
	fmt.Fprintf(w, "variables (decomp):   %s\n", humanize.Comma(int64(s.DecompVariables)))
	fmt.Fprintf(w, "  user-named:         %s\n", humanize.Comma(int64(s.UserVariables)))
	fmt.Fprintf(w, "locations:            %s (stack %s, register %s)\n",
		humanize.Comma(int64(s.Locations)), humanize.Comma(int64(s.StackLocations)), humanize.Comma(int64(s.RegisterLocations)))
	fmt.Fprintf(w, "ast nodes:            %s\n", humanize.Comma(int64(s.ASTNodes)))
	fmt.Fprintf(w, "distinct types:       %s\n", humanize.Comma(int64(s.Types.Len())))
	for _, size := range s.Types.Sizes() {
		entries := s.Types.Entries(size)
		fmt.Fprintf(w, "  size %-6d %d types\n", size, len(entries))
		for i, e := range entries {
			if i >= topTypes {
				break
			}
			fmt.Fprintf(w, "    %8s  %s\n", humanize.Comma(int64(e.Frequency)), e.Type)
		}
	}
	if len(s.UnknownRegisters) > 0 {
		fmt.Fprintf(w, "unknown registers:\n")
		for _, name := range s.UnknownRegisterNames() {
			fmt.Fprintf(w, "  %-10s %s\n", name, humanize.Comma(int64(s.UnknownRegisters[name])))
		}
	}
}
