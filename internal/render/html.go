package render

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"recovar/internal/corpus"
)

// Report is the input to WriteIndexHTML.
type Report struct {
	Title       string
	Stats       *corpus.Stats
	Graph       CallgraphStats
	EntryPoints []string
	Reachable   int
	Diags       int
	HasCallDOT  bool
}

// WriteIndexHTML writes a small HTML page summarizing a corpus.
func WriteIndexHTML(w io.Writer, r Report) {
	s := r.Stats
	t := NASA

	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; font-size: 14px; color: %s; background: %s; margin: 2em; max-width: 900px; }
h1 { font-size: 18px; font-weight: 600; margin-bottom: 0.5em; }
h2 { font-size: 14px; font-weight: 600; margin-top: 1.5em; border-bottom: 1px solid #ddd; padding-bottom: 4px; }
table { border-collapse: collapse; margin: 0.5em 0; }
th, td { text-align: left; padding: 3px 12px 3px 0; font-size: 13px; }
th { font-weight: 600; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
a { color: %s; }
.bar { height: 8px; border-radius: 2px; display: inline-block; vertical-align: middle; }
.ep { font-family: "Courier New", monospace; font-size: 12px; }
</style>
</head>
<body>
`, htmlEscape(r.Title), t.TextColor, t.Background, t.EntryBorder)

	fmt.Fprintf(w, "<h1>%s</h1>\n", htmlEscape(r.Title))

	fmt.Fprintln(w, "<h2>Summary</h2>")
	fmt.Fprintln(w, "<table>")
	row := func(label string, n int) {
		fmt.Fprintf(w, "<tr><td>%s</td><td class=\"num\">%s</td></tr>\n", label, humanize.Comma(int64(n)))
	}
	row("Functions", s.Functions)
	row("With user names", s.WithUserNames)
	row("Debug variables", s.DebugVariables)
	row("Decompiler variables", s.DecompVariables)
	row("User-named variables", s.UserVariables)
	row("AST nodes", s.ASTNodes)
	row("Distinct types", s.Types.Len())
	row("Diagnostics", r.Diags)
	fmt.Fprintln(w, "</table>")

	fmt.Fprintln(w, "<h2>Locations</h2>")
	fmt.Fprintln(w, "<table>")
	bar := func(label string, n, total int, color string) {
		barW := 0
		if total > 0 {
			barW = n * 200 / total
			if barW < 2 && n > 0 {
				barW = 2
			}
		}
		fmt.Fprintf(w, "<tr><td>%s</td><td class=\"num\">%s</td><td><span class=\"bar\" style=\"width:%dpx;background:%s\"></span></td></tr>\n",
			label, humanize.Comma(int64(n)), barW, color)
	}
	bar("Stack", s.StackLocations, s.Locations, t.BarStack)
	bar("Register", s.RegisterLocations, s.Locations, t.BarRegister)
	fmt.Fprintln(w, "</table>")

	if len(s.UnknownRegisters) > 0 {
		fmt.Fprintln(w, "<h2>Unknown Registers</h2>")
		fmt.Fprintln(w, "<table>")
		for _, name := range s.UnknownRegisterNames() {
			fmt.Fprintf(w, "<tr><td class=\"ep\">%s</td><td class=\"num\">%d</td></tr>\n", htmlEscape(name), s.UnknownRegisters[name])
		}
		fmt.Fprintln(w, "</table>")
	}

	fmt.Fprintln(w, "<h2>Types by Size</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(w, "<tr><th>Size</th><th>Types</th><th>Most frequent</th></tr>")
	for _, size := range s.Types.Sizes() {
		entries := s.Types.Entries(size)
		top := ""
		if len(entries) > 0 {
			top = truncLabel(entries[0].Type.String(), 60)
		}
		fmt.Fprintf(w, "<tr><td class=\"num\">%d</td><td class=\"num\">%d</td><td class=\"ep\">%s</td></tr>\n",
			size, len(entries), htmlEscape(top))
	}
	fmt.Fprintln(w, "</table>")

	g := r.Graph
	fmt.Fprintln(w, "<h2>Call Graph</h2>")
	fmt.Fprintln(w, "<table>")
	row("Edges", g.TotalEdges)
	row("Internal edges", g.InternalEdges)
	row("External edges", g.ExternalEdges)
	row("Entry points", len(r.EntryPoints))
	row("Reachable functions", r.Reachable)
	fmt.Fprintln(w, "</table>")
	if r.HasCallDOT {
		fmt.Fprintln(w, `<p><a href="callgraph.dot">callgraph.dot</a> | <a href="reachable.dot">reachable.dot</a></p>`)
	}

	writeTop := func(heading, col string, items []NameCount, limit int) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(w, "<h2>%s</h2>\n", heading)
		fmt.Fprintln(w, "<table>")
		fmt.Fprintf(w, "<tr><th>Function</th><th>%s</th></tr>\n", col)
		if len(items) > limit {
			items = items[:limit]
		}
		for _, nc := range items {
			fmt.Fprintf(w, "<tr><td class=\"ep\">%s</td><td class=\"num\">%d</td></tr>\n", htmlEscape(nc.Name), nc.Count)
		}
		fmt.Fprintln(w, "</table>")
	}
	writeTop("Top Callers", "Outgoing", g.TopCallers, 15)
	writeTop("Top Callees", "Incoming", g.TopCallees, 15)

	if len(r.EntryPoints) > 0 {
		fmt.Fprintln(w, "<h2>Entry Points</h2>")
		fmt.Fprintln(w, "<table>")
		limit := 50
		if len(r.EntryPoints) < limit {
			limit = len(r.EntryPoints)
		}
		for _, ep := range r.EntryPoints[:limit] {
			fmt.Fprintf(w, "<tr><td class=\"ep\">%s</td></tr>\n", htmlEscape(ep))
		}
		if len(r.EntryPoints) > limit {
			fmt.Fprintf(w, "<tr><td>... and %d more</td></tr>\n", len(r.EntryPoints)-limit)
		}
		fmt.Fprintln(w, "</table>")
	}

	fmt.Fprintln(w, "</body></html>")
}
