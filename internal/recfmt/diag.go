// Package recfmt provides diagnostics and load options shared by corpus readers.
package recfmt

import (
	"fmt"
	"runtime"
	"sort"
)

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagMalformed       DiagKind = "malformed"
	DiagDuplicate       DiagKind = "duplicate"
	DiagNoUserNames     DiagKind = "no_user_names"
	DiagUnknownRegister DiagKind = "unknown_register"
	DiagTruncated       DiagKind = "truncated"
)

// Diag records a non-fatal issue found while reading a corpus.
// Line is 1-based; 0 means the issue is not tied to a record.
type Diag struct {
	Line int      `json:"line"`
	EA   uint64   `json:"ea,omitempty"`
	Kind DiagKind `json:"kind"`
	Msg  string   `json:"msg"`
}

func (d Diag) String() string {
	if d.EA != 0 {
		return fmt.Sprintf("[%s] line %d ea 0x%x: %s", d.Kind, d.Line, d.EA, d.Msg)
	}
	return fmt.Sprintf("[%s] line %d: %s", d.Kind, d.Line, d.Msg)
}

// Diags accumulates diagnostics.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(line int, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Line: line, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(line int, kind DiagKind, format string, args ...any) {
	d.items = append(d.items, Diag{Line: line, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// AddEA records a diagnostic about the function at ea.
func (d *Diags) AddEA(line int, ea uint64, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Line: line, EA: ea, Kind: kind, Msg: msg})
}

// Sort orders diagnostics by line, keeping insertion order within a line.
func (d *Diags) Sort() {
	sort.SliceStable(d.items, func(i, j int) bool { return d.items[i].Line < d.items[j].Line })
}

// Merge appends o's diagnostics.
func (d *Diags) Merge(o *Diags) {
	d.items = append(d.items, o.items...)
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }

// Count returns the number of diagnostics of the given kind.
func (d *Diags) Count(kind DiagKind) int {
	n := 0
	for _, it := range d.items {
		if it.Kind == kind {
			n++
		}
	}
	return n
}

// Mode controls error handling behavior.
type Mode int

const (
	ModeStrict     Mode = iota // first malformed record aborts the load
	ModeBestEffort             // skip malformed records, accumulate diags
)

func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeBestEffort:
		return "best-effort"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "strict" or "best-effort".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "strict":
		return ModeStrict, nil
	case "best-effort", "besteffort", "best_effort":
		return ModeBestEffort, nil
	}
	return 0, fmt.Errorf("recfmt: unknown mode %q (want strict or best-effort)", s)
}

// Options controls corpus loading across packages.
type Options struct {
	Mode          Mode
	Workers       int  // decode goroutines; 0 = GOMAXPROCS
	MaxRecords    int  // stop after this many records; 0 = unlimited
	LegacyRawCode bool // tolerate non-string raw code (see function.DecodeOptions)
}

func (o Options) EffectiveWorkers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}
