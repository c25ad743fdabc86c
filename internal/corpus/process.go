package corpus

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zeebo/xxh3"

	"recovar/internal/function"
	"recovar/internal/location"
	"recovar/internal/recfmt"
	"recovar/internal/types"
	"recovar/internal/variable"
)

// FilterUserNames keeps functions whose debug view has at least one
// user-named variable. It returns the kept functions and the indices of the
// dropped ones.
func FilterUserNames(fns []*function.CollectedFunction) ([]*function.CollectedFunction, []int) {
	kept := fns[:0:0]
	var dropped []int
	for i, cf := range fns {
		if cf.Debug.HasUserNames() {
			kept = append(kept, cf)
			continue
		}
		dropped = append(dropped, i)
	}
	return kept, dropped
}

// ContentHash hashes both views of cf. The address is not included, so the
// same function linked at two addresses hashes equal.
func ContentHash(cf *function.CollectedFunction, codec *types.Codec) (xxh3.Uint128, error) {
	b, err := cf.Debug.ToJSON(codec)
	if err != nil {
		return xxh3.Uint128{}, err
	}
	c, err := cf.Decompiler.ToJSON(codec)
	if err != nil {
		return xxh3.Uint128{}, err
	}
	data, err := json.Marshal([2]function.Record{b, c})
	if err != nil {
		return xxh3.Uint128{}, err
	}
	return xxh3.Hash128(data), nil
}

// Dedup drops functions whose content hash was already seen, keeping the
// first occurrence. It returns the kept functions and the index of the first
// occurrence for every dropped one.
func Dedup(fns []*function.CollectedFunction, codec *types.Codec) ([]*function.CollectedFunction, map[int]int, error) {
	seen := make(map[xxh3.Uint128]int, len(fns))
	dups := make(map[int]int)
	kept := make([]*function.CollectedFunction, 0, len(fns))
	for i, cf := range fns {
		h, err := ContentHash(cf, codec)
		if err != nil {
			return nil, nil, fmt.Errorf("corpus: hash ea 0x%x: %w", cf.EA, err)
		}
		if first, ok := seen[h]; ok {
			dups[i] = first
			continue
		}
		seen[h] = i
		kept = append(kept, cf)
	}
	return kept, dups, nil
}

// FilterOptions selects the passes Filter runs.
type FilterOptions struct {
	UserNames bool
	Dedup     bool
}

// Filter returns a corpus holding the functions of c that survive opts, in
// their original order. The result carries c's diagnostics followed by one
// DiagNoUserNames or DiagDuplicate entry per dropped function.
func Filter(c *Corpus, opts FilterOptions, codec *types.Codec) (*Corpus, error) {
	fns, lines := c.Functions, c.Lines
	var dropped recfmt.Diags
	if opts.UserNames {
		_, idx := FilterUserNames(fns)
		drop := make(map[int]bool, len(idx))
		for _, i := range idx {
			drop[i] = true
			dropped.AddEA(lineAt(lines, i), fns[i].EA, recfmt.DiagNoUserNames, fns[i].Name)
		}
		fns, lines = without(fns, lines, drop)
	}
	if opts.Dedup {
		_, dups, err := Dedup(fns, codec)
		if err != nil {
			return nil, err
		}
		idx := make([]int, 0, len(dups))
		for i := range dups {
			idx = append(idx, i)
		}
		sort.Ints(idx)
		drop := make(map[int]bool, len(idx))
		for _, i := range idx {
			first := dups[i]
			drop[i] = true
			dropped.AddEA(lineAt(lines, i), fns[i].EA, recfmt.DiagDuplicate,
				fmt.Sprintf("%s repeats ea 0x%x (line %d)", fns[i].Name, fns[first].EA, lineAt(lines, first)))
		}
		fns, lines = without(fns, lines, drop)
	}

	out := &Corpus{Functions: fns, Lines: lines, Skipped: c.Skipped}
	out.Diags.Merge(&c.Diags)
	dropped.Sort()
	out.Diags.Merge(&dropped)
	return out, nil
}

func lineAt(lines []int, i int) int {
	if i < len(lines) {
		return lines[i]
	}
	return 0
}

// without drops the marked entries from fns and the parallel lines slice.
func without(fns []*function.CollectedFunction, lines []int, drop map[int]bool) ([]*function.CollectedFunction, []int) {
	keptFns := make([]*function.CollectedFunction, 0, len(fns)-len(drop))
	var keptLines []int
	for i, cf := range fns {
		if drop[i] {
			continue
		}
		keptFns = append(keptFns, cf)
		if i < len(lines) {
			keptLines = append(keptLines, lines[i])
		}
	}
	return keptFns, keptLines
}

// Stats summarises a corpus.
type Stats struct {
	Functions         int            `json:"functions"`
	WithUserNames     int            `json:"with_user_names"`
	DebugVariables    int            `json:"debug_variables"`
	DecompVariables   int            `json:"decompiler_variables"`
	UserVariables     int            `json:"user_variables"`
	Locations         int            `json:"locations"`
	StackLocations    int            `json:"stack_locations"`
	RegisterLocations int            `json:"register_locations"`
	UnknownRegisters  map[string]int `json:"unknown_registers,omitempty"`
	ASTNodes          int            `json:"ast_nodes"`
	Types             *types.Lib     `json:"types"`
}

// Collect computes stats over c. Registers no x/arch table knows are
// counted in UnknownRegisters and reported in diags against their function.
func Collect(c *Corpus, codec *types.Codec) (*Stats, error) {
	s := &Stats{
		Functions:        c.Len(),
		UnknownRegisters: make(map[string]int),
		Types:            types.NewLib(codec),
	}
	for i, cf := range c.Functions {
		if cf.Debug.HasUserNames() {
			s.WithUserNames++
		}
		line := lineAt(c.Lines, i)
		for _, view := range []*function.Function{cf.Debug, cf.Decompiler} {
			if _, err := s.Types.Add(view.ReturnType()); err != nil {
				return nil, err
			}
			s.ASTNodes += view.AST().Len()
			for _, loc := range view.Locations() {
				s.Locations++
				switch l := loc.(type) {
				case location.Stack:
					s.StackLocations++
				case location.Register:
					s.RegisterLocations++
					if l.Arch() == location.ArchUnknown {
						if s.UnknownRegisters[l.Name] == 0 {
							c.Diags.AddEA(line, cf.EA, recfmt.DiagUnknownRegister, l.Name)
						}
						s.UnknownRegisters[l.Name]++
					}
				}
			}
			err := forEachVariable(view, func(v variable.Variable) error {
				if view == cf.Debug {
					s.DebugVariables++
				} else {
					s.DecompVariables++
				}
				if v.User {
					s.UserVariables++
				}
				_, err := s.Types.Add(v.Type)
				return err
			})
			if err != nil {
				return nil, fmt.Errorf("corpus: stats ea 0x%x: %w", cf.EA, err)
			}
		}
	}
	return s, nil
}

func forEachVariable(f *function.Function, fn func(variable.Variable) error) error {
	var err error
	visit := func(_ location.Location, s *variable.Set) bool {
		for _, v := range s.Slice() {
			if err = fn(v); err != nil {
				return false
			}
		}
		return true
	}
	f.Arguments().Range(visit)
	if err != nil {
		return err
	}
	f.LocalVars().Range(visit)
	return err
}

// UnknownRegisterNames returns the keys of UnknownRegisters, most frequent first.
func (s *Stats) UnknownRegisterNames() []string {
	names := make([]string, 0, len(s.UnknownRegisters))
	for n := range s.UnknownRegisters {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := s.UnknownRegisters[names[i]], s.UnknownRegisters[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	return names
}
