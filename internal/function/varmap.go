package function

import (
	"sort"

	"recovar/internal/location"
	"recovar/internal/types"
	"recovar/internal/variable"
)

// VarMap maps storage locations to the variables observed there.
// A location with no entry reads as an empty set.
type VarMap struct {
	codec *types.Codec
	m     map[location.Location]*variable.Set
}

// NewVarMap copies in, cloning every set so the map owns its contents.
// Nil sets in the input become empty sets.
func NewVarMap(codec *types.Codec, in map[location.Location]*variable.Set) *VarMap {
	if codec == nil {
		codec = types.Default
	}
	vm := &VarMap{codec: codec, m: make(map[location.Location]*variable.Set, len(in))}
	for loc, s := range in {
		if s == nil {
			vm.m[loc] = vm.empty()
			continue
		}
		vm.m[loc] = s.Clone()
	}
	return vm
}

func (vm *VarMap) empty() *variable.Set {
	s, _ := variable.NewSet(vm.codec)
	return s
}

// Get returns the variables at loc, or a new empty set when loc has no entry.
// Looking up a missing location does not create an entry.
func (vm *VarMap) Get(loc location.Location) *variable.Set {
	if s, ok := vm.m[loc]; ok {
		return s
	}
	return vm.empty()
}

// Has reports whether loc has an entry.
func (vm *VarMap) Has(loc location.Location) bool {
	_, ok := vm.m[loc]
	return ok
}

// Set replaces the entry at loc with a copy of s. A nil s stores an empty set.
func (vm *VarMap) Set(loc location.Location, s *variable.Set) error {
	if err := location.Validate(loc); err != nil {
		return err
	}
	if s == nil {
		vm.m[loc] = vm.empty()
		return nil
	}
	vm.m[loc] = s.Clone()
	return nil
}

// Add records v at loc, creating the entry if needed.
func (vm *VarMap) Add(loc location.Location, v variable.Variable) error {
	if err := location.Validate(loc); err != nil {
		return err
	}
	s, ok := vm.m[loc]
	if !ok {
		s = vm.empty()
		vm.m[loc] = s
	}
	_, err := s.Add(v)
	return err
}

// Len returns the number of locations with an entry.
func (vm *VarMap) Len() int { return len(vm.m) }

// Locations returns the locations with an entry, ordered by JSON key.
func (vm *VarMap) Locations() []location.Location {
	locs := make([]location.Location, 0, len(vm.m))
	for loc := range vm.m {
		locs = append(locs, loc)
	}
	sortLocations(locs)
	return locs
}

// Range calls fn for each entry in Locations order until fn returns false.
func (vm *VarMap) Range(fn func(loc location.Location, s *variable.Set) bool) {
	for _, loc := range vm.Locations() {
		if !fn(loc, vm.m[loc]) {
			return
		}
	}
}

// Equal reports whether both maps have the same locations holding equal sets.
func (vm *VarMap) Equal(o *VarMap) bool {
	if vm.Len() != o.Len() {
		return false
	}
	for loc, s := range vm.m {
		os, ok := o.m[loc]
		if !ok || !s.Equal(os) {
			return false
		}
	}
	return true
}

func (vm *VarMap) anyUser() bool {
	for _, s := range vm.m {
		if s.AnyUser() {
			return true
		}
	}
	return false
}

func (vm *VarMap) String() string {
	out := "{"
	for i, loc := range vm.Locations() {
		if i > 0 {
			out += ", "
		}
		out += loc.String() + ": " + vm.m[loc].String()
	}
	return out + "}"
}

func sortLocations(locs []location.Location) {
	sort.Slice(locs, func(i, j int) bool { return locs[i].JSONKey() < locs[j].JSONKey() })
}
