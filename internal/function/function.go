// Package function models a decompiled C function and the pairing of its
// debug-info and decompiler views used as one unit of training data.
package function

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"recovar/internal/ast"
	"recovar/internal/location"
	"recovar/internal/types"
	"recovar/internal/variable"
)

var (
	ErrMalformedRecord = errors.New("function: malformed record")
	ErrNoReturnType    = errors.New("function: return type required")
	ErrMissingView     = errors.New("function: debug and decompiler views required")
)

// Params are the constructor inputs for New. AST and RawCode are optional.
type Params struct {
	Name       string
	ReturnType types.TypeInfo
	Arguments  map[location.Location]*variable.Set
	LocalVars  map[location.Location]*variable.Set
	AST        *ast.AST
	RawCode    *string
	// Codec backs the empty sets created for new locations. Defaults to types.Default.
	Codec *types.Codec
}

// Function is one view of a C function. It owns its argument and local
// variable maps; nothing else should hold references into them.
type Function struct {
	name       string
	returnType types.TypeInfo
	ast        *ast.AST
	arguments  *VarMap
	localVars  *VarMap
	rawCode    *string
	codec      *types.Codec
}

// New builds a Function. The argument and local maps are copied. Locations
// without a decodable key and ASTs that would not decode are rejected, so
// anything New accepts survives ToJSON and FromJSON.
func New(p Params) (*Function, error) {
	if p.ReturnType == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoReturnType, p.Name)
	}
	if p.AST != nil {
		if err := p.AST.Validate(); err != nil {
			return nil, fmt.Errorf("function %s: %w", p.Name, err)
		}
	}
	for _, in := range []map[location.Location]*variable.Set{p.Arguments, p.LocalVars} {
		for loc := range in {
			if err := location.Validate(loc); err != nil {
				return nil, fmt.Errorf("function %s: %w", p.Name, err)
			}
		}
	}
	codec := p.Codec
	if codec == nil {
		codec = types.Default
	}
	f := &Function{
		name:       p.Name,
		returnType: p.ReturnType,
		ast:        p.AST,
		arguments:  NewVarMap(codec, p.Arguments),
		localVars:  NewVarMap(codec, p.LocalVars),
		codec:      codec,
	}
	if p.RawCode != nil {
		code := *p.RawCode
		f.rawCode = &code
	}
	return f, nil
}

func (f *Function) Name() string               { return f.name }
func (f *Function) ReturnType() types.TypeInfo { return f.returnType }
func (f *Function) AST() *ast.AST              { return f.ast }
func (f *Function) Arguments() *VarMap         { return f.arguments }
func (f *Function) LocalVars() *VarMap         { return f.localVars }

// RawCode returns the function's source or pseudocode, if any.
func (f *Function) RawCode() (string, bool) {
	if f.rawCode == nil {
		return "", false
	}
	return *f.rawCode, true
}

// Locations returns every location holding an argument or a local, each
// once, ordered by JSON key.
func (f *Function) Locations() []location.Location {
	seen := make(map[location.Location]bool, f.arguments.Len()+f.localVars.Len())
	var locs []location.Location
	for _, vm := range []*VarMap{f.arguments, f.localVars} {
		for loc := range vm.m {
			if !seen[loc] {
				seen[loc] = true
				locs = append(locs, loc)
			}
		}
	}
	sortLocations(locs)
	return locs
}

// HasUserNames reports whether any argument or local carries a name from
// debug information. Functions without one give no naming signal.
func (f *Function) HasUserNames() bool {
	return f.arguments.anyUser() || f.localVars.anyUser()
}

// Equal compares two functions structurally. Variable sets compare as sets.
func (f *Function) Equal(o *Function) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.name != o.name || !typesEqual(f.codec, f.returnType, o.returnType) {
		return false
	}
	fc, fok := f.RawCode()
	oc, ook := o.RawCode()
	if fok != ook || fc != oc {
		return false
	}
	if !astEqual(f.ast, o.ast) {
		return false
	}
	return f.arguments.Equal(o.arguments) && f.localVars.Equal(o.localVars)
}

func astEqual(a, b *ast.AST) bool {
	ra, errA := a.ToJSON()
	rb, errB := b.ToJSON()
	return errA == nil && errB == nil && bytes.Equal(ra, rb)
}

func typesEqual(codec *types.Codec, a, b types.TypeInfo) bool {
	if codec == nil {
		codec = types.Default
	}
	ra, errA := codec.Encode(a)
	rb, errB := codec.Encode(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ra) == string(rb)
}

func (f *Function) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", f.returnType, f.name)
	fmt.Fprintf(&b, "\tArguments: %s\n", f.arguments)
	fmt.Fprintf(&b, "\tLocal vars: %s", f.localVars)
	if f.ast != nil {
		fmt.Fprintf(&b, "\n\tAST: %s", f.ast)
	}
	if code, ok := f.RawCode(); ok && code != "" {
		fmt.Fprintf(&b, "\n\tRaw code: %s", code)
	}
	return b.String()
}

// CollectedFunction pairs the debug-info and decompiler views of the
// function at one entry address. It owns both views.
type CollectedFunction struct {
	EA         uint64
	Name       string
	Debug      *Function
	Decompiler *Function
}

// NewCollected pairs two views. Name is taken from the debug view at
// construction and does not follow later changes.
func NewCollected(ea uint64, debug, decompiler *Function) (*CollectedFunction, error) {
	if debug == nil || decompiler == nil {
		return nil, fmt.Errorf("%w: ea 0x%x", ErrMissingView, ea)
	}
	return &CollectedFunction{
		EA:         ea,
		Name:       debug.Name(),
		Debug:      debug,
		Decompiler: decompiler,
	}, nil
}

// Equal compares address, name and both views.
func (cf *CollectedFunction) Equal(o *CollectedFunction) bool {
	if cf == nil || o == nil {
		return cf == o
	}
	return cf.EA == o.EA && cf.Name == o.Name &&
		cf.Debug.Equal(o.Debug) && cf.Decompiler.Equal(o.Decompiler)
}

func (cf *CollectedFunction) String() string {
	return fmt.Sprintf("%d %s\nDebug: %s\nDecompiler: %s\n", cf.EA, cf.Name, cf.Debug, cf.Decompiler)
}
