package function

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"recovar/internal/ast"
	"recovar/internal/location"
	"recovar/internal/types"
	"recovar/internal/variable"
)

// Record is the corpus form of a Function. Keys are single letters to keep
// corpora small.
type Record struct {
	T json.RawMessage              `json:"t"` // AST or null
	N string                       `json:"n"` // name
	R json.RawMessage              `json:"r"` // return type
	A map[string][]variable.Record `json:"a"` // arguments by location key
	L map[string][]variable.Record `json:"l"` // locals by location key
	C *string                      `json:"c"` // raw code or null
}

// CollectedRecord is the corpus form of a CollectedFunction.
type CollectedRecord struct {
	E uint64 `json:"e"`
	B Record `json:"b"`
	C Record `json:"c"`
}

// DecodeOptions adjusts decoding of Function records.
type DecodeOptions struct {
	// LegacyRawCode accepts records whose "c" holds a non-string value, as
	// written by tools that loaded a record's return type into its raw code
	// and saved it again. Such values are dropped and the raw code is absent.
	LegacyRawCode bool
}

var errNull = errors.New("null")

var functionKeys = []string{"t", "n", "r", "a", "l", "c"}

// ToJSON encodes f with codec.
func (f *Function) ToJSON(codec *types.Codec) (Record, error) {
	if codec == nil {
		codec = types.Default
	}
	rec := Record{N: f.name, C: f.rawCode}

	if f.ast != nil {
		raw, err := f.ast.ToJSON()
		if err != nil {
			return Record{}, fmt.Errorf("function %s: ast: %w", f.name, err)
		}
		rec.T = raw
	}

	raw, err := codec.Encode(f.returnType)
	if err != nil {
		return Record{}, fmt.Errorf("function %s: return type: %w", f.name, err)
	}
	rec.R = raw

	if rec.A, err = encodeVarMap(f.arguments); err != nil {
		return Record{}, fmt.Errorf("function %s: arguments: %w", f.name, err)
	}
	if rec.L, err = encodeVarMap(f.localVars); err != nil {
		return Record{}, fmt.Errorf("function %s: locals: %w", f.name, err)
	}
	return rec, nil
}

func encodeVarMap(vm *VarMap) (map[string][]variable.Record, error) {
	out := make(map[string][]variable.Record, vm.Len())
	for loc, s := range vm.m {
		recs, err := s.ToJSON()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", loc, err)
		}
		out[loc.JSONKey()] = recs
	}
	return out, nil
}

// FromJSON decodes a Function record. All six keys must be present; any
// failure rejects the whole record with an error wrapping ErrMalformedRecord
// and, where applicable, the underlying cause.
func FromJSON(raw json.RawMessage, codec *types.Codec, opts DecodeOptions) (*Function, error) {
	if codec == nil {
		codec = types.Default
	}
	fields, err := objectFields(raw, functionKeys)
	if err != nil {
		return nil, err
	}

	tree, err := ast.FromJSON(fields["t"])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	var name string
	if err := decodeString(fields["n"], &name); err != nil {
		return nil, fmt.Errorf("%w: name: %v", ErrMalformedRecord, err)
	}

	retType, err := codec.ReadMetadata(fields["r"])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: return type: %w", ErrMalformedRecord, name, err)
	}

	args, err := decodeVarMap(fields["a"], codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: arguments: %w", ErrMalformedRecord, name, err)
	}
	locals, err := decodeVarMap(fields["l"], codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: locals: %w", ErrMalformedRecord, name, err)
	}

	rawCode, err := decodeRawCode(fields["c"], opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: raw code: %v", ErrMalformedRecord, name, err)
	}

	return &Function{
		name:       name,
		returnType: retType,
		ast:        tree,
		arguments:  args,
		localVars:  locals,
		rawCode:    rawCode,
		codec:      codec,
	}, nil
}

func decodeVarMap(raw json.RawMessage, codec *types.Codec) (*VarMap, error) {
	if isNull(raw) {
		return nil, errNull
	}
	var byKey map[string][]json.RawMessage
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, err
	}
	vm := NewVarMap(codec, nil)
	for key, list := range byKey {
		loc, err := location.FromJSONKey(key)
		if err != nil {
			return nil, err
		}
		s, err := variable.NewSet(codec)
		if err != nil {
			return nil, err
		}
		for i, vraw := range list {
			v, err := variable.FromJSON(vraw, codec)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
			}
			if _, err := s.Add(v); err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
			}
		}
		vm.m[loc] = s
	}
	return vm, nil
}

func decodeRawCode(raw json.RawMessage, opts DecodeOptions) (*string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		if opts.LegacyRawCode {
			return nil, nil
		}
		return nil, fmt.Errorf("want string or null, got %.40s", raw)
	}
	return &code, nil
}

// ToJSON encodes cf with codec.
func (cf *CollectedFunction) ToJSON(codec *types.Codec) (CollectedRecord, error) {
	b, err := cf.Debug.ToJSON(codec)
	if err != nil {
		return CollectedRecord{}, fmt.Errorf("ea 0x%x: debug: %w", cf.EA, err)
	}
	c, err := cf.Decompiler.ToJSON(codec)
	if err != nil {
		return CollectedRecord{}, fmt.Errorf("ea 0x%x: decompiler: %w", cf.EA, err)
	}
	return CollectedRecord{E: cf.EA, B: b, C: c}, nil
}

// CollectedFromJSON decodes a CollectedFunction record. Keys "e", "b" and
// "c" are required; failures in either view reject the record.
func CollectedFromJSON(raw json.RawMessage, codec *types.Codec, opts DecodeOptions) (*CollectedFunction, error) {
	fields, err := objectFields(raw, []string{"e", "b", "c"})
	if err != nil {
		return nil, err
	}
	var ea uint64
	if isNull(fields["e"]) {
		return nil, fmt.Errorf("%w: ea: null", ErrMalformedRecord)
	}
	if err := json.Unmarshal(fields["e"], &ea); err != nil {
		return nil, fmt.Errorf("%w: ea: %v", ErrMalformedRecord, err)
	}
	debug, err := FromJSON(fields["b"], codec, opts)
	if err != nil {
		return nil, fmt.Errorf("ea 0x%x: debug: %w", ea, err)
	}
	decomp, err := FromJSON(fields["c"], codec, opts)
	if err != nil {
		return nil, fmt.Errorf("ea 0x%x: decompiler: %w", ea, err)
	}
	return NewCollected(ea, debug, decomp)
}

func objectFields(raw json.RawMessage, required []string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedRecord)
	}
	for _, k := range required {
		if _, ok := fields[k]; !ok {
			return nil, fmt.Errorf("%w: missing key %q", ErrMalformedRecord, k)
		}
	}
	return fields, nil
}

func decodeString(raw json.RawMessage, dst *string) error {
	if isNull(raw) {
		return errNull
	}
	return json.Unmarshal(raw, dst)
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
