// Package variable models program variables and their corpus encoding.
package variable

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"recovar/internal/types"
)

var ErrMalformedVariable = errors.New("variable: malformed record")

// Variable is a typed, named variable. User is true when the name came from
// debug information rather than being synthesised by the decompiler.
type Variable struct {
	Type types.TypeInfo
	Name string
	User bool
}

func (v Variable) String() string {
	return fmt.Sprintf("%s %s (user=%t)", v.Type, v.Name, v.User)
}

// Record is the corpus form of a Variable.
type Record struct {
	T json.RawMessage `json:"t"`
	N string          `json:"n"`
	U bool            `json:"u"`
}

// ToJSON encodes v using codec.
func (v Variable) ToJSON(codec *types.Codec) (Record, error) {
	raw, err := codec.Encode(v.Type)
	if err != nil {
		return Record{}, fmt.Errorf("variable %q: %w", v.Name, err)
	}
	return Record{T: raw, N: v.Name, U: v.User}, nil
}

// Key is the structural identity of v: two variables with equal keys are the same value.
func (v Variable) Key(codec *types.Codec) (string, error) {
	rec, err := v.ToJSON(codec)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FromJSON decodes a variable record. Keys "t", "n" and "u" are required.
func FromJSON(raw json.RawMessage, codec *types.Codec) (Variable, error) {
	if codec == nil {
		codec = types.Default
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Variable{}, fmt.Errorf("%w: not an object", ErrMalformedVariable)
	}
	for _, k := range []string{"t", "n", "u"} {
		if _, ok := fields[k]; !ok {
			return Variable{}, fmt.Errorf("%w: missing key %q", ErrMalformedVariable, k)
		}
	}

	var v Variable
	if err := json.Unmarshal(fields["n"], &v.Name); err != nil || bytes.Equal(bytes.TrimSpace(fields["n"]), []byte("null")) {
		return Variable{}, fmt.Errorf("%w: name must be a string", ErrMalformedVariable)
	}
	if err := json.Unmarshal(fields["u"], &v.User); err != nil || bytes.Equal(bytes.TrimSpace(fields["u"]), []byte("null")) {
		return Variable{}, fmt.Errorf("%w: user flag must be a boolean", ErrMalformedVariable)
	}
	t, err := codec.ReadMetadata(fields["t"])
	if err != nil {
		return Variable{}, fmt.Errorf("%w: %s: %w", ErrMalformedVariable, v.Name, err)
	}
	v.Type = t
	return v, nil
}

// Set is an unordered set of variables with structural equality.
// The zero value is not usable; use NewSet.
type Set struct {
	codec *types.Codec
	items map[string]Variable
}

// NewSet returns a set holding vs. Duplicate values collapse to one element.
func NewSet(codec *types.Codec, vs ...Variable) (*Set, error) {
	if codec == nil {
		codec = types.Default
	}
	s := &Set{codec: codec, items: make(map[string]Variable, len(vs))}
	for _, v := range vs {
		if _, err := s.Add(v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add inserts v and reports whether it was not already present.
func (s *Set) Add(v Variable) (bool, error) {
	key, err := v.Key(s.codec)
	if err != nil {
		return false, err
	}
	if _, ok := s.items[key]; ok {
		return false, nil
	}
	s.items[key] = v
	return true, nil
}

// Contains reports whether a structurally equal variable is in the set.
func (s *Set) Contains(v Variable) bool {
	key, err := v.Key(s.codec)
	if err != nil {
		return false
	}
	_, ok := s.items[key]
	return ok
}

func (s *Set) Len() int { return len(s.items) }

// Slice returns the elements ordered by their encoded form. The order carries
// no meaning beyond making output reproducible.
func (s *Set) Slice() []Variable {
	keys := s.keys()
	out := make([]Variable, len(keys))
	for i, k := range keys {
		out[i] = s.items[k]
	}
	return out
}

func (s *Set) keys() []string {
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether both sets hold the same variables.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for k := range s.items {
		if _, ok := o.items[k]; !ok {
			return false
		}
	}
	return true
}

// AnyUser reports whether any element carries a user-given name.
func (s *Set) AnyUser() bool {
	for _, v := range s.items {
		if v.User {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	c := &Set{codec: s.codec, items: make(map[string]Variable, len(s.items))}
	for k, v := range s.items {
		c.items[k] = v
	}
	return c
}

// ToJSON encodes the set as a list in Slice order.
func (s *Set) ToJSON() ([]Record, error) {
	out := make([]Record, 0, len(s.items))
	for _, v := range s.Slice() {
		rec, err := v.ToJSON(s.codec)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Set) String() string {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, v := range s.Slice() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte('}')
	return b.String()
}
