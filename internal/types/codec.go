package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrUnresolvedType = errors.New("types: unresolved type")

// DefaultCacheSize bounds the number of distinct encoded types a Codec interns.
const DefaultCacheSize = 1 << 16

// Codec encodes types to the compact tagged form and decodes them back.
// Decoded types are interned by their encoding, so repeated references in a
// corpus share one value. Callers must treat returned types as immutable.
// A Codec is safe for concurrent use.
type Codec struct {
	cache *lru.Cache[string, TypeInfo]
}

// NewCodec returns a codec interning up to size decoded types.
func NewCodec(size int) *Codec {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, TypeInfo](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Codec{cache: cache}
}

// Default is the process-wide codec used when a caller does not supply one.
var Default = NewCodec(DefaultCacheSize)

// Wire forms. Field keys are single letters to keep corpora small.
type (
	scalarJSON struct {
		T Tag    `json:"T"`
		N string `json:"n"`
		S int    `json:"s"`
	}
	arrayJSON struct {
		T Tag    `json:"T"`
		N int    `json:"n"`
		E string `json:"t"`
		S int    `json:"s"`
	}
	pointerJSON struct {
		T Tag    `json:"T"`
		P string `json:"t"`
	}
	fieldJSON struct {
		T  Tag    `json:"T"`
		N  string `json:"n"`
		TN string `json:"t"`
		S  int    `json:"s"`
	}
	paddingJSON struct {
		T Tag `json:"T"`
		S int `json:"s"`
	}
	structJSON struct {
		T Tag               `json:"T"`
		N string            `json:"n"`
		L []json.RawMessage `json:"l"`
		S int               `json:"s"`
	}
	unionJSON struct {
		T Tag               `json:"T"`
		N string            `json:"n"`
		M []json.RawMessage `json:"m"`
		P json.RawMessage   `json:"p"`
		S int               `json:"s"`
	}
	nameOnlyJSON struct {
		T Tag    `json:"T"`
		N string `json:"n"`
	}
	tagOnlyJSON struct {
		T Tag `json:"T"`
	}
)

// Encode returns the compact encoding of t.
func (c *Codec) Encode(t TypeInfo) (json.RawMessage, error) {
	v, err := c.wire(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func (c *Codec) wire(t TypeInfo) (any, error) {
	switch tt := t.(type) {
	case Scalar:
		return scalarJSON{T: TagScalar, N: tt.Name, S: tt.ByteSize}, nil
	case Array:
		return arrayJSON{T: TagArray, N: tt.NElements, E: tt.ElementType, S: tt.ByteSize}, nil
	case Pointer:
		return pointerJSON{T: TagPointer, P: tt.TargetType}, nil
	case Field:
		return fieldJSON{T: TagField, N: tt.Name, TN: tt.TypeName, S: tt.ByteSize}, nil
	case Padding:
		return paddingJSON{T: TagPadding, S: tt.ByteSize}, nil
	case *Struct:
		layout := make([]json.RawMessage, 0, len(tt.Layout))
		for i, m := range tt.Layout {
			raw, err := c.Encode(m)
			if err != nil {
				return nil, fmt.Errorf("types: struct %s member %d: %w", tt.Name, i, err)
			}
			layout = append(layout, raw)
		}
		return structJSON{T: TagStruct, N: tt.Name, L: layout, S: tt.ByteSize}, nil
	case *Union:
		members := make([]json.RawMessage, 0, len(tt.Members))
		for i, m := range tt.Members {
			raw, err := c.Encode(m)
			if err != nil {
				return nil, fmt.Errorf("types: union %s member %d: %w", tt.Name, i, err)
			}
			members = append(members, raw)
		}
		u := unionJSON{T: TagUnion, N: tt.Name, M: members, P: json.RawMessage("null"), S: tt.ByteSize}
		if tt.Padding != nil {
			raw, err := c.Encode(*tt.Padding)
			if err != nil {
				return nil, err
			}
			u.P = raw
		}
		return u, nil
	case Void:
		return tagOnlyJSON{T: TagVoid}, nil
	case FunctionPointer:
		return nameOnlyJSON{T: TagFunctionPointer, N: tt.Name}, nil
	case Disappear:
		return tagOnlyJSON{T: TagDisappear}, nil
	case nil:
		return nil, fmt.Errorf("%w: nil type", ErrUnresolvedType)
	default:
		return nil, fmt.Errorf("%w: unsupported %T", ErrUnresolvedType, t)
	}
}

// ReadMetadata decodes a compact type encoding.
func (c *Codec) ReadMetadata(raw json.RawMessage) (TypeInfo, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: missing", ErrUnresolvedType)
	}
	key := string(raw)
	if t, ok := c.cache.Get(key); ok {
		return t, nil
	}
	t, err := c.decode(raw)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, t)
	return t, nil
}

func (c *Codec) decode(raw json.RawMessage) (TypeInfo, error) {
	// encoding/json matches struct keys case-insensitively, so the tag is
	// read by exact key to keep it apart from the lowercase "t" field.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnresolvedType, err)
	}
	tagRaw, ok := fields["T"]
	if !ok {
		return nil, fmt.Errorf("%w: no tag", ErrUnresolvedType)
	}
	var tag Tag
	if err := json.Unmarshal(tagRaw, &tag); err != nil {
		return nil, fmt.Errorf("%w: tag: %v", ErrUnresolvedType, err)
	}

	switch tag {
	case TagScalar:
		var w scalarJSON
		if err := unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return Scalar{Name: w.N, ByteSize: w.S}, nil
	case TagArray:
		var w arrayJSON
		if err := unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return Array{ElementType: w.E, NElements: w.N, ByteSize: w.S}, nil
	case TagPointer:
		var w pointerJSON
		if err := unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return Pointer{TargetType: w.P}, nil
	case TagField:
		var w fieldJSON
		if err := unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return Field{Name: w.N, TypeName: w.TN, ByteSize: w.S}, nil
	case TagPadding:
		var w paddingJSON
		if err := unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return Padding{ByteSize: w.S}, nil
	case TagStruct:
		var w structJSON
		if err := unmarshal(raw, &w); err != nil {
			return nil, err
		}
		st := &Struct{Name: w.N, ByteSize: w.S, Layout: make([]Member, 0, len(w.L))}
		for i, mraw := range w.L {
			t, err := c.ReadMetadata(mraw)
			if err != nil {
				return nil, fmt.Errorf("struct %s member %d: %w", w.N, i, err)
			}
			m, ok := t.(Member)
			if !ok {
				return nil, fmt.Errorf("%w: struct %s member %d is %s, not a field or padding", ErrUnresolvedType, w.N, i, t)
			}
			st.Layout = append(st.Layout, m)
		}
		return st, nil
	case TagUnion:
		var w unionJSON
		if err := unmarshal(raw, &w); err != nil {
			return nil, err
		}
		u := &Union{Name: w.N, ByteSize: w.S, Members: make([]Field, 0, len(w.M))}
		for i, mraw := range w.M {
			t, err := c.ReadMetadata(mraw)
			if err != nil {
				return nil, fmt.Errorf("union %s member %d: %w", w.N, i, err)
			}
			f, ok := t.(Field)
			if !ok {
				return nil, fmt.Errorf("%w: union %s member %d is %s, not a field", ErrUnresolvedType, w.N, i, t)
			}
			u.Members = append(u.Members, f)
		}
		if p := bytes.TrimSpace(w.P); len(p) > 0 && !bytes.Equal(p, []byte("null")) {
			t, err := c.ReadMetadata(p)
			if err != nil {
				return nil, fmt.Errorf("union %s padding: %w", w.N, err)
			}
			pad, ok := t.(Padding)
			if !ok {
				return nil, fmt.Errorf("%w: union %s padding is %s", ErrUnresolvedType, w.N, t)
			}
			u.Padding = &pad
		}
		return u, nil
	case TagVoid:
		return Void{}, nil
	case TagFunctionPointer:
		var w nameOnlyJSON
		if err := unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return FunctionPointer{Name: w.N}, nil
	case TagDisappear:
		return Disappear{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrUnresolvedType, tag)
	}
}

func unmarshal(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnresolvedType, err)
	}
	return nil
}
