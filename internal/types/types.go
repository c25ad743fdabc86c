// Package types describes C types recovered from debug info or a decompiler
// and their compact corpus encoding.
package types

import (
	"fmt"
	"strings"
)

// TypeInfo is a C type.
type TypeInfo interface {
	Size() int
	String() string
	tag() Tag
}

// Member is one entry in a Struct layout: a named Field or anonymous Padding.
type Member interface {
	TypeInfo
	member()
}

// Tag is the "T" discriminator in the compact encoding.
type Tag int

const (
	TagScalar Tag = iota
	TagArray
	TagPointer
	TagField
	TagPadding
	TagStruct
	TagUnion
	TagVoid
	TagFunctionPointer
	TagDisappear
)

// Scalar is a named type with no further structure (int, char, typedef names).
type Scalar struct {
	Name     string
	ByteSize int
}

func (t Scalar) Size() int      { return t.ByteSize }
func (t Scalar) String() string { return t.Name }
func (Scalar) tag() Tag         { return TagScalar }

// Array is a fixed-length array. Element types are referenced by name.
type Array struct {
	ElementType string
	NElements   int
	ByteSize    int
}

func (t Array) Size() int      { return t.ByteSize }
func (t Array) String() string { return fmt.Sprintf("%s[%d]", t.ElementType, t.NElements) }
func (Array) tag() Tag         { return TagArray }

// PointerSize is the pointer width assumed for Pointer and FunctionPointer.
const PointerSize = 8

// Pointer points at a type referenced by name.
type Pointer struct {
	TargetType string
}

func (Pointer) Size() int        { return PointerSize }
func (t Pointer) String() string { return t.TargetType + " *" }
func (Pointer) tag() Tag         { return TagPointer }

// Field is a named struct or union member.
type Field struct {
	Name     string
	TypeName string
	ByteSize int
}

func (t Field) Size() int      { return t.ByteSize }
func (t Field) String() string { return t.TypeName + " " + t.Name }
func (Field) tag() Tag         { return TagField }
func (Field) member()          {}

// Padding is unnamed filler inside a struct or union.
type Padding struct {
	ByteSize int
}

func (t Padding) Size() int      { return t.ByteSize }
func (t Padding) String() string { return fmt.Sprintf("PADDING (%d)", t.ByteSize) }
func (Padding) tag() Tag         { return TagPadding }
func (Padding) member()          {}

// Struct is a struct with an ordered layout.
type Struct struct {
	Name     string
	Layout   []Member
	ByteSize int
}

func (t *Struct) Size() int { return t.ByteSize }

func (t *Struct) String() string {
	if t.Name == "" {
		return "struct"
	}
	return "struct " + t.Name
}

func (*Struct) tag() Tag { return TagStruct }

// Union is a union of fields, optionally padded past its largest member.
type Union struct {
	Name     string
	Members  []Field
	Padding  *Padding
	ByteSize int
}

func (t *Union) Size() int { return t.ByteSize }

func (t *Union) String() string {
	if t.Name == "" {
		return "union"
	}
	return "union " + t.Name
}

func (*Union) tag() Tag { return TagUnion }

// Void is the void type.
type Void struct{}

func (Void) Size() int      { return 0 }
func (Void) String() string { return "void" }
func (Void) tag() Tag       { return TagVoid }

// FunctionPointer is a pointer to a function, identified only by its name.
type FunctionPointer struct {
	Name string
}

func (FunctionPointer) Size() int        { return PointerSize }
func (t FunctionPointer) String() string { return t.Name }
func (FunctionPointer) tag() Tag         { return TagFunctionPointer }

// Disappear marks a type the decompiler dropped entirely.
type Disappear struct{}

func (Disappear) Size() int      { return 0 }
func (Disappear) String() string { return "disappear" }
func (Disappear) tag() Tag       { return TagDisappear }

// Describe renders a type with its layout, one member per line.
func Describe(t TypeInfo) string {
	var b strings.Builder
	b.WriteString(t.String())
	switch tt := t.(type) {
	case *Struct:
		for _, m := range tt.Layout {
			fmt.Fprintf(&b, "\n\t%s", m)
		}
	case *Union:
		for _, m := range tt.Members {
			fmt.Fprintf(&b, "\n\t%s", m)
		}
		if tt.Padding != nil {
			fmt.Fprintf(&b, "\n\t%s", tt.Padding)
		}
	}
	return b.String()
}
