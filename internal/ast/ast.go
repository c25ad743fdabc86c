// Package ast holds the decompiler's syntax tree for a function body.
//
// Node kinds follow the decompiler's ctree item names without their prefix
// ("block", "if", "asg", "call", "obj", "var", "num", ...). The corpus codec
// treats the tree as an opaque value; only Walk and Calls look inside.
package ast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedAST = errors.New("ast: malformed record")

// Kind of a call expression node.
const KindCall = "call"

// Node is one ctree item.
type Node struct {
	Kind     string  `json:"k"`
	Name     string  `json:"n,omitempty"`
	Addr     uint64  `json:"a,omitempty"`
	Value    string  `json:"v,omitempty"`
	Children []*Node `json:"c,omitempty"`
}

// AST is a function body.
type AST struct {
	Root *Node `json:"r"`
}

// ToJSON encodes the tree. A nil *AST encodes as JSON null; a tree that
// FromJSON would reject is an error.
func (a *AST) ToJSON() (json.RawMessage, error) {
	if a == nil {
		return json.RawMessage("null"), nil
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(a)
}

// FromJSON decodes a tree. A JSON null decodes to a nil *AST.
func FromJSON(raw json.RawMessage) (*AST, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var a AST
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAST, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks that the tree has a root and every node has a kind.
func (a *AST) Validate() error {
	if a.Root == nil {
		return fmt.Errorf("%w: no root", ErrMalformedAST)
	}
	var err error
	a.Walk(func(n *Node, depth int) bool {
		if n == nil || n.Kind == "" {
			err = fmt.Errorf("%w: node without kind at depth %d", ErrMalformedAST, depth)
			return false
		}
		return true
	})
	return err
}

// Walk visits nodes depth-first in pre-order. Returning false from fn stops the walk.
func (a *AST) Walk(fn func(n *Node, depth int) bool) {
	if a == nil || a.Root == nil {
		return
	}
	walk(a.Root, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) bool {
	if !fn(n, depth) {
		return false
	}
	if n == nil {
		return true
	}
	for _, c := range n.Children {
		if !walk(c, depth+1, fn) {
			return false
		}
	}
	return true
}

// Calls returns the callee names of call expressions in visit order, with
// duplicates. The callee is the first named child of a call node; calls
// through unnamed expressions are skipped.
func (a *AST) Calls() []string {
	var out []string
	a.Walk(func(n *Node, _ int) bool {
		if n == nil || n.Kind != KindCall {
			return true
		}
		for _, c := range n.Children {
			if c != nil && c.Name != "" {
				out = append(out, c.Name)
				break
			}
		}
		return true
	})
	return out
}

// Len returns the number of nodes.
func (a *AST) Len() int {
	n := 0
	a.Walk(func(*Node, int) bool { n++; return true })
	return n
}

func (a *AST) String() string {
	if a == nil || a.Root == nil {
		return "<empty>"
	}
	return fmt.Sprintf("%s (%d nodes)", a.Root.Kind, a.Len())
}
