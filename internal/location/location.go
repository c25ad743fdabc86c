// Package location identifies the storage slot a variable lives in.
package location

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrUnparseableLocationKey = errors.New("location: unparseable key")

// Location is a storage slot. Implementations are comparable and usable as map keys.
type Location interface {
	// JSONKey returns the canonical corpus key. FromJSONKey inverts it.
	JSONKey() string
	String() string
}

const (
	stackPrefix    = 's'
	registerPrefix = 'r'
)

// Stack is a frame-relative stack slot.
type Stack struct {
	Offset int
}

func (s Stack) JSONKey() string { return string(stackPrefix) + strconv.Itoa(s.Offset) }

func (s Stack) String() string {
	if s.Offset < 0 {
		return fmt.Sprintf("Stk -0x%x", -s.Offset)
	}
	return fmt.Sprintf("Stk 0x%x", s.Offset)
}

// Register is a named machine register.
type Register struct {
	Name string
}

func (r Register) JSONKey() string { return string(registerPrefix) + r.Name }
func (r Register) String() string  { return "Reg " + r.Name }

// FromJSONKey parses a key produced by JSONKey.
func FromJSONKey(key string) (Location, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty", ErrUnparseableLocationKey)
	}
	payload := key[1:]
	switch key[0] {
	case stackPrefix:
		off, err := strconv.Atoi(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrUnparseableLocationKey, key, err)
		}
		// Reject non-canonical spellings ("s+8", "s08") so the key round-trips exactly.
		if strconv.Itoa(off) != payload {
			return nil, fmt.Errorf("%w: %q: non-canonical offset", ErrUnparseableLocationKey, key)
		}
		return Stack{Offset: off}, nil
	case registerPrefix:
		if payload == "" {
			return nil, fmt.Errorf("%w: %q: empty register name", ErrUnparseableLocationKey, key)
		}
		return Register{Name: payload}, nil
	default:
		return nil, fmt.Errorf("%w: %q: unknown kind %q", ErrUnparseableLocationKey, key, key[0])
	}
}

// Validate reports whether loc has a key that FromJSONKey maps back to loc.
func Validate(loc Location) error {
	if loc == nil {
		return fmt.Errorf("%w: nil location", ErrUnparseableLocationKey)
	}
	back, err := FromJSONKey(loc.JSONKey())
	if err != nil {
		return err
	}
	if back != loc {
		return fmt.Errorf("%w: %q does not round-trip", ErrUnparseableLocationKey, loc.JSONKey())
	}
	return nil
}
