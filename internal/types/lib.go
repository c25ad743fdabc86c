package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Entry is a type observed in a corpus and how often it was seen.
type Entry struct {
	Frequency int
	Type      TypeInfo
}

// Lib collects the types observed in a corpus, bucketed by size.
// Types are identified by their compact encoding. Not safe for concurrent use.
type Lib struct {
	codec  *Codec
	bySize map[int][]*Entry
	index  map[string]*Entry
}

// NewLib returns an empty library using codec for type identity.
func NewLib(codec *Codec) *Lib {
	if codec == nil {
		codec = Default
	}
	return &Lib{
		codec:  codec,
		bySize: make(map[int][]*Entry),
		index:  make(map[string]*Entry),
	}
}

// Add records one observation of t. It reports whether t was new.
func (l *Lib) Add(t TypeInfo) (bool, error) {
	return l.addN(t, 1)
}

func (l *Lib) addN(t TypeInfo, n int) (bool, error) {
	raw, err := l.codec.Encode(t)
	if err != nil {
		return false, err
	}
	key := string(raw)
	if e, ok := l.index[key]; ok {
		e.Frequency += n
		return false, nil
	}
	e := &Entry{Frequency: n, Type: t}
	l.index[key] = e
	l.bySize[t.Size()] = append(l.bySize[t.Size()], e)
	return true, nil
}

// Merge adds every entry of o to l, summing frequencies of types both hold.
func (l *Lib) Merge(o *Lib) error {
	for _, size := range o.Sizes() {
		for _, e := range o.Entries(size) {
			if _, err := l.addN(e.Type, e.Frequency); err != nil {
				return err
			}
		}
	}
	return nil
}

// Len returns the number of distinct types.
func (l *Lib) Len() int { return len(l.index) }

// Sizes returns the distinct type sizes in ascending order.
func (l *Lib) Sizes() []int {
	sizes := make([]int, 0, len(l.bySize))
	for s := range l.bySize {
		sizes = append(sizes, s)
	}
	sort.Ints(sizes)
	return sizes
}

// Entries returns the types of the given size, most frequent first.
// Ties are broken by type name.
func (l *Lib) Entries(size int) []Entry {
	bucket := l.bySize[size]
	out := make([]Entry, len(bucket))
	for i, e := range bucket {
		out[i] = *e
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Type.String() < out[j].Type.String()
	})
	return out
}

type entryJSON struct {
	C int             `json:"c"`
	T json.RawMessage `json:"t"`
}

// MarshalJSON encodes the library as {"<size>": [{"c": freq, "t": type}, ...]}.
func (l *Lib) MarshalJSON() ([]byte, error) {
	out := make(map[string][]entryJSON, len(l.bySize))
	for _, size := range l.Sizes() {
		entries := l.Entries(size)
		list := make([]entryJSON, 0, len(entries))
		for _, e := range entries {
			raw, err := l.codec.Encode(e.Type)
			if err != nil {
				return nil, err
			}
			list = append(list, entryJSON{C: e.Frequency, T: raw})
		}
		out[strconv.Itoa(size)] = list
	}
	return json.Marshal(out)
}

// DecodeLib parses the MarshalJSON form.
func DecodeLib(data []byte, codec *Codec) (*Lib, error) {
	l := NewLib(codec)
	var in map[string][]entryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("types: decode lib: %w", err)
	}
	for sizeKey, list := range in {
		if _, err := strconv.Atoi(sizeKey); err != nil {
			return nil, fmt.Errorf("types: decode lib: bad size key %q", sizeKey)
		}
		for _, ej := range list {
			t, err := l.codec.ReadMetadata(ej.T)
			if err != nil {
				return nil, fmt.Errorf("types: decode lib: %w", err)
			}
			if _, err := l.addN(t, ej.C); err != nil {
				return nil, err
			}
		}
	}
	return l, nil
}
