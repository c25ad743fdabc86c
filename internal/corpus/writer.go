package corpus

import (
	"encoding/json"
	"fmt"
	"io"

	"recovar/internal/function"
	"recovar/internal/types"
)

// Writer writes collected functions as JSON Lines.
type Writer struct {
	w     io.WriteCloser
	enc   *json.Encoder
	codec *types.Codec
	n     int
}

// Create creates a corpus file at path. A .gz or .zst extension selects compression.
func Create(path string, codec *types.Codec) (*Writer, error) {
	w, err := create(path)
	if err != nil {
		return nil, err
	}
	return NewWriter(w, codec), nil
}

// NewWriter writes records to w. Close closes w.
func NewWriter(w io.WriteCloser, codec *types.Codec) *Writer {
	if codec == nil {
		codec = types.Default
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{w: w, enc: enc, codec: codec}
}

// Write appends one record.
func (w *Writer) Write(cf *function.CollectedFunction) error {
	rec, err := cf.ToJSON(w.codec)
	if err != nil {
		return fmt.Errorf("corpus: encode: %w", err)
	}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("corpus: write ea 0x%x: %w", cf.EA, err)
	}
	w.n++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int { return w.n }

func (w *Writer) Close() error {
	return w.w.Close()
}

// WriteFile writes fns to path in order.
func WriteFile(path string, fns []*function.CollectedFunction, codec *types.Codec) error {
	w, err := Create(path, codec)
	if err != nil {
		return err
	}
	for _, cf := range fns {
		if err := w.Write(cf); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
