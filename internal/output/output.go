// Package output writes recovar analysis results to files.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"recovar/internal/recfmt"
)

// WriteStatsJSON writes corpus statistics to stats.json.
func WriteStatsJSON(dir string, stats any) error {
	return writeJSON(filepath.Join(dir, "stats.json"), stats)
}

// WriteTypesJSON writes a type library to types.json.
func WriteTypesJSON(dir string, lib json.Marshaler) error {
	return writeJSON(filepath.Join(dir, "types.json"), lib)
}

// WriteDOT writes a rendered graph to <name>.dot.
// name may contain path separators for directory grouping.
func WriteDOT(dir, name, dot string) error {
	path := filepath.Join(dir, name+".dot")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir: %w", err)
	}
	if err := os.WriteFile(path, []byte(dot), 0644); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return nil
}

// WriteDiagsJSONL writes one diagnostic per line to diags.jsonl.
func WriteDiagsJSONL(dir string, diags []recfmt.Diag) error {
	path := filepath.Join(dir, "diags.jsonl")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	for _, d := range diags {
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("output: encode %s: %w", path, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("output: flush %s: %w", path, err)
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}
