package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recovar/internal/recfmt"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	opts := cfg.Options()
	assert.Equal(t, recfmt.ModeBestEffort, opts.Mode)
	assert.Equal(t, 0, opts.Workers)
	assert.False(t, opts.LegacyRawCode)
	assert.Equal(t, "info", cfg.Logging().Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recovar.yaml")
	doc := `
load:
  mode: strict
  workers: 4
  legacy_raw_code: true
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	opts := cfg.Options()
	assert.Equal(t, recfmt.ModeStrict, opts.Mode)
	assert.Equal(t, 4, opts.Workers)
	assert.True(t, opts.LegacyRawCode)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset fields keep their defaults.
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, 0, cfg.Load.MaxRecords)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown mode", "load: {mode: lenient}"},
		{"negative workers", "load: {workers: -1}"},
		{"negative max records", "load: {max_records: -5}"},
		{"unknown level", "log: {level: loud}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Parse([]byte(tt.doc), Default())
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseMalformedYAML(t *testing.T) {
	err := Parse([]byte("load: [unclosed"), Default())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}
