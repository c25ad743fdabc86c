package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recovar/internal/ast"
	"recovar/internal/function"
	"recovar/internal/location"
	"recovar/internal/recfmt"
	"recovar/internal/types"
	"recovar/internal/variable"
)

var (
	intT = types.Scalar{Name: "int", ByteSize: 4}
	rdi  = location.Register{Name: "rdi"}
	stk  = location.Stack{Offset: -16}
)

func view(t *testing.T, name string, user bool, calls ...string) *function.Function {
	t.Helper()
	args, err := variable.NewSet(nil, variable.Variable{Type: intT, Name: "n", User: user})
	require.NoError(t, err)
	locals, err := variable.NewSet(nil, variable.Variable{Type: types.Pointer{TargetType: "char"}, Name: "p", User: user})
	require.NoError(t, err)

	root := &ast.Node{Kind: "block"}
	for _, c := range calls {
		root.Children = append(root.Children, &ast.Node{Kind: ast.KindCall, Children: []*ast.Node{{Kind: "obj", Name: c}}})
	}
	f, err := function.New(function.Params{
		Name:       name,
		ReturnType: intT,
		Arguments:  map[location.Location]*variable.Set{rdi: args},
		LocalVars:  map[location.Location]*variable.Set{stk: locals},
		AST:        &ast.AST{Root: root},
	})
	require.NoError(t, err)
	return f
}

func collected(t *testing.T, ea uint64, name string, user bool, calls ...string) *function.CollectedFunction {
	t.Helper()
	cf, err := function.NewCollected(ea, view(t, name, user, calls...), view(t, "sub_"+name, false, calls...))
	require.NoError(t, err)
	return cf
}

func sample(t *testing.T) []*function.CollectedFunction {
	return []*function.CollectedFunction{
		collected(t, 0x1000, "main", true, "parse", "free"),
		collected(t, 0x2000, "parse", true, "malloc"),
		collected(t, 0x3000, "anon", false),
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	fns := sample(t)
	for _, name := range []string{"corpus.jsonl", "corpus.jsonl.gz", "corpus.jsonl.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteFile(path, fns, nil))

			c, err := Load(context.Background(), path, recfmt.Options{Workers: 2}, types.NewCodec(32))
			require.NoError(t, err)
			require.Equal(t, len(fns), c.Len())
			assert.Equal(t, []int{1, 2, 3}, c.Lines)
			assert.Equal(t, 0, c.Diags.Len())
			assert.NoError(t, c.Skipped)
			for i := range fns {
				assert.True(t, fns[i].Equal(c.Functions[i]), "record %d", i)
			}
		})
	}
}

func TestCompressedFilesAreCompressed(t *testing.T) {
	dir := t.TempDir()
	gz := filepath.Join(dir, "c.jsonl.gz")
	require.NoError(t, WriteFile(gz, sample(t), nil))

	data, err := os.ReadFile(gz)
	require.NoError(t, err)
	require.Greater(t, len(data), 2)
	assert.Equal(t, []byte{0x1f, 0x8b}, data[:2])
}

func TestCompressionFor(t *testing.T) {
	assert.Equal(t, CompressNone, CompressionFor("a.jsonl"))
	assert.Equal(t, CompressGzip, CompressionFor("a.jsonl.gz"))
	assert.Equal(t, CompressZstd, CompressionFor("a.jsonl.zst"))
	assert.Equal(t, CompressZstd, CompressionFor("a.zstd"))
}

func encodeLines(t *testing.T, fns []*function.CollectedFunction) []string {
	t.Helper()
	var sb strings.Builder
	w := NewWriter(nopCloser{&sb}, nil)
	for _, cf := range fns {
		require.NoError(t, w.Write(cf))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, len(fns), w.Count())
	return strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n")
}

type nopCloser struct{ *strings.Builder }

func (nopCloser) Close() error { return nil }

func TestDecodeSkipsBlankLines(t *testing.T) {
	lines := encodeLines(t, sample(t))
	in := "\n" + lines[0] + "\n\n   \n" + lines[1] + "\n" + lines[2]

	c, err := Decode(context.Background(), strings.NewReader(in), recfmt.Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, []int{2, 5, 6}, c.Lines)
	assert.Equal(t, "main", c.Functions[0].Name)
	assert.Equal(t, "anon", c.Functions[2].Name)
}

func TestDecodeStrictFailsOnMalformed(t *testing.T) {
	lines := encodeLines(t, sample(t))
	in := lines[0] + "\n{\"e\":1}\n" + lines[1] + "\n"

	c, err := Decode(context.Background(), strings.NewReader(in), recfmt.Options{Mode: recfmt.ModeStrict}, nil)
	assert.Nil(t, c)
	require.Error(t, err)
	assert.ErrorIs(t, err, function.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "line 2")
}

func TestDecodeBestEffortSkipsMalformed(t *testing.T) {
	lines := encodeLines(t, sample(t))
	in := lines[0] + "\nnot json\n" + lines[1] + "\n{\"e\":1}\n" + lines[2] + "\n"

	c, err := Decode(context.Background(), strings.NewReader(in), recfmt.Options{Mode: recfmt.ModeBestEffort}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []int{1, 3, 5}, c.Lines)
	assert.Equal(t, 2, c.Diags.Count(recfmt.DiagMalformed))
	assert.Equal(t, 2, c.Diags.Items()[0].Line)
	assert.Equal(t, 4, c.Diags.Items()[1].Line)

	require.Error(t, c.Skipped)
	var merr *multierror.Error
	require.True(t, errors.As(c.Skipped, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.ErrorIs(t, c.Skipped, function.ErrMalformedRecord)
}

func TestDecodeMaxRecords(t *testing.T) {
	lines := encodeLines(t, sample(t))
	in := strings.Join(lines, "\n")

	c, err := Decode(context.Background(), strings.NewReader(in), recfmt.Options{MaxRecords: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, c.Diags.Count(recfmt.DiagTruncated))
}

func TestDecodeCanceled(t *testing.T) {
	lines := encodeLines(t, sample(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Decode(ctx, strings.NewReader(strings.Join(lines, "\n")), recfmt.Options{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.jsonl"), recfmt.Options{}, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadBadGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl.gz")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))
	_, err := Load(context.Background(), path, recfmt.Options{}, nil)
	assert.Error(t, err)
}

func TestFilterUserNames(t *testing.T) {
	fns := sample(t)
	kept, dropped := FilterUserNames(fns)
	assert.Equal(t, []int{2}, dropped)
	require.Len(t, kept, 2)
	assert.Equal(t, "main", kept[0].Name)
	assert.Equal(t, "parse", kept[1].Name)
	assert.Len(t, fns, 3)
}

func TestDedup(t *testing.T) {
	fns := sample(t)
	// Same content at a different address.
	fns = append(fns, collected(t, 0x9000, "parse", true, "malloc"))
	// Same address, different content.
	fns = append(fns, collected(t, 0x2000, "parse", true, "calloc"))

	kept, dups, err := Dedup(fns, nil)
	require.NoError(t, err)
	assert.Len(t, kept, 4)
	assert.Equal(t, map[int]int{3: 1}, dups)

	h1, err := ContentHash(fns[1], nil)
	require.NoError(t, err)
	h3, err := ContentHash(fns[3], nil)
	require.NoError(t, err)
	h4, err := ContentHash(fns[4], nil)
	require.NoError(t, err)
	assert.Equal(t, h1, h3)
	assert.NotEqual(t, h1, h4)
}

func TestFilter(t *testing.T) {
	fns := append(sample(t),
		collected(t, 0x9000, "parse", true, "malloc"),
		collected(t, 0xa000, "anon2", false),
	)
	c := &Corpus{Functions: fns, Lines: []int{1, 2, 4, 5, 6}}
	c.Diags.Add(3, recfmt.DiagMalformed, "bad record")

	out, err := Filter(c, FilterOptions{UserNames: true, Dedup: true}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, []int{1, 2}, out.Lines)
	assert.Equal(t, "main", out.Functions[0].Name)
	assert.Equal(t, "parse", out.Functions[1].Name)

	assert.Equal(t, []recfmt.Diag{
		{Line: 3, Kind: recfmt.DiagMalformed, Msg: "bad record"},
		{Line: 4, EA: 0x3000, Kind: recfmt.DiagNoUserNames, Msg: "anon"},
		{Line: 5, EA: 0x9000, Kind: recfmt.DiagDuplicate, Msg: "parse repeats ea 0x2000 (line 2)"},
		{Line: 6, EA: 0xa000, Kind: recfmt.DiagNoUserNames, Msg: "anon2"},
	}, out.Diags.Items())
	assert.Equal(t, 1, c.Diags.Len())
	assert.Len(t, c.Functions, 5)

	out, err = Filter(c, FilterOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Len())
	assert.Equal(t, 1, out.Diags.Len())
}

func TestCollectStats(t *testing.T) {
	fns := sample(t)
	c := &Corpus{Functions: fns, Lines: []int{1, 2, 3}}
	s, err := Collect(c, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Functions)
	assert.Equal(t, 2, s.WithUserNames)
	assert.Equal(t, 6, s.DebugVariables)
	assert.Equal(t, 6, s.DecompVariables)
	assert.Equal(t, 4, s.UserVariables)
	assert.Equal(t, 12, s.Locations)
	assert.Equal(t, 6, s.StackLocations)
	assert.Equal(t, 6, s.RegisterLocations)
	assert.Empty(t, s.UnknownRegisters)
	assert.Equal(t, 2, s.Types.Len())
	assert.Equal(t, []int{4, 8}, s.Types.Sizes())
	// block + 2 calls of 2 nodes, block + 1 call, block; twice each.
	assert.Equal(t, 2*(5+3+1), s.ASTNodes)
	assert.Equal(t, 0, c.Diags.Len())
}

func TestCollectUnknownRegisters(t *testing.T) {
	odd := location.Register{Name: "zz9"}
	args, err := variable.NewSet(nil, variable.Variable{Type: intT, Name: "a", User: true})
	require.NoError(t, err)
	mk := func(name string) *function.Function {
		f, err := function.New(function.Params{
			Name:       name,
			ReturnType: types.Void{},
			Arguments:  map[location.Location]*variable.Set{odd: args},
		})
		require.NoError(t, err)
		return f
	}
	a, err := function.NewCollected(0x10, mk("a"), mk("a"))
	require.NoError(t, err)
	b, err := function.NewCollected(0x20, mk("b"), mk("b"))
	require.NoError(t, err)

	c := &Corpus{Functions: []*function.CollectedFunction{a, b}, Lines: []int{1, 2}}
	s, err := Collect(c, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"zz9": 4}, s.UnknownRegisters)
	assert.Equal(t, []string{"zz9"}, s.UnknownRegisterNames())

	// Reported once, against the first function that used it.
	require.Equal(t, 1, c.Diags.Count(recfmt.DiagUnknownRegister))
	d := c.Diags.Items()[0]
	assert.Equal(t, uint64(0x10), d.EA)
	assert.Equal(t, 1, d.Line)
}
