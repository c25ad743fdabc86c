package corpus

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"recovar/internal/function"
	"recovar/internal/recfmt"
	"recovar/internal/types"
)

// Corpus is a decoded corpus file.
type Corpus struct {
	Functions []*function.CollectedFunction
	// Lines holds the 1-based source line of each entry in Functions.
	Lines []int
	Diags recfmt.Diags
	// Skipped aggregates the errors of records dropped in best-effort mode.
	Skipped error
}

// Len returns the number of decoded functions.
func (c *Corpus) Len() int { return len(c.Functions) }

// Load reads and decodes the corpus at path.
func Load(ctx context.Context, path string, opts recfmt.Options, codec *types.Codec) (*Corpus, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Decode(ctx, rc, opts, codec)
}

type decoded struct {
	line int
	cf   *function.CollectedFunction
}

// Decode reads JSON Lines from r and decodes records in parallel. The result
// keeps input order. In strict mode the first malformed record aborts the
// load; in best-effort mode it is skipped and reported in Diags and Skipped.
// Blank lines are ignored.
func Decode(ctx context.Context, r io.Reader, opts recfmt.Options, codec *types.Codec) (*Corpus, error) {
	if codec == nil {
		codec = types.Default
	}
	decOpts := function.DecodeOptions{LegacyRawCode: opts.LegacyRawCode}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.EffectiveWorkers())

	var (
		mu      sync.Mutex
		out     []decoded
		diags   recfmt.Diags
		skipped *multierror.Error
	)

	br := bufio.NewReaderSize(r, 1<<20)
	line, records := 0, 0
	var readErr error
	for {
		if gctx.Err() != nil {
			break
		}
		raw, err := br.ReadBytes('\n')
		if len(raw) > 0 {
			line++
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 {
			if opts.MaxRecords > 0 && records >= opts.MaxRecords {
				diags.Addf(line, recfmt.DiagTruncated, "stopped after %d records", records)
				break
			}
			records++
			n := line
			g.Go(func() error {
				cf, derr := function.CollectedFromJSON(raw, codec, decOpts)
				mu.Lock()
				defer mu.Unlock()
				if derr != nil {
					if opts.Mode == recfmt.ModeStrict {
						return fmt.Errorf("corpus: line %d: %w", n, derr)
					}
					diags.Add(n, recfmt.DiagMalformed, derr.Error())
					skipped = multierror.Append(skipped, fmt.Errorf("line %d: %w", n, derr))
					return nil
				}
				out = append(out, decoded{line: n, cf: cf})
				return nil
			})
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = fmt.Errorf("corpus: read line %d: %w", line+1, err)
			}
			break
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}

	sort.Slice(out, func(i, j int) bool { return out[i].line < out[j].line })
	c := &Corpus{
		Functions: make([]*function.CollectedFunction, len(out)),
		Lines:     make([]int, len(out)),
	}
	for i, d := range out {
		c.Functions[i] = d.cf
		c.Lines[i] = d.line
	}
	diags.Sort()
	c.Diags = diags
	if skipped != nil {
		c.Skipped = skipped.ErrorOrNil()
	}
	return c, nil
}
