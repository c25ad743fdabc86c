package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"recovar/internal/config"
	"recovar/internal/corpus"
	"recovar/internal/logging"
	"recovar/internal/recfmt"
	"recovar/internal/types"
)

// app carries state shared by subcommands after the root pre-run.
type app struct {
	configPath string
	logLevel   string
	logPretty  bool
	workers    int

	cfg   *config.Config
	log   zerolog.Logger
	codec *types.Codec
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "recovar",
		Short: "recovar - inspect corpora of decompiled functions",
		Long: `Read, validate, filter and graph corpora of collected functions.

Each corpus line pairs the debug-info view and the decompiler view of one
function. Files ending in .gz or .zst are decompressed on the fly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Flags())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.BoolVar(&a.logPretty, "log-pretty", true, "human-readable log output")
	pf.IntVar(&a.workers, "workers", 0, "decode goroutines (0 = GOMAXPROCS)")

	root.AddCommand(newStatsCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newFilterCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newGraphCmd(a))
	return root
}

// setup loads the config file, then applies flags the user set explicitly.
func (a *app) setup(flags *pflag.FlagSet) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-pretty") {
		cfg.Log.Pretty = a.logPretty
	}
	if flags.Changed("workers") {
		cfg.Load.Workers = a.workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.NewWithComponent(cfg.Logging(), "recovar")
	a.codec = types.NewCodec(types.DefaultCacheSize)
	return nil
}

// load reads a corpus with the configured options, logging a summary.
func (a *app) load(ctx context.Context, path string, opts recfmt.Options) (*corpus.Corpus, error) {
	start := time.Now()
	c, err := corpus.Load(ctx, path, opts, a.codec)
	if err != nil {
		return nil, err
	}
	ev := a.log.Info().
		Str("path", path).
		Str("mode", opts.Mode.String()).
		Int("functions", c.Len()).
		Int("diags", c.Diags.Len()).
		Dur("elapsed", time.Since(start))
	if fi, err := os.Stat(path); err == nil {
		ev = ev.Str("size", humanize.Bytes(uint64(fi.Size())))
	}
	ev.Msg("loaded corpus")
	if c.Skipped != nil {
		a.log.Warn().Err(c.Skipped).Msg("skipped malformed records")
	}
	return c, nil
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}
