package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recovar/internal/corpus"
	"recovar/internal/output"
	"recovar/internal/recfmt"
)

func newFilterCmd(a *app) *cobra.Command {
	var inPath, outPath, diagsDir string
	var userNames, dedup bool
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Write the functions worth training on to a new corpus",
		Long: `Copy a corpus, keeping only functions whose debug view has at least one
user-named variable. With --dedup, records whose two views repeat an
earlier record are dropped as well. The output extension picks compression.
--diags writes diags.jsonl listing load problems and every dropped record.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag("in", inPath); err != nil {
				return err
			}
			if err := requireFlag("out", outPath); err != nil {
				return err
			}
			c, err := a.load(cmd.Context(), inPath, a.cfg.Options())
			if err != nil {
				return err
			}

			kept, err := corpus.Filter(c, corpus.FilterOptions{UserNames: userNames, Dedup: dedup}, a.codec)
			if err != nil {
				return err
			}
			a.log.Info().
				Int("no_user_names", kept.Diags.Count(recfmt.DiagNoUserNames)).
				Int("duplicates", kept.Diags.Count(recfmt.DiagDuplicate)).
				Int("kept", kept.Len()).
				Msg("filtered functions")
			fns := kept.Functions

			if diagsDir != "" {
				if err := os.MkdirAll(diagsDir, 0755); err != nil {
					return fmt.Errorf("mkdir %s: %w", diagsDir, err)
				}
				if err := output.WriteDiagsJSONL(diagsDir, kept.Diags.Items()); err != nil {
					return err
				}
			}

			if err := corpus.WriteFile(outPath, fns, a.codec); err != nil {
				return err
			}
			a.log.Info().Str("path", outPath).Int("functions", len(fns)).Msg("wrote corpus")
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input corpus file")
	cmd.Flags().StringVar(&outPath, "out", "", "output corpus file (.jsonl, .jsonl.gz, .jsonl.zst)")
	cmd.Flags().BoolVar(&userNames, "user-names", true, "keep only functions with user-named variables")
	cmd.Flags().BoolVar(&dedup, "dedup", false, "drop records with repeated content")
	cmd.Flags().StringVar(&diagsDir, "diags", "", "directory for diags.jsonl")
	return cmd
}
