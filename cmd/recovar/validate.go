package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"recovar/internal/recfmt"
)

var errInvalidCorpus = errors.New("corpus has malformed records")

func newValidateCmd(a *app) *cobra.Command {
	var inPath string
	var strict bool
	var maxDiags int
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that every record in a corpus decodes",
		Long: `Decode every record of a corpus and report the ones that fail.

Without --strict all records are checked and each failure is listed; with
--strict the first failure stops the run. Either way a failure makes the
command exit non-zero.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag("in", inPath); err != nil {
				return err
			}
			opts := a.cfg.Options()
			opts.Mode = recfmt.ModeBestEffort
			if strict {
				opts.Mode = recfmt.ModeStrict
			}
			c, err := a.load(cmd.Context(), inPath, opts)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			bad := c.Diags.Count(recfmt.DiagMalformed)
			for i, d := range c.Diags.Items() {
				if maxDiags > 0 && i >= maxDiags {
					fmt.Fprintf(w, "... %d more\n", c.Diags.Len()-i)
					break
				}
				fmt.Fprintln(w, d)
			}
			fmt.Fprintf(w, "%d valid, %d malformed\n", c.Len(), bad)
			if bad > 0 {
				return fmt.Errorf("%w: %d", errInvalidCorpus, bad)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "corpus file")
	cmd.Flags().BoolVar(&strict, "strict", false, "stop at the first malformed record")
	cmd.Flags().IntVar(&maxDiags, "max-diags", 50, "diagnostics to print (0 = all)")
	return cmd
}
