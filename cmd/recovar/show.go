package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"recovar/internal/types"
)

func newShowCmd(a *app) *cobra.Command {
	var inPath, eaStr, name string
	var asJSON, showTypes bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the functions at an address or with a name",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag("in", inPath); err != nil {
				return err
			}
			if eaStr == "" && name == "" {
				return fmt.Errorf("--ea or --name is required")
			}
			var ea uint64
			if eaStr != "" {
				v, err := strconv.ParseUint(eaStr, 0, 64)
				if err != nil {
					return fmt.Errorf("--ea: %w", err)
				}
				ea = v
			}
			c, err := a.load(cmd.Context(), inPath, a.cfg.Options())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			found := 0
			for _, cf := range c.Functions {
				if eaStr != "" && cf.EA != ea {
					continue
				}
				if name != "" && cf.Name != name {
					continue
				}
				found++
				if asJSON {
					rec, err := cf.ToJSON(a.codec)
					if err != nil {
						return err
					}
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					if err := enc.Encode(rec); err != nil {
						return err
					}
					continue
				}
				fmt.Fprint(w, cf)
				if showTypes {
					fmt.Fprintf(w, "Return type (debug):\n%s\n", types.Describe(cf.Debug.ReturnType()))
				}
			}
			if found == 0 {
				return fmt.Errorf("no function matches")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "corpus file")
	cmd.Flags().StringVar(&eaStr, "ea", "", "entry address (decimal or 0x hex)")
	cmd.Flags().StringVar(&name, "name", "", "function name in the debug view")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records instead of text")
	cmd.Flags().BoolVar(&showTypes, "types", false, "describe the debug return type")
	return cmd
}
