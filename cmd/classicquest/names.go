package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kingrea/classic-quest/internal/wowhead"
)

func newNamesCmd(opts *globalOptions) *cobra.Command {
	var in, out, column string
	cmd := &cobra.Command{
		Use:   "names",
		Short: "Append wiki spell names to a CSV with a SpellID column",
		Long: `names reads a CSV containing a SpellID column, looks every spell up on the
wiki one at a time, and writes a copy with an extra name column. Spells that
cannot be resolved are written as "` + wowhead.NotFoundName + `".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			src, err := os.Open(in)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer src.Close()
			dst, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}

			progress := cmd.ErrOrStderr()
			err = wowhead.AnnotateCSV(cmd.Context(), s.client, src, dst, wowhead.AnnotateOptions{
				Column: column,
				Progress: func(done, total, spellID int, name string, err error) {
					if err != nil {
						s.logger.Warnf("spell %d: %v", spellID, err)
					}
					fmt.Fprintf(progress, "[%d/%d] %d → %s\n", done, total, spellID, name)
				},
			})
			if closeErr := dst.Close(); err == nil && closeErr != nil {
				err = fmt.Errorf("write output: %w", closeErr)
			}
			if err != nil {
				return err
			}
			s.book.Info("Annotated spell names from %s into %s", in, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "input CSV with a SpellID column")
	cmd.Flags().StringVar(&out, "out", "", "output CSV path")
	cmd.Flags().StringVar(&column, "column", wowhead.DefaultNameColumn, "header of the appended name column")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
