package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "List recipes whose name contains term",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			term := strings.Join(args, " ")
			found := s.newEngine().Search(term)
			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintf(out, "No recipes match %q.\n", term)
				return nil
			}
			for _, def := range found {
				fmt.Fprintf(out, "%5d  %s\n", def.ID, def.Name)
			}
			return nil
		},
	}
}
