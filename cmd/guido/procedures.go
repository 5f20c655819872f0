package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-guido/pkg/procedure"
)

func newProceduresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "procedures [key]",
		Short: "List maintenance procedures or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := procedure.Default()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				for _, p := range lib.All() {
					fmt.Fprintf(out, "%-12s %s (%d steps)\n", p.Key, p.Title, len(p.Steps))
				}
				return nil
			}

			p, ok := lib.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown procedure %q (have %s)", args[0], strings.Join(lib.Keys(), ", "))
			}
			fmt.Fprintln(out, p.Title)
			fmt.Fprintf(out, "Tools: %s\n", strings.Join(p.ToolsNeeded, ", "))
			for i, step := range p.Steps {
				fmt.Fprintf(out, "%2d. %s\n", i+1, step)
			}
			return nil
		},
	}
}
