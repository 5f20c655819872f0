package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-guido/pkg/command"
)

func newClassifyCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "classify <utterance...>",
		Short: "Show how an utterance would be understood",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := command.ModeActive
			switch mode {
			case "active":
			case "dormant":
				m = command.ModeDormant
			default:
				return fmt.Errorf("unknown mode %q: use active or dormant", mode)
			}

			c := command.Classify(strings.Join(args, " "), m)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "kind: %s\n", c.Kind)
			if c.Kind == command.ToolRequest {
				fmt.Fprintf(out, "tool: %s\n", valueOrNone(c.Tool))
			}
			if c.Kind == command.Guidance {
				fmt.Fprintf(out, "topic: %s\n", c.Topic)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "active", "classifier mode: active or dormant")
	return cmd
}

func valueOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
