package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/remedy/internal/agent/qa"
)

func validateCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [events.jsonl]...",
		Short: "Check recorded `ask` output against the report contract",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				s, err := qa.ValidateEventsFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s events=%d errors=%d complete=%t degraded=%t\n",
					path, s.Events, s.Errors, s.Complete, s.Degraded)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed validation", failed, len(args))
			}
			return nil
		},
	}
}
