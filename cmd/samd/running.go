package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

func newRunningCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "running",
		Short: "List currently running application instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := callRPC(cmd.Context(), "running", nil)
			if err != nil {
				return fmt.Errorf("running: %w", err)
			}

			instances, _ := result["running"].([]any)

			headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
			columnFmt := color.New(color.FgYellow).SprintfFunc()
			tbl := table.New("App ID", "Process ID")
			tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)

			for _, raw := range instances {
				m, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				tbl.AddRow(m["id"], m["processid"])
			}
			tbl.Print()
			return nil
		},
	}
}
