package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

func newListAppsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-apps",
		Short: "List every installed application in the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := callRPC(cmd.Context(), "listApps", nil)
			if err != nil {
				return fmt.Errorf("listApps: %w", err)
			}

			apps, _ := result["apps"].([]any)

			headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
			columnFmt := color.New(color.FgYellow).SprintfFunc()
			tbl := table.New("App ID", "Title", "Type", "Folder")
			tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)

			for _, raw := range apps {
				m, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				tbl.AddRow(m["id"], m["title"], m["type"], m["folderPath"])
			}
			tbl.Print()
			return nil
		},
	}
}
