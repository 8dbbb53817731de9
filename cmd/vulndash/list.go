package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vulndash/vulndash/pkg/export"
	"github.com/vulndash/vulndash/pkg/state"
	"github.com/vulndash/vulndash/pkg/tui"
	"github.com/vulndash/vulndash/pkg/vuln"
)

var (
	listSeverities []string
	listStatuses   []string
	listIDs        bool
	listChart      bool
)

var listCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "List projects, or the findings of one project",
	Example: `  vulndash list
  vulndash list 6650c1 --severity critical,high
  vulndash list 6650c1 --status not_started --ids`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if len(args) == 0 {
			projects, err := client.ListProjects(ctx)
			if err != nil {
				return err
			}
			return writeProjects(projects)
		}

		project, err := client.GetProject(ctx, args[0])
		if err != nil {
			return err
		}

		filter := state.Filter{}.WithSeverities(listSeverities).WithStatuses(listStatuses)
		all := project.Sorted()
		items := state.Apply(filter, all)

		term := tui.GetTerminalInfo()
		fmt.Printf("%s (%d of %d findings)\n\n", color.New(color.Bold).Sprint(project.Name), len(items), len(all))
		if listChart {
			fmt.Println(tui.SeverityChart(state.CountBySeverity(items), term.Width))
			fmt.Println()
		}

		cols := 6
		if listIDs {
			cols++
		}
		return export.WriteTable(os.Stdout, items, export.TableOptions{
			MaxWidth: term.ColumnWidth(cols),
			ShowIDs:  listIDs,
		})
	},
}

func writeProjects(projects []vuln.ProjectSummary) error {
	if len(projects) == 0 {
		fmt.Println("No projects yet. Create one with 'vulndash create'.")
		return nil
	}
	table := tablewriter.NewTable(os.Stdout)
	table.Header([]string{"ID", "Name"})
	for _, p := range projects {
		if err := table.Append([]string{p.ID, p.Name}); err != nil {
			return err
		}
	}
	return table.Render()
}

func init() {
	listCmd.Flags().StringSliceVarP(&listSeverities, "severity", "s", nil, "Only show these severities (critical,high,medium,low)")
	listCmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Only show these statuses")
	listCmd.Flags().BoolVar(&listIDs, "ids", false, "Show vulnerability ids")
	listCmd.Flags().BoolVar(&listChart, "chart", true, "Show the severity summary")
	rootCmd.AddCommand(listCmd)
}
