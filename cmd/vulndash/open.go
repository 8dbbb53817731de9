package main

import (
	"github.com/spf13/cobra"

	"github.com/vulndash/vulndash/pkg/tui"
)

var openCmd = &cobra.Command{
	Use:   "open [route]",
	Short: "Open the dashboard on a route",
	Long: `Open the dashboard on one of its routes:

  /projects                                 project list
  /projects/new                             create a project
  /projects/<project-id>                    findings of a project
  /projects/<project-id>/error/<vuln-id>    one finding

A bare project id is accepted as shorthand for /projects/<project-id>.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := tui.ProjectsPath
		if len(args) > 0 {
			path = routeArg(args[0])
		}
		return runDashboard(path)
	},
}

// routeArg turns a bare project id into its route
func routeArg(arg string) string {
	if arg == "" || arg[0] == '/' {
		return arg
	}
	return tui.ProjectRoute(arg).Path()
}

func init() {
	rootCmd.AddCommand(openCmd)
}
