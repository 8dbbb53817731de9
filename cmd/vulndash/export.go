package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/vulndash/vulndash/pkg/export"
	"github.com/vulndash/vulndash/pkg/tui"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Export a project's findings",
	Long: `Export a project's findings as a table, JSON, CSV, an Excel workbook or a
tar.gz bundle holding all of them. Without --format an interactive terminal
is asked to pick one. Use -o - to write to stdout.`,
	Example: `  vulndash export 6650c1 --format xlsx
  vulndash export 6650c1 --format csv -o - | less`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveFormat(cmd.Flags().Changed("format"))
		if err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		project, err := client.GetProject(ctx, args[0])
		if err != nil {
			return err
		}

		output := exportOutput
		if output == "" {
			if format == export.FormatTable {
				output = "-"
			} else {
				output = defaultExportName(project.Name, format, time.Now())
			}
		}

		var w io.Writer = os.Stdout
		if output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("error creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}

		if err := export.Write(w, format, project); err != nil {
			if output != "-" {
				os.Remove(output) // Clean up partial
			}
			return fmt.Errorf("exporting %s: %w", project.Name, err)
		}

		if output != "-" {
			fmt.Printf("✅ Exported %d findings to %s\n", len(project.Vulnerabilities), output)
		}
		return nil
	},
}

func resolveFormat(explicit bool) (export.Format, error) {
	if explicit || !tui.IsInteractive() {
		return export.ParseFormat(exportFormat)
	}

	options := make([]string, len(export.Formats))
	for i, f := range export.Formats {
		options[i] = string(f)
	}
	prompt := &survey.Select{
		Message: "Export format",
		Options: options,
	}

	var selectedIndex int
	if err := survey.AskOne(prompt, &selectedIndex); err != nil {
		return "", fmt.Errorf("selection error: %w", err)
	}
	return export.Formats[selectedIndex], nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// defaultExportName builds "<project>_vulns_<timestamp><ext>"
func defaultExportName(project string, format export.Format, now time.Time) string {
	name := strings.Trim(unsafeName.ReplaceAllString(project, "_"), "_")
	if name == "" {
		name = "project"
	}
	return fmt.Sprintf("%s_vulns_%s%s", name, now.Format("2006-01-02T15-04-05"), format.Extension())
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "table", "Output format: table, json, csv, xlsx, bundle")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (- for stdout)")
	rootCmd.AddCommand(exportCmd)
}
