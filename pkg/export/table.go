package export

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/vulndash/vulndash/pkg/vuln"
)

// TableOptions tunes WriteTable
type TableOptions struct {
	// MaxWidth caps each column; 0 picks a default
	MaxWidth int
	// ShowIDs adds the id column
	ShowIDs bool
}

var severityPainters = map[vuln.Severity]*color.Color{
	vuln.SeverityCritical: color.New(color.FgRed, color.Bold),
	vuln.SeverityHigh:     color.New(color.FgHiRed),
	vuln.SeverityMedium:   color.New(color.FgYellow),
	vuln.SeverityLow:      color.New(color.FgGreen),
}

func paintSeverity(s vuln.Severity) string {
	label := string(s)
	if label == "" {
		label = "unknown"
	}
	if p, ok := severityPainters[s]; ok {
		return p.Sprint(label)
	}
	return label
}

func paintStatus(s vuln.Status) string {
	switch {
	case s == vuln.StatusFailed:
		return color.RedString(string(s))
	case s == vuln.StatusCompleted || s == vuln.StatusFinished:
		return color.GreenString(string(s))
	case s.InProgress():
		return color.CyanString(string(s))
	}
	return string(s)
}

// WriteTable renders findings as a bordered table with colored severities
func WriteTable(w io.Writer, items []vuln.Vulnerability, opts TableOptions) error {
	if len(items) == 0 {
		_, err := fmt.Fprint(w, color.GreenString("No vulnerabilities!\n"))
		return err
	}

	maxWidth := opts.MaxWidth
	if maxWidth <= 0 {
		maxWidth = 40
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.Off}},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting:   tw.CellFormatting{AutoWrap: tw.WrapTruncate},
				Alignment:    tw.CellAlignment{Global: tw.AlignLeft},
				ColMaxWidths: tw.CellWidth{Global: maxWidth},
			},
		}),
	)

	header := columns
	if !opts.ShowIDs {
		header = columns[1:]
	}
	table.Header(header)

	for _, v := range items {
		r := row(v)
		r[2] = paintSeverity(v.Severity)
		r[3] = paintStatus(v.Status)
		if !opts.ShowIDs {
			r = r[1:]
		}
		if err := table.Append(r); err != nil {
			return err
		}
	}
	return table.Render()
}
