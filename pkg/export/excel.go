package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/vulndash/vulndash/pkg/vuln"
)

const (
	findingsSheet = "Vulnerabilities"
	summarySheet  = "Summary"
)

var excelColumns = []string{"ID", "Label", "CVE", "CWE", "Severity", "Status", "Vulnerability", "File", "Details", "Last test"}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// WriteExcel writes a workbook with one row per finding and a severity
// summary sheet
func WriteExcel(w io.Writer, projectName string, items []vuln.Vulnerability) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", findingsSheet); err != nil {
		return fmt.Errorf("error naming sheet: %w", err)
	}
	for i, header := range excelColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		file.SetCellValue(findingsSheet, cell, header)
	}

	counts := map[vuln.Severity]int{}
	for i, v := range items {
		counts[v.Severity]++
		rowData := []interface{}{
			v.ID,
			v.Label(),
			deref(v.CVE),
			deref(v.CWE),
			string(v.Severity),
			string(v.Status),
			v.Title,
			v.FileKey,
			v.Details,
			TestSummary(v.LastTest),
		}
		// excel is 1 indexed and row 1 holds the headers
		if err := file.SetSheetRow(findingsSheet, fmt.Sprintf("A%d", i+2), &rowData); err != nil {
			return fmt.Errorf("error writing row %d: %w", i+2, err)
		}
	}

	if _, err := file.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating summary sheet: %w", err)
	}
	file.SetCellValue(summarySheet, "A1", "Project")
	file.SetCellValue(summarySheet, "B1", projectName)
	file.SetCellValue(summarySheet, "A2", "Total")
	file.SetCellValue(summarySheet, "B2", len(items))
	for i, sev := range vuln.Severities {
		row := i + 3
		file.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), string(sev))
		file.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), counts[sev])
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
