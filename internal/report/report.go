// Package report renders scan results as JSON, SARIF and plain text.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/codescan-sec/codescan/pkg/shared/types"
)

const toolName = "codescan"

// WriteJSON writes the result's canonical JSON form to a file.
func WriteJSON(result *types.ScanResult, outputPath string) error {
	data, err := result.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize scan result: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report %q: %w", outputPath, err)
	}
	return nil
}

// WriteSARIF writes the result as a SARIF 2.1.0 document.
func WriteSARIF(result *types.ScanResult, outputPath string) error {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, "https://github.com/codescan-sec/codescan")
	for i, issue := range result.Issues {
		ruleID := issue.CWEID
		if ruleID == "" {
			ruleID = fmt.Sprintf("%s-finding-%d", toolName, i+1)
		}

		rule := run.AddRule(ruleID).
			WithDescription(issue.Description).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{
				Level: toSarifLevel(issue.Severity),
			})

		line := 0
		if issue.LineNumber != nil {
			line = *issue.LineNumber
		}
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(issue.FilePath)).
				WithRegion(sarif.NewRegion().WithStartLine(line)),
		)

		message := issue.Description
		if issue.Recommendation != "" {
			message = message + "\n\n" + issue.Recommendation
		}
		run.AddResult(sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(message)).
			WithLevel(toSarifLevel(issue.Severity)).
			WithLocations([]*sarif.Location{location}))
	}
	doc.AddRun(run)

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write report %q: %w", outputPath, err)
	}
	defer func() { _ = file.Close() }()

	return doc.PrettyWrite(file)
}

// RenderText produces a human-readable summary of the result, grouped by
// file and ordered by line.
func RenderText(result *types.ScanResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Scan report %s\n", result.ScanID)
	fmt.Fprintf(&b, "Path:      %s\n", result.ScanPath)
	fmt.Fprintf(&b, "Scan type: %s\n", result.ScanType)
	fmt.Fprintf(&b, "Scanned:   %s\n", time.Unix(result.Timestamp, 0).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Files:     %d\n", result.Stats.TotalFiles)
	fmt.Fprintf(&b, "Lines:     %d\n", result.Stats.TotalLines)
	if result.Stats.Error != "" {
		fmt.Fprintf(&b, "Error:     %s\n", result.Stats.Error)
	}
	b.WriteString("\n")

	counts := result.IssuesBySeverity()
	fmt.Fprintf(&b, "Findings: %d total", result.TotalIssues())
	var parts []string
	for _, severity := range types.Severities {
		if counts[severity] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[severity], severity))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n\n")

	byFile := make(map[string][]types.VulnerabilityIssue)
	for _, issue := range result.Issues {
		byFile[issue.FilePath] = append(byFile[issue.FilePath], issue)
	}
	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		issues := byFile[file]
		sort.SliceStable(issues, func(i, j int) bool {
			return lineOf(issues[i]) < lineOf(issues[j])
		})

		fmt.Fprintf(&b, "%s\n", file)
		for _, issue := range issues {
			writeIssue(&b, issue)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// DefaultFilename derives a report file name from the scanned path and the
// current time.
func DefaultFilename(scanPath, extension string) string {
	base := filepath.Base(scanPath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	stamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s.%s", toolName, base, stamp, extension)
}

func writeIssue(b *strings.Builder, issue types.VulnerabilityIssue) {
	position := "-"
	if issue.LineNumber != nil {
		position = fmt.Sprintf("line %d", *issue.LineNumber)
	}
	fmt.Fprintf(b, "  [%s] %s (%s, confidence %s)\n", strings.ToUpper(issue.Severity), issue.Description, position, issue.Confidence)
	if issue.Recommendation != "" {
		fmt.Fprintf(b, "      fix: %s\n", issue.Recommendation)
	}
}

func lineOf(issue types.VulnerabilityIssue) int {
	if issue.LineNumber == nil {
		return 0
	}
	return *issue.LineNumber
}

func toSarifLevel(severity string) string {
	switch severity {
	case types.SeverityCritical, types.SeverityHigh:
		return "error"
	case types.SeverityMedium:
		return "warning"
	case types.SeverityLow:
		return "note"
	default:
		return "none"
	}
}
