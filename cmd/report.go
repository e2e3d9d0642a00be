package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codescan-sec/codescan/internal/report"
	"github.com/codescan-sec/codescan/pkg/shared/files"
	"github.com/codescan-sec/codescan/pkg/shared/types"
)

var (
	reportFormat string
	reportOutput string

	exampleReportUsage = `  # Re-render a saved JSON report as SARIF
  codescan report render --format sarif codescan_project_20260830_120000.json

  # Print a saved JSON report as text
  codescan report render --format text codescan_project_20260830_120000.json

  # Show which findings appeared or disappeared between two scans
  codescan report diff baseline.json current.json`
)

var reportCmd = &cobra.Command{
	Use:                   "report [command]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleReportUsage,
	Short:                 "Works with saved scan reports",
}

var reportRenderCmd = &cobra.Command{
	Use:                   "render [--format/-f sarif|text] [--output/-o PATH] REPORT_JSON",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Re-renders a saved JSON report in another format",
	Args:                  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := loadScanResult(args[0])
		if err != nil {
			return err
		}

		switch reportFormat {
		case "text":
			if reportOutput == "" {
				fmt.Print(report.RenderText(result))
				return nil
			}
			return files.WriteDataFile(reportOutput, []byte(report.RenderText(result)))
		case "sarif":
			output := reportOutput
			if output == "" {
				output = strings.TrimSuffix(args[0], ".json") + ".sarif"
			}
			if err := report.WriteSARIF(result, output); err != nil {
				return err
			}
			fmt.Printf("Report saved to %s\n", output)
			return nil
		default:
			return fmt.Errorf("unknown report format: %v", reportFormat)
		}
	},
}

var reportDiffCmd = &cobra.Command{
	Use:                   "diff BASELINE_JSON CURRENT_JSON",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Compares two saved reports and shows new and resolved findings",
	Args:                  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseline, err := loadScanResult(args[0])
		if err != nil {
			return err
		}
		current, err := loadScanResult(args[1])
		if err != nil {
			return err
		}

		cmp := report.Compare(baseline, current)
		fmt.Print(report.RenderComparison(baseline, current, cmp))
		return nil
	},
}

func init() {
	reportRenderCmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "output format: sarif or text")
	reportRenderCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "output file path")

	reportCmd.AddCommand(reportRenderCmd)
	reportCmd.AddCommand(reportDiffCmd)
	rootCmd.AddCommand(reportCmd)
}

func loadScanResult(path string) (*types.ScanResult, error) {
	expanded, err := files.ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand path %q: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %q: %w", expanded, err)
	}
	result, err := types.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report %q: %w", expanded, err)
	}
	return result, nil
}
