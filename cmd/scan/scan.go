package scan

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codescan-sec/codescan/internal/provider"
	"github.com/codescan-sec/codescan/internal/report"
	"github.com/codescan-sec/codescan/internal/scanner"
	"github.com/codescan-sec/codescan/internal/vulndb"
	"github.com/codescan-sec/codescan/pkg/shared/config"
	"github.com/codescan-sec/codescan/pkg/shared/files"
	"github.com/codescan-sec/codescan/pkg/shared/httpclient"
	"github.com/codescan-sec/codescan/pkg/shared/logger"
	"github.com/codescan-sec/codescan/pkg/shared/types"
)

// RunOptionsScan holds the arguments for the scan command.
type RunOptionsScan struct {
	ModelProfile string
	Jobs         int
	Output       string
	Format       string
	NoProgress   bool
}

var (
	AppConfig        *config.Config
	scanOptions      RunOptionsScan
	exampleScanUsage = `  # Scan a single file with the default model profile
  codescan scan main.py

  # Scan a directory with 8 concurrent workers and write a SARIF report
  codescan scan -j 8 --format sarif -o findings.sarif ./src

  # Scan a directory with a named model profile and print a text report
  codescan scan --model deepseek --format text ./src`
)

var ScanCmd = &cobra.Command{
	Use:                   "scan [--model/-m PROFILE] [-j JOBS] [--format/-f json|sarif|text] [--output/-o PATH] PATH",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleScanUsage,
	Short:                 "Scans a file or directory for security issues",
	RunE:                  runScanCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func init() {
	ScanCmd.Flags().StringVarP(&scanOptions.ModelProfile, "model", "m", "", "model profile name from the configuration")
	ScanCmd.Flags().IntVarP(&scanOptions.Jobs, "jobs", "j", 0, "number of concurrent file analyses (default from config)")
	ScanCmd.Flags().StringVarP(&scanOptions.Format, "format", "f", FormatJSON, "report format: json, sarif or text")
	ScanCmd.Flags().StringVarP(&scanOptions.Output, "output", "o", "", "report file path (default is derived from the scanned path)")
	ScanCmd.Flags().BoolVar(&scanOptions.NoProgress, "no-progress", false, "suppress progress output")
}

// runScanCommand executes the scan command.
func runScanCommand(cmd *cobra.Command, args []string) error {
	log := logger.NewLogger(AppConfig, "core-scan")

	if err := validateScanArgs(&scanOptions, args); err != nil {
		log.Error("invalid scan arguments", "error", err)
		return err
	}

	target, err := files.ExpandPath(args[0])
	if err != nil {
		return fmt.Errorf("failed to expand path %q: %w", args[0], err)
	}
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("failed to access scan target %q: %w", target, err)
	}

	client := httpclient.New(log, AppConfig)
	store, err := vulndb.NewStore(AppConfig, client, log)
	if err != nil {
		log.Error("failed to open rule database", "error", err)
		return err
	}
	adapter, err := provider.NewAdapter(AppConfig, client, log, scanOptions.ModelProfile)
	if err != nil {
		log.Error("failed to initialize model provider", "error", err)
		return err
	}

	sc := scanner.New(AppConfig, adapter, store, log)

	var result *types.ScanResult
	if info.IsDir() {
		result, err = sc.ScanDirectory(cmd.Context(), target, scanOptions.Jobs, progressPrinter(scanOptions.NoProgress))
	} else {
		if err := files.ValidatePath(target); err != nil {
			return fmt.Errorf("invalid scan target: %w", err)
		}
		result, err = sc.ScanFile(cmd.Context(), target)
	}
	if err != nil {
		log.Error("scan failed", "error", err)
		return err
	}
	if result.Stats.Error != "" {
		log.Warn("scan finished with an error", "error", result.Stats.Error)
	}

	return writeReport(result, target, &scanOptions)
}

// progressPrinter returns a progress callback writing to stderr, or nil when
// progress output is disabled.
func progressPrinter(disabled bool) scanner.ProgressFunc {
	if disabled {
		return nil
	}
	return func(message string, percent int) {
		fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", percent, message)
	}
}

// writeReport renders the result in the requested format. Text reports go to
// stdout unless an output path was given; file formats default to a derived
// file name, and an output path pointing at a directory receives the derived
// name inside it.
func writeReport(result *types.ScanResult, target string, options *RunOptionsScan) error {
	if options.Format == FormatText && options.Output == "" {
		fmt.Print(report.RenderText(result))
		return nil
	}

	output := options.Output
	if output == "" {
		output = "."
	}
	extension := options.Format
	if extension == FormatText {
		extension = "txt"
	}
	outputPath, folder, err := files.DetermineFileFullPath(output, report.DefaultFilename(target, extension))
	if err != nil {
		return fmt.Errorf("failed to resolve report path: %w", err)
	}
	if err := files.CreateFolderIfNotExists(folder); err != nil {
		return err
	}

	switch options.Format {
	case FormatText:
		if err := files.WriteDataFile(outputPath, []byte(report.RenderText(result))); err != nil {
			return err
		}
	case FormatSARIF:
		if err := report.WriteSARIF(result, outputPath); err != nil {
			return err
		}
	default:
		if err := report.WriteJSON(result, outputPath); err != nil {
			return err
		}
	}

	fmt.Printf("Scan %s finished: %d findings, report saved to %s\n", result.ScanID, result.TotalIssues(), outputPath)
	return nil
}
