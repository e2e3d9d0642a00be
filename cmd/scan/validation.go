package scan

import "fmt"

const (
	FormatJSON  = "json"
	FormatSARIF = "sarif"
	FormatText  = "text"
)

// validateScanArgs validates the arguments provided to the scan command.
func validateScanArgs(options *RunOptionsScan, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("exactly one path to scan must be specified")
	}

	switch options.Format {
	case FormatJSON, FormatSARIF, FormatText:
	default:
		return fmt.Errorf("unknown report format: %v", options.Format)
	}

	if options.Jobs < 0 {
		return fmt.Errorf("the 'jobs' flag cannot be negative")
	}

	return nil
}
