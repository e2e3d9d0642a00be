package rules

import "fmt"

// validateImportArgs validates the arguments provided to the rules import command.
func validateImportArgs(options *RunOptionsImport, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("invalid argument(s) received, import takes no positional arguments")
	}

	sources := 0
	if options.Dir != "" {
		sources++
	}
	if options.URL != "" {
		sources++
	}
	if options.Repo != "" {
		sources++
	}
	if sources != 1 {
		return fmt.Errorf("exactly one of 'dir', 'url' or 'repo' must be specified")
	}

	if options.Repo == "" && options.Branch != "" {
		return fmt.Errorf("the 'branch' flag is only valid with 'repo'")
	}
	if options.Repo == "" && len(options.Languages) > 0 {
		return fmt.Errorf("the 'languages' flag is only valid with 'repo'")
	}

	return nil
}
