package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codescan-sec/codescan/cmd/rules"
	"github.com/codescan-sec/codescan/cmd/scan"
	"github.com/codescan-sec/codescan/cmd/version"
	"github.com/codescan-sec/codescan/pkg/shared/config"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "codescan [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Codescan is a security scanner that combines pattern rules with model-assisted analysis.",
		Long: `Codescan scans files and directories for security issues. Findings come from
two engines: a regex rule database and an analysis model reached over HTTP.
Rule sets can be extended by importing semgrep-dialect YAML from directories,
URLs or git repositories.
`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CODESCAN_HOME/config.yml)")
	rootCmd.AddCommand(scan.ScanCmd)
	rootCmd.AddCommand(rules.RulesCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

func Execute() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	var err error

	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize configuration: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	scan.Init(AppConfig)
	rules.Init(AppConfig)
	version.Init(AppConfig)
}
