package rules

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/codescan-sec/codescan/internal/semgrep"
	"github.com/codescan-sec/codescan/internal/vulndb"
	"github.com/codescan-sec/codescan/pkg/shared/config"
	"github.com/codescan-sec/codescan/pkg/shared/httpclient"
	"github.com/codescan-sec/codescan/pkg/shared/logger"
	"github.com/codescan-sec/codescan/pkg/shared/types"
)

// RunOptionsImport holds the arguments for the rules import command.
type RunOptionsImport struct {
	Dir       string
	URL       string
	Repo      string
	Branch    string
	Languages []string
}

var (
	AppConfig         *config.Config
	importOptions     RunOptionsImport
	listLanguage      string
	exampleRulesUsage = `  # List all rules grouped by language bucket
  codescan rules list

  # Import semgrep-dialect rules from a local directory
  codescan rules import --dir ./semgrep-rules

  # Import rules for selected languages from a git repository
  codescan rules import --repo https://github.com/semgrep/semgrep-rules --branch develop --languages python,go

  # Refresh the database from the configured update URL
  codescan rules update

  # Delete one rule from a language bucket
  codescan rules delete python python-2`
)

var RulesCmd = &cobra.Command{
	Use:                   "rules [command]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleRulesUsage,
	Short:                 "Manages the vulnerability rule database",
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func init() {
	listCmd.Flags().StringVarP(&listLanguage, "language", "l", "", "only list rules for one language bucket")

	importCmd.Flags().StringVar(&importOptions.Dir, "dir", "", "local directory with semgrep-dialect YAML rules")
	importCmd.Flags().StringVar(&importOptions.URL, "url", "", "URL of a YAML rule file or zip archive")
	importCmd.Flags().StringVar(&importOptions.Repo, "repo", "", "git repository with semgrep-dialect rules")
	importCmd.Flags().StringVarP(&importOptions.Branch, "branch", "b", "", "branch to clone (default develop)")
	importCmd.Flags().StringSliceVar(&importOptions.Languages, "languages", nil, "only import rules from these language directories")

	RulesCmd.AddCommand(listCmd)
	RulesCmd.AddCommand(importCmd)
	RulesCmd.AddCommand(updateCmd)
	RulesCmd.AddCommand(deleteCmd)
}

var listCmd = &cobra.Command{
	Use:                   "list [--language/-l LANGUAGE]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Lists rules in the database grouped by language bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewLogger(AppConfig, "core-rules")
		store, err := newStore(log)
		if err != nil {
			return err
		}

		patterns := store.Patterns()
		buckets := make([]string, 0, len(patterns))
		for bucket := range patterns {
			if listLanguage != "" && bucket != listLanguage {
				continue
			}
			buckets = append(buckets, bucket)
		}
		sort.Strings(buckets)

		for _, bucket := range buckets {
			fmt.Printf("%s (%d rules)\n", bucket, len(patterns[bucket]))
			for _, rule := range patterns[bucket] {
				fmt.Printf("  %-24s %-8s %s\n", rule.ID, rule.Severity, rule.Name)
			}
			fmt.Println()
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:                   "import {--dir PATH | --url URL | --repo URL [--branch/-b BRANCH] [--languages LIST]}",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Imports semgrep-dialect rules into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewLogger(AppConfig, "core-rules")

		if err := validateImportArgs(&importOptions, args); err != nil {
			log.Error("invalid import arguments", "error", err)
			return err
		}

		store, err := newStore(log)
		if err != nil {
			return err
		}
		importer := semgrep.NewImporter(httpclient.New(log, AppConfig), log)

		var incoming types.RuleSet
		switch {
		case importOptions.Dir != "":
			incoming, err = importer.ImportDirectory(importOptions.Dir)
		case importOptions.URL != "":
			incoming, err = importer.ImportURL(importOptions.URL)
		default:
			incoming, _, err = importer.ImportGitRepo(cmd.Context(), importOptions.Repo, importOptions.Branch, importOptions.Languages)
		}
		if err != nil {
			log.Error("rule import failed", "error", err)
			return err
		}

		added, err := store.Merge(incoming)
		if err != nil {
			log.Error("failed to merge imported rules", "error", err)
			return err
		}
		fmt.Printf("Imported %d rules, %d new\n", incoming.TotalRules(), added)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:                   "update",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Refreshes the database from the configured update URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewLogger(AppConfig, "core-rules")
		store, err := newStore(log)
		if err != nil {
			return err
		}
		if err := store.Update(); err != nil {
			log.Error("rule database update failed", "error", err)
			return err
		}
		fmt.Printf("Rule database updated, %d rules\n", store.Patterns().TotalRules())
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:                   "delete LANGUAGE RULE_ID",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Deletes one rule from a language bucket",
	Args:                  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewLogger(AppConfig, "core-rules")
		store, err := newStore(log)
		if err != nil {
			return err
		}
		removed, err := store.Delete(args[0], args[1])
		if err != nil {
			log.Error("failed to delete rule", "error", err)
			return err
		}
		if !removed {
			return fmt.Errorf("no rule %q in bucket %q", args[1], args[0])
		}
		fmt.Printf("Deleted rule %s from %s\n", args[1], args[0])
		return nil
	},
}

func newStore(log hclog.Logger) (*vulndb.Store, error) {
	store, err := vulndb.NewStore(AppConfig, httpclient.New(log, AppConfig), log)
	if err != nil {
		log.Error("failed to open rule database", "error", err)
		return nil, err
	}
	return store, nil
}
