// Package main provides the entry point for the coderecap CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coderecap/coderecap/cmd/coderecap/commands"
	"github.com/coderecap/coderecap/pkg/version"
)

var (
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "coderecap",
		Short: "Code Recap - LLM-written recaps of git activity",
		Long: `Code Recap aggregates commit history across repositories and generates
narrative summaries level by level under a cost ceiling.

Commands:
  summarize  Generate a hierarchical recap for a period
  daily      Summarize a single day
  stats      Per-period statistics without model calls
  blog       Research and write blog posts from git activity`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: .coderecap.yaml in CWD or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add commands.
	rootCmd.AddCommand(commands.NewSummarizeCommand())
	rootCmd.AddCommand(commands.NewDailyCommand())
	rootCmd.AddCommand(commands.NewStatsCommand())
	rootCmd.AddCommand(commands.NewCommitsCommand())
	rootCmd.AddCommand(commands.NewBlogCommand())
	rootCmd.AddCommand(commands.NewHTMLCommand())
	rootCmd.AddCommand(commands.NewReposCommand())
	rootCmd.AddCommand(commands.NewDeployCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "coderecap %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
