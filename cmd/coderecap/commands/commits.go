package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coderecap/coderecap/internal/extract"
	"github.com/coderecap/coderecap/internal/recap"
	"github.com/coderecap/coderecap/internal/render"
)

// CommitsCommand lists commits for a period across all repositories.
type CommitsCommand struct {
	author  string
	root    string
	client  string
	filter  string
	noFetch bool
}

// NewCommitsCommand creates the commits command.
func NewCommitsCommand() *cobra.Command {
	cc := &CommitsCommand{}

	cmd := &cobra.Command{
		Use:   "commits <period>",
		Short: "List commits for a date or period across repositories",
		Args:  cobra.ExactArgs(1),
		RunE:  cc.run,
	}

	cmd.Flags().StringVar(&cc.author, "author", "", "Filter commits by author substring or @email-domain")
	cmd.Flags().StringVar(&cc.root, "root", "", "Directory containing the repositories (default: config root)")
	cmd.Flags().StringVar(&cc.client, "client", "", "Restrict to repositories routed to this client")
	cmd.Flags().StringVar(&cc.filter, "filter", "", "Only repositories whose name contains this substring")
	cmd.Flags().BoolVar(&cc.noFetch, "no-fetch", true, "Skip fetching origin before extraction")

	return cmd
}

func (cc *CommitsCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)

	label, since, until, err := recap.ParsePeriod(args[0])
	if err != nil {
		return err
	}

	root := cc.root
	if root == "" {
		root = cfg.Root
	}

	author := cc.author
	if author == "" {
		author = cfg.Author
	}

	paths, err := collectRepoPaths(root)
	if err != nil {
		return err
	}

	paths = routeRepos(filterRepos(paths, cc.filter), cfg.Router(), cc.client)
	if len(paths) == 0 {
		return fmt.Errorf("no repositories matched under %s", root)
	}

	if !cc.noFetch {
		fetchRepos(paths, logger)
	}

	commits, err := extractAll(cmd.Context(), paths, extract.Options{
		Author:   author,
		CacheDir: cacheDir(cfg),
		Logger:   logger,
	}, since, until)
	if err != nil {
		return err
	}

	if len(commits) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no commits in %s\n", label)

		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), render.CommitTable(commits))

	return nil
}
