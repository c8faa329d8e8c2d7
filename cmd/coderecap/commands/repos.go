package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// ReposCommand holds flags for the repository discovery utilities.
type ReposCommand struct {
	root   string
	client string
	filter string
}

// NewReposCommand creates the repos command group.
func NewReposCommand() *cobra.Command {
	rc := &ReposCommand{}

	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Repository discovery utilities",
	}

	cmd.PersistentFlags().StringVar(&rc.root, "root", "", "Directory containing the repositories (default: config root)")
	cmd.PersistentFlags().StringVar(&rc.client, "client", "", "Restrict to repositories routed to this client")
	cmd.PersistentFlags().StringVar(&rc.filter, "filter", "", "Only repositories whose name contains this substring")

	cmd.AddCommand(rc.listCommand(), rc.fetchCommand())

	return cmd
}

func (rc *ReposCommand) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered repositories and their client assignment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			paths, err := rc.resolve(cmd)
			if err != nil {
				return err
			}

			router := cfg.Router()
			for _, path := range paths {
				client := router.Assign(filepath.Base(path))
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", path, client)
			}

			return nil
		},
	}
}

func (rc *ReposCommand) fetchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch origin for every discovered repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := rc.resolve(cmd)
			if err != nil {
				return err
			}

			fetchRepos(paths, newLogger(cmd))
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d repositories\n", len(paths))

			return nil
		},
	}
}

// resolve discovers and filters the repository paths for the group flags.
func (rc *ReposCommand) resolve(cmd *cobra.Command) ([]string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	root := rc.root
	if root == "" {
		root = cfg.Root
	}

	paths, err := collectRepoPaths(root)
	if err != nil {
		return nil, err
	}

	return routeRepos(filterRepos(paths, rc.filter), cfg.Router(), rc.client), nil
}
