package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coderecap/coderecap/internal/deploy"
)

// DeployCommand packs a rendered report directory for publishing.
type DeployCommand struct {
	outDir string
}

// NewDeployCommand creates the deploy command.
func NewDeployCommand() *cobra.Command {
	dc := &DeployCommand{}

	cmd := &cobra.Command{
		Use:   "deploy <report-dir>",
		Short: "Pack a report directory into a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE:  dc.run,
	}

	cmd.Flags().StringVarP(&dc.outDir, "output", "o", "", "Archive directory (default: alongside the report)")

	return cmd
}

func (dc *DeployCommand) run(cmd *cobra.Command, args []string) error {
	target := &deploy.ZipTarget{OutDir: dc.outDir}

	path, err := target.Publish(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)

	return nil
}
