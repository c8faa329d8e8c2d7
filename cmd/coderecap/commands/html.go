package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coderecap/coderecap/internal/render"
)

// HTMLCommand converts an existing markdown report into the HTML page.
type HTMLCommand struct {
	output string
}

// NewHTMLCommand creates the html command.
func NewHTMLCommand() *cobra.Command {
	hc := &HTMLCommand{}

	cmd := &cobra.Command{
		Use:   "html <markdown-file>",
		Short: "Render a markdown report as a standalone HTML page",
		Args:  cobra.ExactArgs(1),
		RunE:  hc.run,
	}

	cmd.Flags().StringVarP(&hc.output, "output", "o", "", "Output file (default: input with .html extension)")

	return cmd
}

func (hc *HTMLCommand) run(cmd *cobra.Command, args []string) error {
	markdown, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read markdown: %w", err)
	}

	page, err := render.HTMLFromMarkdown(string(markdown))
	if err != nil {
		return err
	}

	outPath := hc.output
	if outPath == "" {
		outPath = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".html"
	}

	if err := os.WriteFile(outPath, []byte(page), 0o644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)

	return nil
}
