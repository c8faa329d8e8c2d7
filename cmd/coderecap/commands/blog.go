package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coderecap/coderecap/internal/blog"
	"github.com/coderecap/coderecap/internal/config"
	"github.com/coderecap/coderecap/internal/costs"
	"github.com/coderecap/coderecap/internal/llm"
	"github.com/coderecap/coderecap/internal/recap"
)

// BlogCommand holds shared flags for the blog subcommands.
type BlogCommand struct {
	topic        string
	period       string
	author       string
	client       string
	root         string
	model        string
	output       string
	maxCost      float64
	maxDiffLines int
	dryRun       bool
}

// NewBlogCommand creates the blog command group.
func NewBlogCommand() *cobra.Command {
	bc := &BlogCommand{}

	cmd := &cobra.Command{
		Use:   "blog",
		Short: "Generate blog posts from git activity",
		Long: "Blog runs a two-stage pipeline: research scans a period's commits for " +
			"changes relevant to a topic, write turns reviewed research into a post. " +
			"Research output is a markdown file meant to be edited before writing.",
	}

	cmd.PersistentFlags().StringVar(&bc.author, "author", "", "Filter commits by author substring or @email-domain")
	cmd.PersistentFlags().StringVar(&bc.client, "client", "", "Client whose context is added to the prompts")
	cmd.PersistentFlags().StringVar(&bc.root, "root", "", "Directory containing the repositories (default: config root)")
	cmd.PersistentFlags().StringVar(&bc.model, "model", "", "Model name (default: config model)")
	cmd.PersistentFlags().StringVarP(&bc.output, "output", "o", "", "Output file (default: stdout)")
	cmd.PersistentFlags().Float64Var(&bc.maxCost, "max-cost", 0, "Cost ceiling in USD (0 = config ceiling, negative = unlimited)")
	cmd.PersistentFlags().IntVar(&bc.maxDiffLines, "max-diff-lines", blog.DefaultMaxDiffLines, "Diff lines kept per commit in the prompts")
	cmd.PersistentFlags().BoolVar(&bc.dryRun, "dry-run", false, "Price the calls without issuing any")

	cmd.AddCommand(bc.researchCommand(), bc.writeCommand(), bc.fullCommand())

	return cmd
}

func (bc *BlogCommand) researchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research <topic> <period>",
		Short: "Research a period's commits for a blog topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, req, err := bc.setup(cmd, args[0], args[1])
			if err != nil {
				return err
			}

			research, err := pipeline.Research(cmd.Context(), req)
			if err != nil {
				return err
			}

			if bc.dryRun {
				ledgerSummary(cmd, pipeline.Ledger)
			}

			return bc.write(cmd, research)
		},
	}

	return cmd
}

func (bc *BlogCommand) writeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write <research-file>",
		Short: "Write a blog post from a reviewed research file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			research, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read research: %w", err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			pipeline, err := bc.pipeline(cmd, cfg)
			if err != nil {
				return err
			}

			post, err := pipeline.Write(cmd.Context(), string(research), bc.resolveRoot(cfg))
			if err != nil {
				return err
			}

			if bc.dryRun {
				ledgerSummary(cmd, pipeline.Ledger)
			}

			return bc.write(cmd, post)
		},
	}

	return cmd
}

func (bc *BlogCommand) fullCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "full <topic> <period>",
		Short: "Research and write in one run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, req, err := bc.setup(cmd, args[0], args[1])
			if err != nil {
				return err
			}

			research, post, err := pipeline.Full(cmd.Context(), req)
			if err != nil {
				return err
			}

			if bc.dryRun {
				ledgerSummary(cmd, pipeline.Ledger)
			}

			// The intermediate research lands next to the post for review.
			if bc.output != "" {
				researchPath := strings.TrimSuffix(bc.output, filepath.Ext(bc.output)) + ".research.md"
				if err := os.WriteFile(researchPath, []byte(research), 0o644); err != nil {
					return fmt.Errorf("write research: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", researchPath)
			}

			return bc.write(cmd, post)
		},
	}

	return cmd
}

// setup resolves config and period bounds into a pipeline and request.
func (bc *BlogCommand) setup(cmd *cobra.Command, topic, periodSpec string) (*blog.Pipeline, blog.ResearchRequest, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, blog.ResearchRequest{}, err
	}

	label, since, until, err := recap.ParsePeriod(periodSpec)
	if err != nil {
		return nil, blog.ResearchRequest{}, err
	}

	pipeline, err := bc.pipeline(cmd, cfg)
	if err != nil {
		return nil, blog.ResearchRequest{}, err
	}

	root := bc.resolveRoot(cfg)

	repos, err := collectRepoPaths(root)
	if err != nil {
		return nil, blog.ResearchRequest{}, err
	}

	author := bc.author
	if author == "" {
		author = cfg.Author
	}

	return pipeline, blog.ResearchRequest{
		Topic:      topic,
		Period:     label,
		Since:      since,
		Until:      until,
		Author:     author,
		ClientName: bc.client,
		Root:       root,
		Repos:      routeRepos(repos, cfg.Router(), bc.client),
	}, nil
}

func (bc *BlogCommand) pipeline(cmd *cobra.Command, cfg *config.Config) (*blog.Pipeline, error) {
	logger := newLogger(cmd)

	model := bc.model
	if model == "" {
		model = cfg.Model.Name
	}

	var (
		client  llm.Client
		profile llm.Profile
		err     error
	)

	if bc.dryRun {
		profile, err = llm.LookupProfile(model)
	} else {
		client, profile, err = buildClient(cfg, model, logger)
	}

	if err != nil {
		return nil, err
	}

	maxCost := bc.maxCost
	if maxCost == 0 {
		maxCost = cfg.Model.MaxCostUSD
	}

	router := cfg.Router()

	return &blog.Pipeline{
		Client:        client,
		Ledger:        newLedger(maxCost, cfg.Model.CharsPerToken),
		Logger:        logger,
		Profile:       profile,
		Temperature:   float32(cfg.Model.Temperature),
		GlobalContext: router.GlobalContext(),
		ClientContext: router.ClientContext(bc.client),
		MaxDiffLines:  bc.maxDiffLines,
		DryRun:        bc.dryRun,
	}, nil
}

func (bc *BlogCommand) resolveRoot(cfg *config.Config) string {
	if bc.root != "" {
		return bc.root
	}

	return cfg.Root
}

// write emits content to the output file or stdout.
func (bc *BlogCommand) write(cmd *cobra.Command, content string) error {
	if bc.output == "" {
		fmt.Fprint(cmd.OutOrStdout(), content)

		return nil
	}

	if err := os.WriteFile(bc.output, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", bc.output)

	return nil
}

// ledgerSummary is printed after dry runs so the estimate is visible.
func ledgerSummary(cmd *cobra.Command, ledger *costs.Ledger) {
	fmt.Fprintln(cmd.ErrOrStderr(), ledger.Snapshot().Summary())
}
