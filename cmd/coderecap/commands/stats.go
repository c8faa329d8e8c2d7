package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coderecap/coderecap/internal/aggregate"
	"github.com/coderecap/coderecap/internal/extract"
	"github.com/coderecap/coderecap/internal/recap"
	"github.com/coderecap/coderecap/internal/render"
)

// Stats output formats.
const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatCSV      = "csv"
)

// ErrUnknownFormat is returned for unrecognized --format values.
var ErrUnknownFormat = errors.New("unknown format (expected text, markdown, or csv)")

// StatsCommand prints per-period statistics without any model calls.
type StatsCommand struct {
	author      string
	root        string
	client      string
	filter      string
	granularity string
	format      string
	noFetch     bool
}

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	st := &StatsCommand{}

	cmd := &cobra.Command{
		Use:   "stats <period>",
		Short: "Show per-period commit statistics",
		Args:  cobra.ExactArgs(1),
		RunE:  st.run,
	}

	cmd.Flags().StringVar(&st.author, "author", "", "Filter commits by author substring or @email-domain")
	cmd.Flags().StringVar(&st.root, "root", "", "Directory containing the repositories (default: config root)")
	cmd.Flags().StringVar(&st.client, "client", "", "Restrict to repositories routed to this client")
	cmd.Flags().StringVar(&st.filter, "filter", "", "Only repositories whose name contains this substring")
	cmd.Flags().StringVar(&st.granularity, "granularity", "month", "Bucket granularity: day, week, month, quarter, year")
	cmd.Flags().StringVar(&st.format, "format", formatText, "Output format: text, markdown, csv")
	cmd.Flags().BoolVar(&st.noFetch, "no-fetch", false, "Skip fetching origin before extraction")

	return cmd
}

func (st *StatsCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)

	label, since, until, err := recap.ParsePeriod(args[0])
	if err != nil {
		return err
	}

	granularity, err := recap.ParseGranularity(st.granularity)
	if err != nil {
		return err
	}

	root := st.root
	if root == "" {
		root = cfg.Root
	}

	author := st.author
	if author == "" {
		author = cfg.Author
	}

	paths, err := collectRepoPaths(root)
	if err != nil {
		return err
	}

	paths = routeRepos(filterRepos(paths, st.filter), cfg.Router(), st.client)
	if len(paths) == 0 {
		return fmt.Errorf("no repositories matched under %s", root)
	}

	if !st.noFetch {
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

	aggregates := aggregate.Bucket(commits, recap.Split(since, until, granularity))

	out := cmd.OutOrStdout()
	title := fmt.Sprintf("%s: %s", cfg.Report.Title, label)

	switch st.format {
	case formatText:
		fmt.Fprint(out, render.Text(title, aggregates))
	case formatMarkdown:
		fmt.Fprintf(out, "# %s\n\n%s", title, render.StatsTable(aggregates))
	case formatCSV:
		data, err := render.CSV(aggregates)
		if err != nil {
			return err
		}

		fmt.Fprint(out, string(data))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, st.format)
	}

	return nil
}
