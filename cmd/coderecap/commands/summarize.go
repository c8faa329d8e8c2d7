package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/coderecap/coderecap/internal/aggregate"
	"github.com/coderecap/coderecap/internal/config"
	"github.com/coderecap/coderecap/internal/extract"
	"github.com/coderecap/coderecap/internal/llm"
	"github.com/coderecap/coderecap/internal/observability"
	"github.com/coderecap/coderecap/internal/recap"
	"github.com/coderecap/coderecap/internal/render"
	"github.com/coderecap/coderecap/internal/summarize"
)

// SummarizeCommand holds flags for the summarize pipeline.
type SummarizeCommand struct {
	author      string
	client      string
	root        string
	granularity string
	model       string
	filter      string
	output      string

	maxCost     float64
	concurrency int

	dryRun  bool
	noFetch bool
	stdout  bool
	html    bool
	csv     bool

	metricsListen string
}

// NewSummarizeCommand creates the summarize command.
func NewSummarizeCommand() *cobra.Command {
	sc := &SummarizeCommand{}

	cmd := &cobra.Command{
		Use:   "summarize <period>",
		Short: "Generate a hierarchical activity recap for a period",
		Long: "Summarize extracts commit history for the period (e.g. 2025, 2025-Q3, " +
			"2025-06, 2020:2025), aggregates it per calendar bucket, and generates a " +
			"narrative recap level by level under the configured cost ceiling.",
		Args: cobra.ExactArgs(1),
		RunE: sc.run,
	}

	sc.registerFlags(cmd)

	return cmd
}

func (sc *SummarizeCommand) registerFlags(cmd *cobra.Command) {
	sc.registerPipelineFlags(cmd)

	cmd.Flags().StringVar(&sc.granularity, "granularity", "month", "Leaf granularity: day, week, month, quarter, year")
	cmd.Flags().StringVar(&sc.metricsListen, "metrics-listen", "", "Expose prometheus metrics on this address for the run")
}

// registerPipelineFlags registers the flags shared with commands that fix the
// tree shape themselves, like daily.
func (sc *SummarizeCommand) registerPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sc.author, "author", "", "Filter commits by author substring or @email-domain")
	cmd.Flags().StringVar(&sc.client, "client", "", "Restrict to repositories routed to this client")
	cmd.Flags().StringVar(&sc.root, "root", "", "Directory containing the repositories (default: config root)")
	cmd.Flags().StringVar(&sc.model, "model", "", "Model name (default: config model)")
	cmd.Flags().StringVar(&sc.filter, "filter", "", "Only repositories whose name contains this substring")
	cmd.Flags().StringVarP(&sc.output, "output", "o", "", "Report output directory (default: config output dir)")
	cmd.Flags().Float64Var(&sc.maxCost, "max-cost", 0, "Cost ceiling in USD (0 = config ceiling, negative = unlimited)")
	cmd.Flags().IntVar(&sc.concurrency, "concurrency", 1, "Concurrent calls within one tree level")
	cmd.Flags().BoolVar(&sc.dryRun, "dry-run", false, "Plan and price the run without issuing any calls")
	cmd.Flags().BoolVar(&sc.noFetch, "no-fetch", false, "Skip fetching origin before extraction")
	cmd.Flags().BoolVar(&sc.stdout, "stdout", false, "Print the markdown report to stdout instead of writing files")
	cmd.Flags().BoolVar(&sc.html, "html", false, "Also render an HTML report")
	cmd.Flags().BoolVar(&sc.csv, "csv", false, "Also write per-period statistics as CSV")
}

func (sc *SummarizeCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)

	label, since, until, err := recap.ParsePeriod(args[0])
	if err != nil {
		return err
	}

	coarsest := periodCoarsest(args[0])

	finest, err := leafGranularity(sc.granularity, coarsest)
	if err != nil {
		return err
	}

	metrics := sc.serveMetrics(cmd, logger)

	report, err := sc.generate(cmd.Context(), cfg, logger, metrics, pipelineSpec{
		since:    since,
		until:    until,
		finest:   finest,
		coarsest: coarsest,
	})
	if err != nil {
		return err
	}

	return sc.emit(cmd, cfg, label, report)
}

// pipelineSpec carries the resolved period bounds through the pipeline.
type pipelineSpec struct {
	since    time.Time
	until    time.Time
	finest   recap.Granularity
	coarsest recap.Granularity
}

func (sc *SummarizeCommand) generate(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	metrics *observability.Metrics,
	spec pipelineSpec,
) (render.Report, error) {
	root := sc.root
	if root == "" {
		root = cfg.Root
	}

	author := sc.author
	if author == "" {
		author = cfg.Author
	}

	model := sc.model
	if model == "" {
		model = cfg.Model.Name
	}

	router := cfg.Router()

	paths, err := collectRepoPaths(root)
	if err != nil {
		return render.Report{}, err
	}

	paths = routeRepos(filterRepos(paths, sc.filter), router, sc.client)
	if len(paths) == 0 {
		return render.Report{}, fmt.Errorf("no repositories matched under %s", root)
	}

	if !sc.noFetch {
		fetchRepos(paths, logger)
	}

	commits, err := extractAll(ctx, paths, extract.Options{
		Author:   author,
		CacheDir: cacheDir(cfg),
		Logger:   logger,
	}, spec.since, spec.until)
	if err != nil {
		return render.Report{}, err
	}

	logger.Info("commits extracted", "commits", len(commits), "repos", len(paths))
	metrics.ObserveCommits(len(commits))

	periods := recap.Split(spec.since, spec.until, spec.finest)
	aggregates := aggregate.Bucket(commits, periods)

	sources := make([]summarize.Source, len(aggregates))
	for i, agg := range aggregates {
		sources[i] = summarize.Source{Period: agg.Period, Aggregate: agg}
	}

	maxCost := sc.maxCost
	if maxCost == 0 {
		maxCost = cfg.Model.MaxCostUSD
	}

	ledger := newLedger(maxCost, cfg.Model.CharsPerToken)

	var (
		client  llm.Client
		profile llm.Profile
	)

	if sc.dryRun {
		// Dry runs never reach the provider; only pricing is needed.
		profile, err = llm.LookupProfile(model)
	} else {
		client, profile, err = buildClient(cfg, model, logger)
	}

	if err != nil {
		return render.Report{}, err
	}

	tree, err := summarize.Plan(sources, summarize.Config{
		Coarsest:      spec.coarsest,
		Profile:       profile,
		Temperature:   float32(cfg.Model.Temperature),
		GlobalContext: router.GlobalContext(),
		ClientContext: router.ClientContext(sc.client),
		DryRun:        sc.dryRun,
		Concurrency:   sc.concurrency,
	}, ledger)
	if err != nil {
		return render.Report{}, err
	}

	logger.Info("summary tree planned",
		"levels", len(tree.Levels), "calls", tree.CallCount(), "estimated_usd", tree.EstimatedCost())

	runner := &summarize.Runner{Client: client, Ledger: ledger, Logger: logger, Observer: metrics}
	if err := runner.Run(ctx, tree); err != nil {
		return render.Report{}, err
	}

	return render.Report{
		Title:      cfg.Report.Title,
		Tree:       tree,
		Aggregates: aggregates,
		Totals:     ledger.Snapshot(),
	}, nil
}

// serveMetrics starts the metrics listener when requested; a nil receiver is
// a no-op observer otherwise.
func (sc *SummarizeCommand) serveMetrics(cmd *cobra.Command, logger *slog.Logger) *observability.Metrics {
	if sc.metricsListen == "" {
		return nil
	}

	metrics := observability.NewMetrics()

	_, errs := metrics.Serve(sc.metricsListen)
	go func() {
		if err := <-errs; err != nil {
			logger.Warn("metrics listener stopped", "error", err)
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "metrics on http://%s/metrics\n", sc.metricsListen)

	return metrics
}

// emit writes the rendered report to the output directory, or stdout.
func (sc *SummarizeCommand) emit(cmd *cobra.Command, cfg *config.Config, label string, report render.Report) error {
	markdown := render.Markdown(report)

	if sc.stdout {
		fmt.Fprint(cmd.OutOrStdout(), markdown)

		return nil
	}

	outDir := sc.output
	if outDir == "" {
		outDir = cfg.Report.OutputDir
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	mdPath := filepath.Join(outDir, label+".md")
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", mdPath)

	if sc.html {
		page, err := render.HTML(report)
		if err != nil {
			return err
		}

		htmlPath := filepath.Join(outDir, label+".html")
		if err := os.WriteFile(htmlPath, []byte(page), 0o644); err != nil {
			return fmt.Errorf("write html report: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", htmlPath)
	}

	if sc.csv {
		data, err := render.CSV(report.Aggregates)
		if err != nil {
			return err
		}

		csvPath := filepath.Join(outDir, label+".csv")
		if err := os.WriteFile(csvPath, data, 0o644); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", csvPath)
	}

	return nil
}
