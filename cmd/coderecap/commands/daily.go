package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/coderecap/coderecap/internal/recap"
)

// DailyCommand summarizes a single day for time logging.
type DailyCommand struct {
	summarize SummarizeCommand
	date      string
}

// NewDailyCommand creates the daily command.
func NewDailyCommand() *cobra.Command {
	dc := &DailyCommand{}

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Summarize a single day's activity",
		Args:  cobra.NoArgs,
		RunE:  dc.run,
	}

	cmd.Flags().StringVar(&dc.date, "date", "", "Day to summarize as YYYY-MM-DD (default: today)")
	dc.summarize.registerPipelineFlags(cmd)

	return cmd
}

func (dc *DailyCommand) run(cmd *cobra.Command, _ []string) error {
	// Daily output goes to the terminal unless a destination was asked for.
	if !cmd.Flags().Changed("output") {
		dc.summarize.stdout = true
	}

	date := dc.date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)

	label, since, until, err := recap.ParsePeriod(date)
	if err != nil {
		return err
	}

	report, err := dc.summarize.generate(cmd.Context(), cfg, logger, nil, pipelineSpec{
		since:    since,
		until:    until,
		finest:   recap.Day,
		coarsest: recap.Day,
	})
	if err != nil {
		return err
	}

	return dc.summarize.emit(cmd, cfg, label, report)
}
