package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/coderecap/coderecap/internal/aggregate"
)

// CSV renders aggregates as machine-readable rows for spreadsheets and
// downstream tooling.
func CSV(aggregates []aggregate.Aggregate) ([]byte, error) {
	var buf bytes.Buffer

	writer := csv.NewWriter(&buf)

	header := []string{"period", "commits", "lines_added", "lines_removed", "active_days", "top_language", "top_project"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, agg := range aggregates {
		row := []string{
			agg.Period.Label(),
			strconv.Itoa(agg.Commits),
			strconv.Itoa(agg.LinesAdded),
			strconv.Itoa(agg.LinesRemoved),
			strconv.Itoa(agg.ActiveDays),
			agg.TopLanguage(),
			agg.TopProject(),
		}

		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}
