package notifier

import (
	"fmt"
	"strings"
	"time"

	"PriceArchiver/internal/model"
)

// FormatRunSummary formats the one-line summary logged at the end of a run.
func FormatRunSummary(r *model.RunReport) string {
	var ok, none, failed int
	for _, o := range r.Outcomes {
		switch o.Kind {
		case model.OutcomeSuccess:
			ok++
		case model.OutcomeNoNewData:
			none++
		case model.OutcomeFailed:
			failed++
		}
	}
	return fmt.Sprintf("Run %s: %d symbol(s), %d updated, %d without new data, %d failed, %d row(s) added in %s",
		r.Status, len(r.Outcomes), ok, none, failed, r.RowsAdded(),
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}

// FormatFailureSummary lists which symbols failed and why.
func FormatFailureSummary(r *model.RunReport) string {
	var b strings.Builder
	failed := r.Failed()

	b.WriteString(fmt.Sprintf("Price download run %s finished at %s with status %s.\n",
		r.RunID, r.FinishedAt.Format(model.DateTimeLayout), r.Status))
	b.WriteString(fmt.Sprintf("%d of %d symbol(s) failed:\n\n", len(failed), len(r.Outcomes)))
	for _, o := range failed {
		b.WriteString(fmt.Sprintf("  %s: %s\n", o.Symbol, o.Reason()))
	}
	return b.String()
}
