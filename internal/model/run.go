package model

import "time"

// OutcomeKind classifies the result for one symbol.
type OutcomeKind string

const (
	OutcomeSuccess   OutcomeKind = "SUCCESS"
	OutcomeNoNewData OutcomeKind = "NO_NEW_DATA"
	OutcomeFailed    OutcomeKind = "FAILED"
)

// SymbolOutcome is the per-symbol result of a run.
type SymbolOutcome struct {
	Symbol    string
	Kind      OutcomeKind
	RowsAdded int
	Attempts  int
	Err       error
}

// Reason returns the failure reason, or "" for non-failed outcomes.
func (o SymbolOutcome) Reason() string {
	if o.Kind != OutcomeFailed || o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// RunStatus is the aggregate outcome of a run.
type RunStatus string

const (
	StatusAllOk          RunStatus = "ALL_OK"
	StatusPartialFailure RunStatus = "PARTIAL_FAILURE"
	StatusTotalFailure   RunStatus = "TOTAL_FAILURE"
	StatusInterrupted    RunStatus = "INTERRUPTED"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitFatal          = 1
	ExitConfigError    = 2
	ExitPartialFailure = 3
	ExitTotalFailure   = 4
)

// Aggregate folds per-symbol outcomes into a run status.
func Aggregate(outcomes []SymbolOutcome) RunStatus {
	failed := 0
	for _, o := range outcomes {
		if o.Kind == OutcomeFailed {
			failed++
		}
	}
	switch {
	case failed == 0:
		return StatusAllOk
	case failed == len(outcomes):
		return StatusTotalFailure
	default:
		return StatusPartialFailure
	}
}

// RunReport holds everything a run produced.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []SymbolOutcome
	Status     RunStatus
}

// Failed returns the failed outcomes in processing order.
func (r *RunReport) Failed() []SymbolOutcome {
	var out []SymbolOutcome
	for _, o := range r.Outcomes {
		if o.Kind == OutcomeFailed {
			out = append(out, o)
		}
	}
	return out
}

// RowsAdded sums the rows appended across all symbols.
func (r *RunReport) RowsAdded() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.RowsAdded
	}
	return n
}

// ExitCode maps the run status to the process exit code.
func (r *RunReport) ExitCode() int {
	switch r.Status {
	case StatusPartialFailure:
		return ExitPartialFailure
	case StatusTotalFailure:
		return ExitTotalFailure
	default:
		return ExitOK
	}
}
