package notifier

import (
	"context"
	"fmt"
	"time"

	"PriceArchiver/internal/logger"
	"PriceArchiver/internal/model"

	"go.uber.org/multierr"
)

const (
	criticalSubject = "Problems with Yahoo stock download"
	recoverySubject = "Run recovery"

	criticalFooter = "\nAdditional emails will not be sent while the problem persists. " +
		"Check the log file for more information. An email will be sent when the system recovers.\n"
	recoveryBody = "The price download run was successful after a prior failure.\n"
)

// NotifyError reports an alert that could not be delivered or recorded.
type NotifyError struct {
	Subject string
	Err     error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify %q: %v", e.Subject, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }

// Alerter decides whether a finished run warrants an email.
type Alerter struct {
	mailer    Mailer
	statePath string
	log       *logger.Logger
	now       func() time.Time
}

// NewAlerter creates an alerter. statePath is where the outstanding alert is remembered.
func NewAlerter(m Mailer, statePath string, log *logger.Logger) *Alerter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Alerter{mailer: m, statePath: statePath, log: log, now: time.Now}
}

// Notify sends the critical alert for a total failure and the recovery
// message for the first healthy run after one. Partial failures and
// interrupted runs send nothing. The returned error never affects the run status.
func (a *Alerter) Notify(ctx context.Context, r *model.RunReport) error {
	var errs error

	state, err := LoadState(a.statePath)
	if err != nil {
		errs = multierr.Append(errs, &NotifyError{Subject: "alert state", Err: err})
		state = &AlertState{}
	}

	switch {
	case r.Status == model.StatusTotalFailure && !state.Active:
		a.log.Detailedf("Total failure, sending notification email")
		body := FormatFailureSummary(r) + criticalFooter
		if err := a.mailer.Send(ctx, criticalSubject, body); err != nil {
			return multierr.Append(errs, &NotifyError{Subject: criticalSubject, Err: err})
		}
		state.Active = true
		state.Since = a.now()
		state.Message = FormatFailureSummary(r)

	case r.Status == model.StatusTotalFailure:
		a.log.Detailedf("Total failure, alert already sent at %s", state.Since.Format(model.DateTimeLayout))
		return errs

	case r.Status == model.StatusAllOk && state.Active:
		a.log.Summaryf("Run recovered after failure reported at %s, sending recovery email", state.Since.Format(model.DateTimeLayout))
		if err := a.mailer.Send(ctx, recoverySubject, recoveryBody); err != nil {
			return multierr.Append(errs, &NotifyError{Subject: recoverySubject, Err: err})
		}
		state = &AlertState{}

	default:
		return errs
	}

	if err := SaveState(a.statePath, state, a.now()); err != nil {
		errs = multierr.Append(errs, &NotifyError{Subject: "alert state", Err: err})
	}
	return errs
}
