package models

import "errors"

type OutcomeStatus string

const (
	// OutcomeCompleted means every side effect was performed.
	OutcomeCompleted OutcomeStatus = "completed"
	// OutcomeSkipped means a precondition was not met and nothing was done.
	OutcomeSkipped OutcomeStatus = "skipped"
	// OutcomeDegraded means the invocation finished but some failures were
	// logged and swallowed instead of failing it.
	OutcomeDegraded OutcomeStatus = "degraded"
)

// Outcome is what a trigger handler reports back for one invocation.
// Invocation failures are returned as errors alongside it, not recorded here.
type Outcome struct {
	Trigger string        `json:"trigger"`
	Status  OutcomeStatus `json:"status"`
	Reason  string        `json:"reason,omitempty"`
	Errors  []error       `json:"-"`
}

func Completed(trigger string) Outcome {
	return Outcome{Trigger: trigger, Status: OutcomeCompleted}
}

func Skipped(trigger, reason string) Outcome {
	return Outcome{Trigger: trigger, Status: OutcomeSkipped, Reason: reason}
}

// Swallow records a handled failure and downgrades a completed outcome.
func (o *Outcome) Swallow(err error) {
	if err == nil {
		return
	}
	o.Errors = append(o.Errors, err)
	if o.Status == OutcomeCompleted || o.Status == "" {
		o.Status = OutcomeDegraded
	}
}

// Err joins the swallowed failures, or returns nil when there were none.
func (o Outcome) Err() error {
	return errors.Join(o.Errors...)
}

// ErrorMessages returns the swallowed failures as strings for JSON responses.
func (o Outcome) ErrorMessages() []string {
	if len(o.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(o.Errors))
	for _, err := range o.Errors {
		msgs = append(msgs, err.Error())
	}
	return msgs
}
