// Package fallback runs an ordered list of alternative ways to do one thing and
// stops at the first one that works, keeping a trace of everything attempted.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNoCandidates = errors.New("no candidates supplied")

type Candidate struct {
	Name      string
	Mechanism string
	Try       func(ctx context.Context, timeout time.Duration) error
}

type Attempt struct {
	Index     int    `json:"index"`
	Candidate string `json:"candidate"`
	Mechanism string `json:"mechanism"`
	Error     string `json:"error,omitempty"`
}

type Outcome struct {
	Matched  *Attempt
	Attempts []Attempt
}

// Names lists the attempted candidates in order.
func (o Outcome) Names() []string {
	names := make([]string, 0, len(o.Attempts))
	for _, a := range o.Attempts {
		names = append(names, a.Candidate)
	}

	return names
}

// ExhaustedError is returned when every candidate failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	names := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		names = append(names, a.Candidate)
	}

	return fmt.Sprintf("no candidate succeeded among: [%s]", strings.Join(names, ", "))
}

type Strategy struct {
	// PerCandidate is the timeout handed to each candidate.
	PerCandidate time.Duration
	// Cap bounds PerCandidate so one slow candidate cannot eat the overall budget.
	Cap time.Duration
	// OnAttempt observes every finished attempt.
	OnAttempt func(Attempt)
}

func (s Strategy) timeout() time.Duration {
	per := s.PerCandidate

	if s.Cap > 0 && (per <= 0 || per > s.Cap) {
		per = s.Cap
	}

	return per
}

// Run tries candidates in order and returns on the first success.
// Candidates after the first success are never attempted.
func (s Strategy) Run(ctx context.Context, candidates []Candidate) (Outcome, error) {
	var outcome Outcome

	if len(candidates) == 0 {
		return outcome, ErrNoCandidates
	}

	timeout := s.timeout()
	outcome.Attempts = make([]Attempt, 0, len(candidates))

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		attempt := Attempt{Index: i, Candidate: c.Name, Mechanism: c.Mechanism}

		err := c.Try(ctx, timeout)
		if err != nil {
			attempt.Error = err.Error()
		}

		outcome.Attempts = append(outcome.Attempts, attempt)

		if s.OnAttempt != nil {
			s.OnAttempt(attempt)
		}

		if err == nil {
			outcome.Matched = &outcome.Attempts[len(outcome.Attempts)-1]

			return outcome, nil
		}
	}

	return outcome, &ExhaustedError{Attempts: outcome.Attempts}
}
