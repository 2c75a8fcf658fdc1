package taskconfig

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Stanleyhoo1/Afterversed/internal/entity"
)

const (
	StopFormDetected = "form_detected"
	StopURLPattern   = "url_pattern"
	StopPhrase       = "phrase"
	StopFinished     = "finished"
)

// StopInput is the page state right after one action.
type StopInput struct {
	Step     entity.PlanStep
	Location entity.Location
	Text     string
}

// StopEvaluator holds the compiled success conditions of one task.
type StopEvaluator struct {
	onForm   bool
	patterns []*regexp.Regexp
	phrases  []string
	scope    entity.LinkFilter
}

func NewStopEvaluator(task *TaskConfiguration) (*StopEvaluator, error) {
	e := &StopEvaluator{
		onForm: task.StopOnForm,
		scope:  entity.LinkFilter{Allow: task.AllowDomains, Block: task.BlockDomains},
	}

	for _, p := range task.StopURLPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile stop pattern %q: %w", p, err)
		}

		e.patterns = append(e.patterns, re)
	}

	for _, phrase := range task.StopPhrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" {
			e.phrases = append(e.phrases, phrase)
		}
	}

	return e, nil
}

// Evaluate returns the reason a success stop fired, or "" when none did.
// A detected form wins over url patterns and phrases. Patterns match on any
// host that is not block-listed, since booking forms are often hosted off the
// allowed domains. Phrases only count on hosts the domain lists admit.
func (e *StopEvaluator) Evaluate(in StopInput) string {
	if e.onForm && in.Step.Action == entity.ActionDetectForm && in.Step.Result.OK && in.Step.Result.Bool("has_fields") {
		return StopFormDetected
	}

	host := hostOf(in.Location.URL)
	if entity.MatchesAnySuffix(host, e.scope.Block) {
		return ""
	}

	for _, re := range e.patterns {
		if in.Location.URL != "" && re.MatchString(in.Location.URL) {
			return StopURLPattern + ":" + re.String()
		}
	}

	if len(e.phrases) > 0 && in.Text != "" && e.scope.Admits(host) {
		text := strings.ToLower(in.Text)

		for _, phrase := range e.phrases {
			if strings.Contains(text, phrase) {
				return StopPhrase + ":" + phrase
			}
		}
	}

	return ""
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return u.Hostname()
}
