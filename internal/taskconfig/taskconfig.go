// Package taskconfig describes a navigation goal declaratively and decides
// when that goal has been reached.
package taskconfig

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/Stanleyhoo1/Afterversed/pkg/apperr"
	"gopkg.in/yaml.v3"
)

// SchemaKind names the document the final answer must validate against.
type SchemaKind string

const (
	SchemaRegistrar SchemaKind = "registrar"
	SchemaCatalogue SchemaKind = "catalogue"
	SchemaDirectory SchemaKind = "directory"
	SchemaAny       SchemaKind = "any"
)

func (k SchemaKind) valid() bool {
	switch k {
	case SchemaRegistrar, SchemaCatalogue, SchemaDirectory, SchemaAny:
		return true
	default:
		return false
	}
}

type TaskConfiguration struct {
	Name    string `yaml:"name" json:"name"`
	SeedURL string `yaml:"seed_url,omitempty" json:"seed_url,omitempty"`

	GoalKeywords  []string `yaml:"goal_keywords,omitempty" json:"goal_keywords,omitempty"`
	GoalSelectors []string `yaml:"goal_selectors,omitempty" json:"goal_selectors,omitempty"`

	AllowDomains   []string `yaml:"allow_domains,omitempty" json:"allow_domains,omitempty"`
	BlockDomains   []string `yaml:"block_domains,omitempty" json:"block_domains,omitempty"`
	PreferKeywords []string `yaml:"prefer_keywords,omitempty" json:"prefer_keywords,omitempty"`

	StopURLPatterns []string `yaml:"stop_url_patterns,omitempty" json:"stop_url_patterns,omitempty"`
	StopPhrases     []string `yaml:"stop_phrases,omitempty" json:"stop_phrases,omitempty"`
	StopOnForm      bool     `yaml:"stop_on_form,omitempty" json:"stop_on_form,omitempty"`
	AllowFinish     bool     `yaml:"allow_finish,omitempty" json:"allow_finish,omitempty"`

	// MaxIterations of zero falls back to the configured default.
	MaxIterations int `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`

	Instructions []string          `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	Inputs       map[string]string `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	ResultSchema SchemaKind        `yaml:"result_schema,omitempty" json:"result_schema,omitempty"`
}

func (t *TaskConfiguration) Validate() error {
	const op = "TaskConfiguration.Validate"

	if strings.TrimSpace(t.Name) == "" {
		return apperr.InvalidReqError(op, "name", errors.New("task name is required"))
	}

	if t.MaxIterations < 0 {
		return apperr.InvalidReqError(op, "max_iterations",
			fmt.Errorf("max_iterations must not be negative, got %d", t.MaxIterations))
	}

	if t.SeedURL != "" {
		u, err := url.Parse(t.SeedURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return apperr.InvalidReqError(op, "seed_url", fmt.Errorf("seed_url must be an http(s) URL, got %q", t.SeedURL))
		}
	}

	for _, pattern := range t.StopURLPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return apperr.InvalidReqError(op, "stop_url_patterns", fmt.Errorf("compile %q: %w", pattern, err))
		}
	}

	if t.ResultSchema != "" && !t.ResultSchema.valid() {
		return apperr.InvalidReqError(op, "result_schema", fmt.Errorf("unknown result schema %q", t.ResultSchema))
	}

	return nil
}

// Schema returns the declared result schema, defaulting to any.
func (t *TaskConfiguration) Schema() SchemaKind {
	if t.ResultSchema == "" {
		return SchemaAny
	}

	return t.ResultSchema
}

// Iterations resolves the loop bound against a configured fallback.
func (t *TaskConfiguration) Iterations(fallback int) int {
	if t.MaxIterations > 0 {
		return t.MaxIterations
	}

	return fallback
}

// LinkFilter builds the enumerate_links filter; domainSuffix narrows it further.
func (t *TaskConfiguration) LinkFilter(domainSuffix string) entity.LinkFilter {
	return entity.LinkFilter{
		Allow:        t.AllowDomains,
		Block:        t.BlockDomains,
		Prefer:       t.PreferKeywords,
		DomainSuffix: entity.NormalizeSuffix(domainSuffix),
	}
}

// BlocksURL reports whether navigating to rawURL would follow a blocked domain.
func (t *TaskConfiguration) BlocksURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return entity.MatchesAnySuffix(u.Hostname(), t.BlockDomains)
}

// LoadFile reads a task from YAML (JSON is accepted as a YAML subset).
// Unknown keys are rejected so typos in stop conditions do not go unnoticed.
func LoadFile(path string) (*TaskConfiguration, error) {
	const op = "taskconfig.LoadFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason: "task_file_unreadable",
			apperr.MetaStage:  apperr.StageConfig,
		})
	}

	return Parse(data)
}

func Parse(data []byte) (*TaskConfiguration, error) {
	const op = "taskconfig.Parse"

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var task TaskConfiguration
	if err := decoder.Decode(&task); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInvalidArgument, err, map[string]any{
			apperr.MetaReason: "task_file_malformed",
			apperr.MetaStage:  apperr.StageConfig,
		})
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return &task, nil
}
