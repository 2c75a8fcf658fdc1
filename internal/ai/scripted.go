package ai

import (
	"context"
	"fmt"
	"os"

	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/Stanleyhoo1/Afterversed/pkg/logg"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const scriptedPolicyName = "ScriptedPolicy"

// Script is a recorded sequence of decisions replayed without a model.
type Script struct {
	Steps []ScriptStep `yaml:"steps"`
	Final string       `yaml:"final"`
}

type ScriptStep struct {
	Action    string         `yaml:"action"`
	Arguments map[string]any `yaml:"arguments"`
	Thought   string         `yaml:"thought"`
}

func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	return ParseScript(data)
}

func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}

	for i, step := range s.Steps {
		if step.Action == "" {
			return nil, fmt.Errorf("script step %d has no action", i)
		}
	}

	return &s, nil
}

// ScriptedPolicy answers step N of a run with Steps[N]. It keeps no state
// between calls, so one script can drive several runs.
type ScriptedPolicy struct {
	script *Script
	logger *zap.Logger
}

func NewScriptedPolicy(script *Script, logger *zap.Logger) *ScriptedPolicy {
	return &ScriptedPolicy{
		script: script,
		logger: logger.With(zap.String(logg.Layer, scriptedPolicyName)),
	}
}

func (s *ScriptedPolicy) ChooseAction(_ context.Context, req *entity.DecisionRequest) (*entity.Decision, error) {
	i := req.Observation.Iteration
	if i < 0 || i >= len(s.script.Steps) {
		s.logger.Debug("Script exhausted", zap.Int(logg.Iteration, i))

		return &entity.Decision{
			Action:    entity.ActionGiveUp,
			Arguments: map[string]any{"reason": "script exhausted"},
		}, nil
	}

	step := s.script.Steps[i]

	args := make(map[string]any, len(step.Arguments))
	for k, v := range step.Arguments {
		args[k] = v
	}

	return &entity.Decision{
		Action:    entity.ActionName(step.Action),
		Arguments: args,
		Thought:   step.Thought,
	}, nil
}

func (s *ScriptedPolicy) FinalAnswer(context.Context, *entity.FinalAnswerRequest) (string, error) {
	return s.script.Final, nil
}
