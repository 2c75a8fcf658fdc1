package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PlanStep is one entry of the append-only audit trail of a run.
type PlanStep struct {
	Iteration int            `json:"iteration_index"`
	Action    ActionName     `json:"requested_action"`
	Arguments map[string]any `json:"arguments"`
	Result    ActionResult   `json:"result"`
	Thought   string         `json:"thought,omitempty"`
	At        time.Time      `json:"at"`
}

// Decision is what the decision-maker returns for one cycle.
type Decision struct {
	Action    ActionName
	Arguments map[string]any
	Thought   string
}

type Observation struct {
	Iteration   int           `json:"iteration"`
	LastAction  ActionName    `json:"last_action,omitempty"`
	LastResult  *ActionResult `json:"last_result,omitempty"`
	Location    Location      `json:"location"`
	TextExcerpt string        `json:"text_excerpt,omitempty"`
	Remaining   int           `json:"remaining_iterations"`
}

type DecisionRequest struct {
	Brief       string
	Actions     []ActionSpec
	History     []PlanStep
	Observation Observation
}

type FinalAnswerRequest struct {
	Brief       string
	Schema      string
	History     []PlanStep
	Observation Observation
	StopReason  string
}

type ExecutorState string

const (
	StateInit            ExecutorState = "INIT"
	StateRunning         ExecutorState = "RUNNING"
	StateTerminalSuccess ExecutorState = "TERMINAL_SUCCESS"
	StateTerminalFailure ExecutorState = "TERMINAL_FAILURE"
)

// Failure is the structured error handed back for every terminal failure.
type Failure struct {
	Code         string     `json:"code"`
	Reason       string     `json:"reason"`
	Message      string     `json:"message"`
	LastLocation Location   `json:"last_location"`
	Steps        []PlanStep `json:"steps"`
}

type Run struct {
	ID          uuid.UUID       `json:"id"`
	Task        string          `json:"task"`
	State       ExecutorState   `json:"state"`
	StopReason  string          `json:"stop_reason,omitempty"`
	Steps       []PlanStep      `json:"steps"`
	Result      json.RawMessage `json:"result,omitempty"`
	RawAnswer   string          `json:"-"`
	Failure     *Failure        `json:"failure,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func (r *Run) Succeeded() bool {
	return r.State == StateTerminalSuccess
}
