package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason    = "reason"
	MetaStage     = "stage"
	MetaField     = "field"
	MetaTaskID    = "task_id"
	MetaAction    = "action"
	MetaSelector  = "selector"
	MetaURL       = "url"
	MetaIteration = "iteration"
	MetaAttempted = "attempted"

	StagePreparation = "preparation"
	StageSession     = "session"
	StageDecision    = "decision"
	StageExecution   = "execution"
	StageScreenshot  = "screenshot"
	StageNavigation  = "navigation"
	StageInteraction = "interaction"
	StageExtraction  = "extraction"
	StageConfig      = "config"

	CodeInternal         = "internal"
	CodeInvalidArgument  = "invalid_argument"
	CodeNotFound         = "not_found"
	CodeUnavailable      = "unavailable"
	CodeTimeout          = "timeout"
	CodeMaxIterations    = "max_iterations"
	CodeDeadlineExceeded = "deadline_exceeded"
	CodeCancelled        = "cancelled"
	CodeGaveUp           = "gave_up"
	CodeActionFailed     = "action_failed"
	CodeBlockedDomain    = "blocked_domain"
	CodeSchemaViolation  = "schema_violation"
	CodeAIError          = "ai_error"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

// CodeOf returns the code of the outermost *Error in the chain, or CodeInternal.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return CodeInternal
}

// ReasonOf returns the reason metadata of the outermost *Error in the chain.
func ReasonOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		if reason, ok := appErr.Metadata[MetaReason].(string); ok {
			return reason
		}
	}

	return ""
}
