package logg

// Structured log field keys shared by every layer.
const (
	Layer      = "layer"
	Operation  = "op"
	TaskID     = "task_id"
	TaskName   = "task"
	Action     = "action"
	URL        = "url"
	Selector   = "selector"
	Iteration  = "iteration"
	Candidate  = "candidate"
	Mechanism  = "mechanism"
	StopReason = "stop_reason"
	ProcessID  = "process_id"
)
