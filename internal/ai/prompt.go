package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Stanleyhoo1/Afterversed/internal/entity"
)

// historyWindow bounds how many recent steps are replayed to the model.
const historyWindow = 12

const systemPrompt = `You are a deterministic search and navigation agent driving a single browser tab.
Use only the functions you are given and call exactly one function per turn.
Never invent URLs you have not seen. Do not revisit pages that already failed.
If the goal cannot be reached, call give_up with a short reason.`

const finalSystemPrompt = `You summarise the outcome of a browser navigation task.
Return only valid JSON that matches the schema you are given. No prose, no commentary.`

func renderDecisionPrompt(req *entity.DecisionRequest) string {
	var prompt strings.Builder

	prompt.WriteString(req.Brief)
	prompt.WriteString("\n\n")
	writeHistory(&prompt, req.History)
	writeObservation(&prompt, req.Observation)

	fmt.Fprintf(&prompt, "\nChoose the next action. %d iteration(s) remain.", req.Observation.Remaining)

	return prompt.String()
}

func renderFinalPrompt(req *entity.FinalAnswerRequest) string {
	var prompt strings.Builder

	prompt.WriteString(req.Brief)
	prompt.WriteString("\n\n")

	if req.StopReason != "" {
		fmt.Fprintf(&prompt, "Navigation stopped: %s\n\n", req.StopReason)
	}

	writeHistory(&prompt, req.History)
	writeObservation(&prompt, req.Observation)

	prompt.WriteString("\nReturn the final result as JSON only.")

	if req.Schema != "" {
		prompt.WriteString(" It must validate against this JSON schema:\n")
		prompt.WriteString(req.Schema)
	}

	return prompt.String()
}

func writeHistory(b *strings.Builder, history []entity.PlanStep) {
	if len(history) == 0 {
		b.WriteString("No actions taken yet.\n")

		return
	}

	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
		fmt.Fprintf(b, "Steps so far (%d earlier steps omitted):\n", start)
	} else {
		b.WriteString("Steps so far:\n")
	}

	for _, s := range history[start:] {
		args, _ := json.Marshal(s.Arguments)
		result, _ := json.Marshal(s.Result)

		fmt.Fprintf(b, "%d. %s %s -> %s\n", s.Iteration+1, s.Action, args, result)
	}
}

func writeObservation(b *strings.Builder, obs entity.Observation) {
	fmt.Fprintf(b, "\nCurrent page: %s", obs.Location.URL)

	if obs.Location.Title != "" {
		fmt.Fprintf(b, " (%s)", obs.Location.Title)
	}

	b.WriteString("\n")

	if obs.TextExcerpt != "" {
		b.WriteString("Visible text:\n")
		b.WriteString(obs.TextExcerpt)
		b.WriteString("\n")
	}
}
