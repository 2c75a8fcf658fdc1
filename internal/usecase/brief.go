package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Stanleyhoo1/Afterversed/internal/taskconfig"
)

// Brief renders a task into the text the decision-maker sees on every turn.
func Brief(task *taskconfig.TaskConfiguration, maxIterations int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Task: %s\n", task.Name)

	if len(task.GoalKeywords) > 0 {
		fmt.Fprintf(&b, "Goal: reach a page about %s.\n", strings.Join(task.GoalKeywords, ", "))
	}

	if len(task.Inputs) > 0 {
		b.WriteString("\nInputs:\n")

		keys := make([]string, 0, len(task.Inputs))
		for k := range task.Inputs {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, task.Inputs[k])
		}
	}

	if task.SeedURL != "" {
		fmt.Fprintf(&b, "\nStart by opening %s\n", task.SeedURL)
	}

	if len(task.Instructions) > 0 {
		b.WriteString("\nPlan:\n")

		for i, step := range task.Instructions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}

	b.WriteString("\nRules:\n")

	if len(task.AllowDomains) > 0 {
		fmt.Fprintf(&b, "- Only follow links on: %s\n", strings.Join(task.AllowDomains, ", "))
	}

	if len(task.BlockDomains) > 0 {
		fmt.Fprintf(&b, "- Never open: %s\n", strings.Join(task.BlockDomains, ", "))
	}

	if len(task.PreferKeywords) > 0 {
		fmt.Fprintf(&b, "- Prefer links mentioning: %s\n", strings.Join(task.PreferKeywords, ", "))
	}

	if len(task.GoalSelectors) > 0 {
		fmt.Fprintf(&b, "- Useful selectors: %s\n", strings.Join(task.GoalSelectors, ", "))
	}

	if task.StopOnForm {
		b.WriteString("- The task is complete as soon as detect_form reports visible form fields. Do not fill them in.\n")
	}

	if task.AllowFinish {
		b.WriteString("- Call finish once the current page holds everything needed for the answer.\n")
	}

	fmt.Fprintf(&b, "- You have at most %d actions. Call give_up if the goal is out of reach.\n", maxIterations)

	return b.String()
}
