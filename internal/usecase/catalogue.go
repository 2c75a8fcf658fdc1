package usecase

import "github.com/Stanleyhoo1/Afterversed/internal/entity"

func object(required []string, props map[string]*entity.ParamSpec) *entity.ParamSpec {
	return &entity.ParamSpec{Type: "object", Properties: props, Required: required}
}

func str(desc string) *entity.ParamSpec {
	return &entity.ParamSpec{Type: "string", Description: desc}
}

func integer(desc string) *entity.ParamSpec {
	return &entity.ParamSpec{Type: "integer", Description: desc}
}

func boolean(desc string) *entity.ParamSpec {
	return &entity.ParamSpec{Type: "boolean", Description: desc}
}

func enum(desc string, values ...string) *entity.ParamSpec {
	return &entity.ParamSpec{Type: "string", Description: desc, Enum: values}
}

var timeoutParam = integer("Timeout in milliseconds. Optional.")

// actionCatalogue is the closed set of actions offered to the decision-maker.
var actionCatalogue = []entity.ActionSpec{
	{
		Name:        entity.ActionOpen,
		Description: "Open a URL in the browser tab and wait for the DOM to load.",
		Parameters: object([]string{"url"}, map[string]*entity.ParamSpec{
			"url":        str("Absolute http(s) URL."),
			"timeout_ms": timeoutParam,
		}),
	},
	{
		Name:        entity.ActionClickSelector,
		Description: "Click the first element matching a CSS selector once it is visible.",
		Parameters: object([]string{"selector"}, map[string]*entity.ParamSpec{
			"selector":   str("CSS selector."),
			"timeout_ms": timeoutParam,
		}),
	},
	{
		Name:        entity.ActionClickRole,
		Description: "Click a button or link whose accessible name matches a case-insensitive regular expression.",
		Parameters: object([]string{"name_pattern"}, map[string]*entity.ParamSpec{
			"role":         enum("ARIA role, defaults to button.", "button", "link"),
			"name_pattern": str("Regular expression matched against the accessible name."),
			"timeout_ms":   timeoutParam,
		}),
	},
	{
		Name:        entity.ActionClickText,
		Description: "Click the first element containing the given text.",
		Parameters: object([]string{"text"}, map[string]*entity.ParamSpec{
			"text":       str("Visible text."),
			"exact":      boolean("Require an exact, case-sensitive match."),
			"timeout_ms": timeoutParam,
		}),
	},
	{
		Name:        entity.ActionClickFirstOf,
		Description: "Try several ways to click something, in order, and stop at the first that works. Use texts for a quick list like \"Start now|Continue|Next\".",
		Parameters: object(nil, map[string]*entity.ParamSpec{
			"candidates": {
				Type:        "array",
				Description: "Ordered candidates.",
				Items: object([]string{"kind", "value"}, map[string]*entity.ParamSpec{
					"kind":  enum("How to locate the element.", "role", "text", "selector"),
					"role":  enum("Role for kind=role.", "button", "link"),
					"value": str("Name pattern, text or CSS selector."),
					"exact": boolean("Exact text match for kind=text."),
				}),
			},
			"texts":           str("Pipe-separated texts tried as button names, then as plain text."),
			"timeout_each_ms": integer("Per-candidate timeout in milliseconds, capped at 3000."),
		}),
	},
	{
		Name:        entity.ActionFill,
		Description: "Type a value into an input. Only the length of the value is reported back.",
		Parameters: object([]string{"selector", "value"}, map[string]*entity.ParamSpec{
			"selector":   str("CSS selector of the field."),
			"value":      str("Value to enter."),
			"timeout_ms": timeoutParam,
		}),
	},
	{
		Name:        entity.ActionWaitFor,
		Description: "Wait until an element reaches a state.",
		Parameters: object([]string{"selector"}, map[string]*entity.ParamSpec{
			"selector":   str("CSS selector."),
			"state":      enum("Target state, defaults to visible.", "visible", "hidden", "attached", "detached"),
			"timeout_ms": timeoutParam,
		}),
	},
	{
		Name:        entity.ActionScroll,
		Description: "Scroll the page down (negative pixels scroll up).",
		Parameters: object(nil, map[string]*entity.ParamSpec{
			"pixels":   integer("Pixels per scroll, defaults to 800."),
			"repeats":  integer("Number of scrolls, defaults to 1."),
			"delay_ms": integer("Pause between scrolls, defaults to 300."),
		}),
	},
	{
		Name:        entity.ActionReadLocation,
		Description: "Return the current URL and page title.",
		Parameters:  object(nil, nil),
	},
	{
		Name:        entity.ActionScreenshot,
		Description: "Save a screenshot and return its absolute path.",
		Parameters: object(nil, map[string]*entity.ParamSpec{
			"path":      str("File name under the screenshot directory."),
			"full_page": boolean("Capture the full scrollable page."),
		}),
	},
	{
		Name:        entity.ActionDetectForm,
		Description: "Check whether the page shows visible form fields. Never fails.",
		Parameters: object(nil, map[string]*entity.ParamSpec{
			"timeout_ms": timeoutParam,
		}),
	},
	{
		Name:        entity.ActionEnumerateLinks,
		Description: "List visible links allowed by the task's domain rules, preferred links first.",
		Parameters: object(nil, map[string]*entity.ParamSpec{
			"limit":         integer("Maximum links, defaults to 100."),
			"domain_filter": str("Keep only hosts ending with this suffix, e.g. gov.uk."),
		}),
	},
}

var finishSpec = entity.ActionSpec{
	Name:        entity.ActionFinish,
	Description: "Declare that the page now holds everything needed for the final answer.",
	Parameters: object(nil, map[string]*entity.ParamSpec{
		"reason": str("What was found."),
	}),
}

var giveUpSpec = entity.ActionSpec{
	Name:        entity.ActionGiveUp,
	Description: "Stop because the goal cannot be reached.",
	Parameters: object([]string{"reason"}, map[string]*entity.ParamSpec{
		"reason": str("Why the task cannot continue."),
	}),
}

// Catalogue returns the actions offered for one task. finish is only listed
// when the task lets the decision-maker end the run itself.
func Catalogue(allowFinish bool) []entity.ActionSpec {
	specs := make([]entity.ActionSpec, 0, len(actionCatalogue)+2)
	specs = append(specs, actionCatalogue...)

	if allowFinish {
		specs = append(specs, finishSpec)
	}

	return append(specs, giveUpSpec)
}
