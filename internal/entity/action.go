package entity

import "strings"

// ActionResult is the single value every primitive action returns.
type ActionResult struct {
	OK      bool           `json:"ok"`
	Payload map[string]any `json:"payload,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func Succeeded(payload map[string]any) ActionResult {
	if payload == nil {
		payload = make(map[string]any)
	}

	return ActionResult{OK: true, Payload: payload}
}

// Failed captures a transient action failure. Payload may carry diagnostics
// such as the list of attempted candidates.
func Failed(err error, payload map[string]any) ActionResult {
	res := ActionResult{OK: false, Payload: payload}
	if err != nil {
		res.Error = err.Error()
	}

	return res
}

// Bool reads a boolean payload field.
func (r ActionResult) Bool(key string) bool {
	v, _ := r.Payload[key].(bool)

	return v
}

// String reads a string payload field.
func (r ActionResult) String(key string) string {
	v, _ := r.Payload[key].(string)

	return v
}

type ActionName string

const (
	ActionOpen           ActionName = "open"
	ActionClickSelector  ActionName = "click_selector"
	ActionClickRole      ActionName = "click_role"
	ActionClickText      ActionName = "click_text"
	ActionClickFirstOf   ActionName = "click_first_of"
	ActionFill           ActionName = "fill"
	ActionWaitFor        ActionName = "wait_for"
	ActionScroll         ActionName = "scroll"
	ActionReadLocation   ActionName = "read_location"
	ActionScreenshot     ActionName = "screenshot"
	ActionDetectForm     ActionName = "detect_form"
	ActionEnumerateLinks ActionName = "enumerate_links"

	// Control verbs are not browser actions; the executor interprets them.
	ActionFinish ActionName = "finish"
	ActionGiveUp ActionName = "give_up"
)

func (a ActionName) IsControl() bool {
	return a == ActionFinish || a == ActionGiveUp
}

// CandidateKind is the mechanism used to locate a fallback candidate.
type CandidateKind string

const (
	CandidateRole     CandidateKind = "role"
	CandidateText     CandidateKind = "text"
	CandidateSelector CandidateKind = "selector"
)

type ClickCandidate struct {
	Kind  CandidateKind `json:"kind"`
	Role  string        `json:"role,omitempty"`
	Value string        `json:"value"`
	Exact bool          `json:"exact,omitempty"`
}

// Label is the human readable form used in attempt traces.
func (c ClickCandidate) Label() string {
	switch c.Kind {
	case CandidateRole:
		role := c.Role
		if role == "" {
			role = "button"
		}

		return "role=" + role + " name~/" + c.Value + "/i"
	case CandidateText:
		if c.Exact {
			return "text=" + c.Value + " (exact)"
		}

		return "text=" + c.Value
	default:
		return c.Value
	}
}

type Location struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
	Host string `json:"host"`
	Site string `json:"site,omitempty"`
}

// LinkFilter is applied by enumerate_links. Block always wins over Allow.
type LinkFilter struct {
	Allow        []string
	Block        []string
	Prefer       []string
	DomainSuffix string
}

// Blocked reports whether host falls under any blocked suffix.
func (f LinkFilter) Blocked(host string) bool {
	return MatchesAnySuffix(host, f.Block)
}

// Allowed reports whether host passes the allow list. An empty list allows everything.
func (f LinkFilter) Allowed(host string) bool {
	if len(f.Allow) == 0 {
		return true
	}

	return MatchesAnySuffix(host, f.Allow)
}

// Admits applies block, then allow, then the optional single domain suffix.
func (f LinkFilter) Admits(host string) bool {
	if f.Blocked(host) || !f.Allowed(host) {
		return false
	}

	if f.DomainSuffix != "" && !MatchesSuffix(host, f.DomainSuffix) {
		return false
	}

	return true
}

// NormalizeSuffix lower-cases a domain suffix and drops a leading dot.
func NormalizeSuffix(suffix string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(suffix)), ".")
}

// MatchesSuffix is true when host equals suffix or ends with "."+suffix,
// so "gov.uk" matches "www.gov.uk" but never "notgov.uk".
func MatchesSuffix(host, suffix string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	suffix = NormalizeSuffix(suffix)

	if host == "" || suffix == "" {
		return false
	}

	return host == suffix || strings.HasSuffix(host, "."+suffix)
}

func MatchesAnySuffix(host string, suffixes []string) bool {
	for _, s := range suffixes {
		if MatchesSuffix(host, s) {
			return true
		}
	}

	return false
}

// ParamSpec is a small JSON-schema subset used to describe action arguments
// to the decision-maker and to validate what it sends back.
type ParamSpec struct {
	Type        string                `json:"type"`
	Description string                `json:"description,omitempty"`
	Enum        []string              `json:"enum,omitempty"`
	Items       *ParamSpec            `json:"items,omitempty"`
	Properties  map[string]*ParamSpec `json:"properties,omitempty"`
	Required    []string              `json:"required,omitempty"`
}

type ActionSpec struct {
	Name        ActionName `json:"name"`
	Description string     `json:"description"`
	Parameters  *ParamSpec `json:"parameters"`
}
