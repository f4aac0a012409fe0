package webhook

// Verdict is the classifier decision for one delivery.
type Verdict struct {
	Suppress bool
	Rule     string
	Reason   string
}

// ForwardVerdict is the verdict for deliveries no rule matches.
var ForwardVerdict = Verdict{}

// FieldMatch requires the value at Path to equal Want.
type FieldMatch struct {
	Path []string
	Want any
}

// Rule suppresses deliveries of Event whose payload satisfies every field.
type Rule struct {
	Name   string
	Reason string
	Event  string
	Fields []FieldMatch
}

// Matches reports whether the delivery satisfies the rule. A missing field
// is a non-match, never an error.
func (r Rule) Matches(event string, payload *Payload) bool {
	if event != r.Event {
		return false
	}
	for _, f := range r.Fields {
		if !payload.Lookup(f.Path...).Equals(f.Want) {
			return false
		}
	}
	return true
}

const (
	actionsBot  = "github-actions[bot]"
	actionsUser = "actions-user"
)

var suppressionRules = []Rule{
	{
		Name:   "gh-pages-republish",
		Reason: "automated gh-pages force push by github-actions",
		Event:  "push",
		Fields: []FieldMatch{
			{Path: []string{"ref"}, Want: "refs/heads/gh-pages"},
			{Path: []string{"sender", "login"}, Want: actionsBot},
			{Path: []string{"pusher", "name"}, Want: actionsBot},
			{Path: []string{"forced"}, Want: true},
		},
	},
	{
		Name:   "appledb-submodule-update",
		Reason: "automated AppleDB submodule update",
		Event:  "push",
		Fields: []FieldMatch{
			{Path: []string{"repository", "organization"}, Want: "cfw-guide"},
			{Path: []string{"sender", "login"}, Want: "emiyl"},
			{Path: []string{"head_commit", "author", "username"}, Want: actionsUser},
			{Path: []string{"head_commit", "committer", "username"}, Want: actionsUser},
			{Path: []string{"head_commit", "message"}, Want: "Update AppleDB submodule"},
		},
	},
}

// Rules returns a copy of the built-in suppression rules.
func Rules() []Rule {
	out := make([]Rule, len(suppressionRules))
	copy(out, suppressionRules)
	return out
}

// Classify decides whether a delivery is suppressed. The event name is
// matched exactly as received.
func Classify(event string, payload *Payload) Verdict {
	return classifyWith(suppressionRules, event, payload)
}

func classifyWith(rules []Rule, event string, payload *Payload) Verdict {
	for _, r := range rules {
		if r.Matches(event, payload) {
			return Verdict{Suppress: true, Rule: r.Name, Reason: r.Reason}
		}
	}
	return ForwardVerdict
}
