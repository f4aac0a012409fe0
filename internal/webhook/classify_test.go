package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ghPagesPush() map[string]any {
	return map[string]any{
		"ref":    "refs/heads/gh-pages",
		"forced": true,
		"sender": map[string]any{"login": "github-actions[bot]"},
		"pusher": map[string]any{"name": "github-actions[bot]"},
	}
}

func appleDBPush() map[string]any {
	return map[string]any{
		"ref":        "refs/heads/main",
		"repository": map[string]any{"organization": "cfw-guide"},
		"sender":     map[string]any{"login": "emiyl"},
		"head_commit": map[string]any{
			"message":   "Update AppleDB submodule",
			"author":    map[string]any{"username": "actions-user"},
			"committer": map[string]any{"username": "actions-user"},
		},
	}
}

func mustPayload(t *testing.T, v any) *Payload {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	p, err := ParsePayload(data)
	require.NoError(t, err)
	return p
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		event    string
		payload  func() map[string]any
		mutate   func(m map[string]any)
		suppress bool
		rule     string
	}{
		{name: "gh-pages republish", event: "push", payload: ghPagesPush, suppress: true, rule: "gh-pages-republish"},
		{name: "appledb submodule update", event: "push", payload: appleDBPush, suppress: true, rule: "appledb-submodule-update"},
		{
			name: "gh-pages not forced", event: "push", payload: ghPagesPush,
			mutate: func(m map[string]any) { m["forced"] = false },
		},
		{
			name: "gh-pages forced as string", event: "push", payload: ghPagesPush,
			mutate: func(m map[string]any) { m["forced"] = "true" },
		},
		{
			name: "gh-pages missing pusher", event: "push", payload: ghPagesPush,
			mutate: func(m map[string]any) { delete(m, "pusher") },
		},
		{
			name: "gh-pages other branch", event: "push", payload: ghPagesPush,
			mutate: func(m map[string]any) { m["ref"] = "refs/heads/main" },
		},
		{
			name: "gh-pages human sender", event: "push", payload: ghPagesPush,
			mutate: func(m map[string]any) { m["sender"] = map[string]any{"login": "octocat"} },
		},
		{
			name: "appledb different message", event: "push", payload: appleDBPush,
			mutate: func(m map[string]any) {
				m["head_commit"].(map[string]any)["message"] = "Update AppleDB submodule\n"
			},
		},
		{
			name: "appledb null head_commit", event: "push", payload: appleDBPush,
			mutate: func(m map[string]any) { m["head_commit"] = nil },
		},
		{
			name: "appledb repository organization missing", event: "push", payload: appleDBPush,
			mutate: func(m map[string]any) { m["repository"] = map[string]any{} },
		},
		{name: "gh-pages payload on other event", event: "pull_request", payload: ghPagesPush},
		{name: "event name is case-sensitive", event: "Push", payload: ghPagesPush},
		{name: "empty event", event: "", payload: appleDBPush},
		{name: "empty object", event: "push", payload: func() map[string]any { return map[string]any{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.payload()
			if tt.mutate != nil {
				tt.mutate(m)
			}
			v := Classify(tt.event, mustPayload(t, m))
			assert.Equal(t, tt.suppress, v.Suppress)
			assert.Equal(t, tt.rule, v.Rule)
			if tt.suppress {
				assert.NotEmpty(t, v.Reason)
			} else {
				assert.Equal(t, ForwardVerdict, v)
			}
		})
	}
}

func TestClassifyNonObjectPayload(t *testing.T) {
	for _, body := range []string{`[]`, `"push"`, `null`, `42`} {
		p, err := ParsePayload([]byte(body))
		require.NoError(t, err)
		assert.False(t, Classify("push", p).Suppress, body)
	}
}

func TestClassifyIgnoresExtraFields(t *testing.T) {
	m := ghPagesPush()
	m["extra"] = map[string]any{"anything": []any{1, 2}}
	m["sender"].(map[string]any)["id"] = 41898282
	assert.True(t, Classify("push", mustPayload(t, m)).Suppress)
}

func TestClassifyWithFirstMatchWins(t *testing.T) {
	rules := []Rule{
		{Name: "first", Reason: "r1", Event: "push"},
		{Name: "second", Reason: "r2", Event: "push"},
	}
	v := classifyWith(rules, "push", mustPayload(t, map[string]any{}))
	assert.Equal(t, Verdict{Suppress: true, Rule: "first", Reason: "r1"}, v)
}

func TestRulesReturnsCopy(t *testing.T) {
	rules := Rules()
	require.Len(t, rules, 2)
	rules[0].Event = "mutated"
	assert.Equal(t, "push", Rules()[0].Event)
}
