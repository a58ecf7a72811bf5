package render

import (
	"github.com/goliatone/go-formstate/pkg/controller"
)

// Issue is the message shown for one invalid field.
type Issue struct {
	Key     string
	Message string
	// Pending is set while an async validation is still running.
	Pending bool
}

// Issues lists invalid fields in creation order. Disabled and hidden fields
// never produce issues, matching the controller's notion of validity.
func Issues(c *controller.Controller) []Issue {
	return IssuesFor(c, c.Keys())
}

// IssuesFor is Issues restricted to keys, in that order.
func IssuesFor(c *controller.Controller, keys []string) []Issue {
	var out []Issue
	for _, key := range keys {
		field, ok := c.GetField(key)
		if !ok || field.IsValid {
			continue
		}
		msg := Message(field.ValidationResult)
		if msg == "" {
			msg = "invalid"
		}
		out = append(out, Issue{Key: key, Message: msg, Pending: field.ValidationInProgress})
	}
	return out
}

// IssueMap groups issues by field key.
func IssueMap(issues []Issue) map[string][]string {
	if len(issues) == 0 {
		return nil
	}
	out := make(map[string][]string, len(issues))
	for _, issue := range issues {
		out[issue.Key] = MergeMessages(out[issue.Key], issue.Message)
	}
	return out
}
