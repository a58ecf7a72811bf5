package render

import (
	"testing"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/google/go-cmp/cmp"
)

func TestIssuesSkipsValidDisabledAndHiddenFields(t *testing.T) {
	t.Parallel()

	invalid := func(content any) controller.ValidateFunc {
		return func(any, map[string]any) controller.Outcome {
			return controller.Message{Content: content}
		}
	}
	c, err := controller.New(controller.Config{
		InitialValues: map[string]any{"email": "", "name": "", "notes": "", "ok": "x"},
		Validation: map[string]controller.ValidateFunc{
			"email": invalid("<em>invalid</em> email"),
			"name":  invalid(true),
			"notes": invalid("too long"),
			"ok":    func(any, map[string]any) controller.Outcome { return nil },
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.SetIsVisible(controller.SetVisible{Key: "notes", IsVisible: false})
	c.Validate()

	want := []Issue{
		{Key: "email", Message: "invalid email"},
		{Key: "name", Message: "invalid"},
	}
	got := Issues(c)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string][]string{"email": {"invalid email"}, "name": {"invalid"}}, IssueMap(got)); diff != "" {
		t.Fatalf("issue map mismatch (-want +got):\n%s", diff)
	}
}
