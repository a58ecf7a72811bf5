package render

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNest(t *testing.T) {
	t.Parallel()

	got, err := Nest(map[string]any{
		"name":            "Ada",
		"address.city":    "London",
		"address.country": "UK",
		"meta.tags.main":  "math",
	})
	if err != nil {
		t.Fatalf("Nest: %v", err)
	}
	want := map[string]any{
		"name":    "Ada",
		"address": map[string]any{"city": "London", "country": "UK"},
		"meta":    map[string]any{"tags": map[string]any{"main": "math"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("nested values mismatch (-want +got):\n%s", diff)
	}
}

func TestNestRejectsCollisions(t *testing.T) {
	t.Parallel()

	cases := []map[string]any{
		{"address": "x", "address.city": "London"},
		{"address..city": "London"},
	}
	for _, values := range cases {
		if _, err := Nest(values); err == nil {
			t.Fatalf("expected error for %v", values)
		}
	}
}
