package render

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type stringer string

func (s stringer) String() string { return string(s) }

func TestMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content any
		want    string
	}{
		{name: "nil", content: nil, want: ""},
		{name: "false", content: false, want: ""},
		{name: "true", content: true, want: "invalid"},
		{name: "string", content: "  required  ", want: "required"},
		{name: "markup stripped", content: "<b>too</b> <script>alert(1)</script>short", want: "too short"},
		{name: "entities decoded", content: "a & b", want: "a & b"},
		{name: "error", content: errors.New("taken"), want: "taken"},
		{name: "stringer", content: stringer("must match"), want: "must match"},
		{name: "slice", content: []string{"a", " a ", "b"}, want: "a; b"},
		{name: "number", content: 42, want: "42"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Message(tc.content); got != tc.want {
				t.Fatalf("Message(%v) = %q, want %q", tc.content, got, tc.want)
			}
		})
	}
}

func TestMergeMessages(t *testing.T) {
	t.Parallel()

	got := MergeMessages([]string{" required ", ""}, "required", "too short")
	if diff := cmp.Diff([]string{"required", "too short"}, got); diff != "" {
		t.Fatalf("merged messages mismatch (-want +got):\n%s", diff)
	}
	if got := MergeMessages(nil, " "); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestErrorMessagesUnwrapsJoinedErrors(t *testing.T) {
	t.Parallel()

	err := errors.Join(errors.New("first"), fmt.Errorf("wrapped: %w", errors.New("second")), errors.New("first"))
	if diff := cmp.Diff([]string{"first", "wrapped: second"}, ErrorMessages(err)); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if ErrorMessages(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
