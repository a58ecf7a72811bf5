package render

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncoders(t *testing.T) {
	t.Parallel()

	values := map[string]any{
		"name":  "Ada Lovelace",
		"age":   36,
		"tags":  []any{"math", "poetry"},
		"extra": map[string]any{"city": "London"},
		"notes": nil,
	}
	cases := []struct {
		format string
		want   string
	}{
		{format: "json", want: `{"age":36,"extra":{"city":"London"},"name":"Ada Lovelace","notes":null,"tags":["math","poetry"]}`},
		{format: "form", want: "age=36&extra.city=London&name=Ada+Lovelace&tags%5B%5D=math&tags%5B%5D=poetry"},
		{format: "pretty", want: "age=36\nextra.city=London\nname=Ada Lovelace\nnotes=\ntags[0]=math\ntags[1]=poetry\n"},
	}

	reg := DefaultRegistry()
	for _, tc := range cases {
		t.Run(tc.format, func(t *testing.T) {
			enc, err := reg.Get(tc.format)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			got, err := enc.Encode(values)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if diff := cmp.Diff(tc.want, string(got)); diff != "" {
				t.Fatalf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	if diff := cmp.Diff([]string{"form", "json", "pretty"}, reg.List()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if err := reg.Register(JSONEncoder{}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := reg.Register(nil); err == nil {
		t.Fatalf("expected nil encoder error")
	}
	if _, err := reg.Get("xml"); err == nil {
		t.Fatalf("expected unknown encoder error")
	}
	enc, _ := reg.Get("form")
	if enc.ContentType() != "application/x-www-form-urlencoded" {
		t.Fatalf("unexpected content type %q", enc.ContentType())
	}
}
