package openapi

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/controller"
)

const signupDoc = `
openapi: 3.0.3
info:
  title: Signup
  version: "1.0"
paths:
  /accounts:
    post:
      operationId: createAccount
      summary: Create an account
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Account'
      responses:
        "201":
          description: created
  /health:
    get:
      operationId: health
      responses:
        "200":
          description: ok
components:
  schemas:
    Account:
      type: object
      required: [username, age]
      properties:
        username:
          type: string
          title: Username
          minLength: 3
          x-formstate-order: 1
        age:
          type: integer
          minimum: 18
          x-formstate-order: 2
        plan:
          type: string
          enum: [basic, pro]
          default: basic
        newsletter:
          type: boolean
          default: false
        password:
          type: string
          format: password
`

func loadSignup(t *testing.T) *Document {
	t.Helper()
	doc, err := Load(context.Background(), SourceFromBytes("signup.yaml", []byte(signupDoc)))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return doc
}

func TestDocumentOperations(t *testing.T) {
	t.Parallel()

	doc := loadSignup(t)
	if diff := cmp.Diff([]string{"createAccount", "health"}, doc.Operations()); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}
}

func TestFormFieldsAndDefaults(t *testing.T) {
	t.Parallel()

	form, err := loadSignup(t).Form("createAccount")
	if err != nil {
		t.Fatalf("Form returned error: %v", err)
	}
	if form.Method != "POST" || form.Path != "/accounts" || form.Summary != "Create an account" {
		t.Fatalf("unexpected form header %+v", form)
	}

	type summary struct {
		Key      string
		Label    string
		Control  controller.FieldType
		Required bool
	}
	var got []summary
	for _, f := range form.Fields {
		got = append(got, summary{f.Key, f.Label(), f.ControlType(), f.Required})
	}
	want := []summary{
		{"username", "Username", controller.FieldText, true},
		{"age", "age", controller.FieldText, true},
		{"newsletter", "newsletter", controller.FieldCheckbox, false},
		{"password", "password", controller.FieldPassword, false},
		{"plan", "plan", controller.FieldSelect, false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(map[string]any{"plan": "basic", "newsletter": false}, form.InitialValues()); diff != "" {
		t.Fatalf("initial values mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldValidators(t *testing.T) {
	t.Parallel()

	form, err := loadSignup(t).Form("createAccount")
	if err != nil {
		t.Fatalf("Form returned error: %v", err)
	}
	validators := form.Validators()

	cases := []struct {
		key     string
		value   any
		valid   bool
		content any
	}{
		{key: "username", value: "", content: "required"},
		{key: "username", value: "ab"},
		{key: "username", value: "ada", valid: true},
		{key: "age", value: "abc", content: "must be a whole number"},
		{key: "age", value: "17.5", content: "must be a whole number"},
		{key: "age", value: "17"},
		{key: "age", value: "21", valid: true},
		{key: "age", value: 30, valid: true},
		{key: "plan", value: "gold"},
		{key: "plan", value: "pro", valid: true},
		{key: "newsletter", value: "yes", content: "must be true or false"},
		{key: "newsletter", value: true, valid: true},
		{key: "password", value: "", valid: true},
	}
	for _, tc := range cases {
		res := controller.Resolve(validators[tc.key](tc.value, nil))
		if res.IsValid != tc.valid {
			t.Errorf("%s=%v: valid = %v, want %v (content %v)", tc.key, tc.value, res.IsValid, tc.valid, res.Content)
			continue
		}
		if tc.content != nil && res.Content != tc.content {
			t.Errorf("%s=%v: content = %v, want %v", tc.key, tc.value, res.Content, tc.content)
		}
		if !tc.valid {
			if s, _ := res.Content.(string); s == "" {
				t.Errorf("%s=%v: expected a message", tc.key, tc.value)
			}
		}
	}
}

func TestFormErrors(t *testing.T) {
	t.Parallel()

	doc := loadSignup(t)
	if _, err := doc.Form("missing"); !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
	if _, err := doc.Form("health"); !errors.Is(err, ErrNoRequestSchema) {
		t.Fatalf("expected ErrNoRequestSchema, got %v", err)
	}
}

func TestLoadFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"specs/signup.yaml": {Data: []byte(signupDoc)}}
	doc, err := Load(context.Background(), SourceFromFS(fsys, "specs/signup.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if doc.Location() != "specs/signup.yaml" {
		t.Fatalf("unexpected location %q", doc.Location())
	}

	if _, err := Load(context.Background(), SourceFromFS(fsys, "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := Load(context.Background(), SourceFromBytes("empty", nil)); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestFormDrivesController(t *testing.T) {
	t.Parallel()

	form, err := loadSignup(t).Form("createAccount")
	if err != nil {
		t.Fatalf("Form returned error: %v", err)
	}
	c, err := controller.New(controller.Config{
		InitialValues: form.InitialValues(),
		Validation:    form.Validators(),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	c.Validate()
	if c.IsValid() {
		t.Fatalf("missing required fields must invalidate the form")
	}
	c.SetFieldValue("username", "ada")
	c.SetFieldValue("age", "42")
	if !c.IsValid() {
		t.Fatalf("expected valid form, fields %v", c.Fields())
	}
}
