package controller

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func mustNew(t *testing.T, cfg Config, opts ...Option) *Controller {
	t.Helper()
	c, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return c
}

func requiredName(value any, _ map[string]any) Outcome {
	if s, _ := value.(string); s == "" {
		return Message{Content: "error"}
	}
	return Message{}
}

func TestNewEmptyForm(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{})
	if diff := cmp.Diff(map[string]any{}, c.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if !c.IsValid() {
		t.Fatalf("empty form must be valid")
	}
	if _, ok := c.GetField("missing"); ok {
		t.Fatalf("expected unregistered field to be absent")
	}
	if _, ok := c.GetFieldValue("missing"); ok {
		t.Fatalf("expected unregistered value to be absent")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		cfg  Config
		opts []Option
	}{
		"empty initial key":  {cfg: Config{InitialValues: map[string]any{"": "x"}}},
		"empty validation":   {cfg: Config{Validation: map[string]ValidateFunc{"": requiredName}}},
		"nil predicate":      {cfg: Config{DisableIf: map[string]Predicate{"a": nil}}},
		"negative poll time": {opts: []Option{WithPollInterval(-1)}},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tc.cfg, tc.opts...); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestFieldsExistFromConfig(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{
		InitialValues: map[string]any{"name": "Ada"},
		Validation:    map[string]ValidateFunc{"email": requiredName},
	})
	want := map[string]any{"name": "Ada", "email": nil}
	if diff := cmp.Diff(want, c.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncValidatorNotifiesResult(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{ValidateOnChange: true})
	var got []any
	c.SubscribeValidator(Validator{
		Key:      "name",
		Validate: requiredName,
		Action:   func(content any) { got = append(got, content) },
	})

	c.SetFieldValue("name", "")

	if diff := cmp.Diff([]any{"error"}, got); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	if c.IsValid() {
		t.Fatalf("expected invalid form")
	}

	c.SetFieldValue("name", "Ada")
	if !c.IsValid() {
		t.Fatalf("expected valid form")
	}
}

func TestSilentValidationTracksValidityWithoutNotifying(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{Validation: map[string]ValidateFunc{"name": requiredName}})
	calls := 0
	c.SubscribeValidator(Validator{Key: "name", Action: func(any) { calls++ }})

	var shows []bool
	c.SubscribeOnValidate(MessageListener{Key: "name", Action: func(show, _ bool) { shows = append(shows, show) }})

	c.SetFieldValue("name", "")

	if calls != 0 {
		t.Fatalf("silent validation notified %d times", calls)
	}
	if c.IsValid() {
		t.Fatalf("silent validation must still record invalidity")
	}
	if diff := cmp.Diff([]bool{false}, shows); diff != "" {
		t.Fatalf("message visibility mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFieldIsMemoized(t *testing.T) {
	t.Parallel()

	calls := 0
	c := mustNew(t, Config{Validation: map[string]ValidateFunc{
		"name": func(value any, fields map[string]any) Outcome {
			calls++
			return requiredName(value, fields)
		},
	}})

	c.ValidateField("name", true)
	c.ValidateField("name", true)
	if calls != 1 {
		t.Fatalf("expected one validator call, got %d", calls)
	}

	c.SetFieldValue("name", "x")
	if calls != 2 {
		t.Fatalf("value change must invalidate the cache, got %d calls", calls)
	}
}

func TestCachedInvalidResultIsRebroadcast(t *testing.T) {
	t.Parallel()

	calls := 0
	c := mustNew(t, Config{Validation: map[string]ValidateFunc{
		"name": func(value any, fields map[string]any) Outcome {
			calls++
			return requiredName(value, fields)
		},
	}})
	var got []any
	c.SubscribeValidator(Validator{Key: "name", Action: func(content any) { got = append(got, content) }})

	c.ValidateField("name", false)
	c.ValidateField("name", false)

	if calls != 1 {
		t.Fatalf("expected one validator call, got %d", calls)
	}
	if diff := cmp.Diff([]any{"error", "error"}, got); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestOutcomeShapes(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		outcome Outcome
		valid   bool
		content any
	}{
		"nil":             {outcome: nil, valid: true},
		"falsy message":   {outcome: Message{Content: false}, valid: true, content: false},
		"truthy message":  {outcome: Message{Content: "bad"}, valid: false, content: "bad"},
		"explicit valid":  {outcome: Result{IsValid: true, Content: "fine"}, valid: true, content: "fine"},
		"explicit failed": {outcome: Result{IsValid: false}, valid: false},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			c := mustNew(t, Config{Validation: map[string]ValidateFunc{
				"a": func(any, map[string]any) Outcome { return tc.outcome },
			}})
			c.ValidateField("a", true)
			field, _ := c.GetField("a")
			if field.IsValid != tc.valid || field.ValidationResult != tc.content || !field.IsValidated {
				t.Fatalf("unexpected field %+v", field)
			}
		})
	}
}

func TestValidityIgnoresDisabledAndHiddenFields(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{Validation: map[string]ValidateFunc{
		"a": requiredName,
		"b": requiredName,
	}})
	c.Validate()
	if c.IsValid() {
		t.Fatalf("expected invalid form")
	}

	c.SetIsDisabled(SetDisabled{Key: "a", IsDisabled: true})
	c.SetIsVisible(SetVisible{Key: "b", IsVisible: false})
	if !c.IsValid() {
		t.Fatalf("disabled and hidden fields must not block validity")
	}

	c.SetIsDisabled(SetDisabled{Key: "a", IsDisabled: false})
	if c.IsValid() {
		t.Fatalf("re-enabled invalid field must block validity")
	}
}

func TestRadioAggregation(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{})
	c.RegisterKey("plan", FieldRadio)
	c.RegisterKey("plan", FieldRadio)
	c.SubscribeIsSelected(Selection{Key: "plan", ID: "a", Value: "basic", Action: func() {}})
	c.SubscribeIsSelected(Selection{Key: "plan", ID: "b", Value: "pro", Action: func() {}})

	var flips []bool
	c.SubscribeOnDisable(DisableListener{Key: "plan", Action: func(d bool) { flips = append(flips, d) }})

	c.SetIsDisabled(SetDisabled{Key: "plan", ID: "a", Type: FieldRadio, IsDisabled: true})
	if field, _ := c.GetField("plan"); field.IsDisabled {
		t.Fatalf("one enabled option keeps the group enabled")
	}
	c.SetIsDisabled(SetDisabled{Key: "plan", ID: "b", Type: FieldRadio, IsDisabled: true})
	if field, _ := c.GetField("plan"); !field.IsDisabled {
		t.Fatalf("all options disabled must disable the group")
	}
	if diff := cmp.Diff([]bool{true}, flips); diff != "" {
		t.Fatalf("disable notifications mismatch (-want +got):\n%s", diff)
	}

	c.SetIsVisible(SetVisible{Key: "plan", ID: "a", Type: FieldRadio, IsVisible: false})
	if field, _ := c.GetField("plan"); !field.IsVisible {
		t.Fatalf("one visible option keeps the group visible")
	}
	c.SetIsVisible(SetVisible{Key: "plan", ID: "b", Type: FieldRadio, IsVisible: false})
	if field, _ := c.GetField("plan"); field.IsVisible {
		t.Fatalf("all options hidden must hide the group")
	}
}

func TestDisablingActiveRadioReselectsDefaultAfterBatch(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{InitialValues: map[string]any{"plan": "basic"}})
	c.RegisterKey("plan", FieldRadio)
	c.RegisterKey("plan", FieldRadio)

	var events []string
	c.SubscribeIsSelected(Selection{Key: "plan", ID: "opt1", Value: "basic", Action: func() {
		events = append(events, "selected:opt1")
	}})
	c.SubscribeIsSelected(Selection{Key: "plan", ID: "opt2", Value: "pro", Action: func() {
		events = append(events, "selected:opt2")
	}})
	c.SelectOption("plan", "opt2", "pro")

	c.SubscribeOnChange(func(bool) { events = append(events, "change") })

	c.SetIsDisabled(SetDisabled{Key: "plan", ID: "opt2", Type: FieldRadio, IsDisabled: true})

	if diff := cmp.Diff([]string{"change", "selected:opt1"}, events); diff != "" {
		t.Fatalf("event order mismatch (-want +got):\n%s", diff)
	}
	field, _ := c.GetField("plan")
	if field.Value != "basic" || field.ActiveID != "opt1" {
		t.Fatalf("unexpected field after fallback: %+v", field)
	}
}

func TestRadioGroupsWithSharedOptionIDsStayIndependent(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{InitialValues: map[string]any{"news": "yes", "terms": "yes"}})
	var events []string
	subscribe := func(key, id string) Unsubscribe {
		return c.SubscribeIsSelected(Selection{Key: key, ID: id, Value: id, Action: func() {
			events = append(events, key+":"+id)
		}})
	}
	subscribe("news", "yes")
	subscribe("news", "no")
	dropTermsYes := subscribe("terms", "yes")
	subscribe("terms", "no")

	c.SelectOption("news", "no", "no")
	c.SetIsDisabled(SetDisabled{Key: "news", ID: "no", Type: FieldRadio, IsDisabled: true})
	if diff := cmp.Diff([]string{"news:yes"}, events); diff != "" {
		t.Fatalf("reselection mismatch (-want +got):\n%s", diff)
	}

	dropTermsYes()
	events = nil
	c.SelectOption("news", "yes", "yes")
	c.SetIsDisabled(SetDisabled{Key: "news", ID: "no", Type: FieldRadio, IsDisabled: false})
	c.SelectOption("news", "no", "no")
	c.SetIsDisabled(SetDisabled{Key: "news", ID: "no", Type: FieldRadio, IsDisabled: true})
	if diff := cmp.Diff([]string{"news:yes"}, events); diff != "" {
		t.Fatalf("reselection after unsubscribe mismatch (-want +got):\n%s", diff)
	}
	field, _ := c.GetField("news")
	if field.ActiveID != "yes" {
		t.Fatalf("unexpected news field %+v", field)
	}
}

func TestStaleValidatorDisposerKeepsReplacement(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{ValidateOnChange: true})
	var got []string
	validate := func(value any, _ map[string]any) Outcome { return Message{Content: value} }
	first := c.SubscribeValidator(Validator{Key: "name", Validate: validate, Action: func(any) { got = append(got, "first") }})
	c.SubscribeValidator(Validator{Key: "name", Action: func(any) { got = append(got, "second") }})

	first()
	c.SetFieldValue("name", "x")
	if diff := cmp.Diff([]string{"second"}, got); diff != "" {
		t.Fatalf("callbacks mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedChangesDeferReconciliationToOutermostBroadcast(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{InitialValues: map[string]any{"plan": "basic", "trigger": ""}})
	c.RegisterKey("plan", FieldRadio)
	selected := 0
	c.SubscribeIsSelected(Selection{Key: "plan", ID: "opt1", Value: "basic", Action: func() { selected++ }})
	c.SubscribeIsSelected(Selection{Key: "plan", ID: "opt2", Value: "pro", Action: func() {}})
	c.SelectOption("plan", "opt2", "pro")

	var selectedDuringBroadcast []int
	c.SubscribeOnChange(func(bool) {
		if v, _ := c.GetFieldValue("trigger"); v == "go" {
			c.SetIsDisabled(SetDisabled{Key: "plan", ID: "opt2", Type: FieldRadio, IsDisabled: true})
		}
		selectedDuringBroadcast = append(selectedDuringBroadcast, selected)
	})

	c.SetFieldValue("trigger", "go")

	if selected != 1 {
		t.Fatalf("expected one reselect, got %d", selected)
	}
	for _, n := range selectedDuringBroadcast {
		if n != 0 {
			t.Fatalf("reselect ran inside a broadcast: %v", selectedDuringBroadcast)
		}
	}
}

func TestDisableIfAndHideIfRules(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{
		InitialValues: map[string]any{"agree": false, "company": "Acme", "nickname": "ace"},
		DisableIf: map[string]Predicate{
			"company": func(fields map[string]any) bool { return fields["agree"] != true },
		},
		HideIf: map[string]Predicate{
			"nickname": func(fields map[string]any) bool { return fields["agree"] == true },
		},
	})

	field, _ := c.GetField("company")
	if !field.IsDisabled {
		t.Fatalf("company must start disabled")
	}

	c.SetFieldValue("agree", true)
	company, _ := c.GetField("company")
	nickname, _ := c.GetField("nickname")
	if company.IsDisabled {
		t.Fatalf("company must be enabled once agreed")
	}
	if nickname.IsVisible || nickname.Value != nil {
		t.Fatalf("nickname must be hidden and cleared, got %+v", nickname)
	}

	c.SetFieldValue("agree", false)
	nickname, _ = c.GetField("nickname")
	if !nickname.IsVisible || nickname.Value != "ace" {
		t.Fatalf("nickname must be visible with its initial value, got %+v", nickname)
	}
}

func TestRegisterKeyDetectsDuplicates(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	c := mustNew(t, Config{}, WithLogger(zap.New(core)))

	if !c.RegisterKey("name", FieldText) {
		t.Fatalf("first registration must succeed")
	}
	if c.RegisterKey("name", FieldText) {
		t.Fatalf("duplicate registration must fail")
	}
	if !c.RegisterKey("plan", FieldRadio) || !c.RegisterKey("plan", FieldRadio) {
		t.Fatalf("radio options share a key")
	}
	if c.RegisterKey("plan", FieldText) {
		t.Fatalf("non-radio registration over a radio group must fail")
	}
	if got := logs.FilterMessage("duplicate field key").Len(); got != 2 {
		t.Fatalf("expected 2 warnings, got %d", got)
	}

	c.UnregisterKey("name")
	if !c.RegisterKey("name", FieldText) {
		t.Fatalf("registration after release must succeed")
	}
}

func TestDisableFieldsSkipsDisabledFields(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{})
	got := map[string][]bool{}
	listen := func(key string) {
		c.SubscribeOnDisable(DisableListener{Key: key, Action: func(d bool) { got[key] = append(got[key], d) }})
	}
	listen("a")
	listen("b")
	var buttons []bool
	c.SubscribeOnDisableButton(func(d bool) { buttons = append(buttons, d) })

	c.SetIsDisabled(SetDisabled{Key: "b", IsDisabled: true})
	c.DisableFields(true)
	c.DisableFields(false)

	want := map[string][]bool{
		"a": {true, false},
		"b": {true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("field notifications mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true, false}, buttons); diff != "" {
		t.Fatalf("button notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{})
	calls := 0
	unsubscribe := c.SubscribeOnChange(func(bool) { calls++ })
	c.SetFieldValue("a", "x")
	unsubscribe()
	unsubscribe()
	c.SetFieldValue("a", "y")
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}

	c.UnsubscribeIsSelected("plan", "missing")
	c.UnsubscribeValidator("missing", "")
}

func TestRadioValidatorKeepsOneActionPerOption(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{ValidateOnChange: true})
	got := map[string]int{}
	validate := func(value any, _ map[string]any) Outcome {
		if value == nil {
			return Message{Content: "pick one"}
		}
		return nil
	}
	for _, id := range []string{"a", "b"} {
		id := id
		c.SubscribeValidator(Validator{Key: "plan", ID: id, Type: FieldRadio, Validate: validate, Action: func(any) { got[id]++ }})
	}

	c.SelectOption("plan", "a", nil)
	if diff := cmp.Diff(map[string]int{"a": 1, "b": 1}, got); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}

	c.UnsubscribeValidator("plan", "a")
	c.SelectOption("plan", "b", nil)
	if diff := cmp.Diff(map[string]int{"a": 1, "b": 2}, got); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscribePanicsOnProgrammerErrors(t *testing.T) {
	t.Parallel()

	c := mustNew(t, Config{})
	cases := map[string]func(){
		"nil change":    func() { c.SubscribeOnChange(nil) },
		"empty key":     func() { c.SubscribeOnValidate(MessageListener{Action: func(bool, bool) {}}) },
		"nil validator": func() { c.SubscribeValidator(Validator{Key: "a"}) },
		"radio no id":   func() { c.SubscribeIsSelected(Selection{Key: "a", Action: func() {}}) },
	}
	for name, fn := range cases {
		fn := fn
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			fn()
		})
	}
}

func TestResetFormBuildsIndependentSuccessor(t *testing.T) {
	t.Parallel()

	var handed *Controller
	c := mustNew(t, Config{
		InitialValues: map[string]any{"name": "Ada"},
		SetController: func(next *Controller) { handed = next },
	})
	c.SetFieldValue("name", "Grace")

	next := c.ResetForm()
	if handed != next {
		t.Fatalf("successor was not handed to SetController")
	}
	if next.Key() <= c.Key() {
		t.Fatalf("successor key %d must exceed %d", next.Key(), c.Key())
	}
	if !c.Retired() || next.Retired() {
		t.Fatalf("unexpected retired flags")
	}

	c.SetFieldValue("name", "Linus")
	if got, _ := next.GetFieldValue("name"); got != "Ada" {
		t.Fatalf("successor must start from initial values, got %v", got)
	}
}

func TestFactorySharesGenerations(t *testing.T) {
	t.Parallel()

	f := NewFactory()
	a, err := f.New(Config{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	b, err := f.New(Config{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if a.Key() != 1 || b.Key() != 2 {
		t.Fatalf("unexpected keys %d, %d", a.Key(), b.Key())
	}
}
