package controller

import "context"

// FieldType describes the input kind registered for a key. Only radio groups
// behave differently: several option instances share one key and the field's
// disabled/visible state is aggregated over them.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldPassword FieldType = "password"
	FieldTextArea FieldType = "textarea"
	FieldCheckbox FieldType = "checkbox"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
)

// OptionState is the per-option state of a radio group.
type OptionState struct {
	IsDisabled bool
	IsVisible  bool
}

// Field is a copy of a field record. IsValid is the effective validity: a
// disabled or hidden field always reports true.
type Field struct {
	Value                any
	IsDisabled           bool
	IsVisible            bool
	IsValid              bool
	IsValidated          bool
	ValidationInProgress bool
	ValidationResult     any
	ActiveID             string
	// Options is nil for non-radio fields.
	Options map[string]OptionState
}

// Predicate decides a disable/hide condition from the current field values.
type Predicate func(fields map[string]any) bool

// ValidateFunc validates a field value. fields is a copy of every field value
// at the time of the call.
type ValidateFunc func(value any, fields map[string]any) Outcome

// SubmitFunc receives the field values of a valid form after Submit settled.
type SubmitFunc func(ctx context.Context, fields map[string]any, c *Controller) error

// Scheduler runs async validation resolutions. The default runs them inline on
// the goroutine that resolved the promise, concurrently with any setter in
// progress; UI loops can supply their own to marshal resolutions onto their
// thread.
type Scheduler func(fn func())

// Config is the construction input carried forward across ResetForm.
type Config struct {
	InitialValues    map[string]any
	OnSubmit         SubmitFunc
	DisableIf        map[string]Predicate
	HideIf           map[string]Predicate
	Validation       map[string]ValidateFunc
	ValidateOnChange bool
	// SetController receives the successor built by ResetForm.
	SetController func(*Controller)
}

// Unsubscribe removes a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// ChangeFunc is the umbrella change listener; it receives the form validity.
type ChangeFunc func(isValid bool)

// ButtonFunc receives submit-button disable requests.
type ButtonFunc func(disabled bool)

// DisableListener is scoped to a field. When ID is set on a radio field the
// listener follows that option's own state instead of the aggregate.
type DisableListener struct {
	Key    string
	ID     string
	Action func(disabled bool)
}

// MessageListener is told whether a validation message should be displayed
// for its field.
type MessageListener struct {
	Key    string
	Action func(show, fieldIsValid bool)
}

// Selection registers a radio option. Action is invoked when the controller
// re-asserts that option as the checked one. An option whose Value equals the
// field's initial value becomes the group's default option.
type Selection struct {
	Key    string
	ID     string
	Value  any
	Action func()
}

// Validator subscribes a field's validation result callback. Validate falls
// back to Config.Validation[Key] when nil. Radio fields keep one Action per
// option ID; other fields keep a single slot.
type Validator struct {
	Key      string
	ID       string
	Type     FieldType
	Validate ValidateFunc
	Action   func(content any)
}
