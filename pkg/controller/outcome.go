package controller

import (
	"context"
	"reflect"
)

// Outcome is the value returned by a ValidateFunc: Message, Result or Pending.
// A nil Outcome is valid with no content.
type Outcome interface {
	outcome()
}

// Message is content where a falsy value (nil, false, "", numeric zero, nil
// pointers, slices or maps) means valid and anything else is the error to
// display. Allocated collections count as content even when empty.
type Message struct {
	Content any
}

// Result is an explicit validity/content pair.
type Result struct {
	IsValid bool
	Content any
}

// Promise resolves an asynchronous validation. A returned error is treated as
// a transient failure: the field leaves the in-progress state and keeps its
// previous validity.
type Promise func(ctx context.Context) (Result, error)

// Pending marks the field invalid and in progress, shows Content until
// Promise resolves.
type Pending struct {
	Content any
	Promise Promise
}

func (Message) outcome() {}
func (Result) outcome()  {}
func (Pending) outcome() {}

// Falsy reports whether content counts as "no error".
func Falsy(content any) bool {
	switch v := content.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case error:
		return false
	}
	rv := reflect.ValueOf(content)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return rv.IsZero()
	case reflect.Bool:
		return !rv.Bool()
	case reflect.String:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan, reflect.Slice, reflect.Map:
		return rv.IsNil()
	}
	return false
}

// Resolve reduces an outcome to its validity and content. A Pending outcome
// resolves to invalid with its placeholder content.
func Resolve(o Outcome) Result {
	switch v := o.(type) {
	case nil:
		return Result{IsValid: true}
	case Message:
		return Result{IsValid: Falsy(v.Content), Content: v.Content}
	case Result:
		return v
	case Pending:
		return Result{Content: v.Content}
	default:
		return Result{IsValid: true}
	}
}
