package controller

import (
	"reflect"
	"sort"
)

// State is the field map plus the bookkeeping the transitions need (initial
// values and default radio options). It performs no notification and no
// validation; those are driven by the Controller from the returned Delta.
// State is not safe for concurrent use.
type State struct {
	fields        map[string]*record
	order         []string
	initial       map[string]any
	defaultActive map[string]string
}

type record struct {
	value      any
	disabled   bool
	visible    bool
	valid      bool
	validated  bool
	inProgress bool
	result     any
	activeID   string
	options    map[string]*OptionState
	// epoch increases on every value change and validation run; async
	// resolutions carrying an older epoch are stale.
	epoch uint64
}

// Delta describes the effect of one event.
type Delta struct {
	Key             string
	Changed         bool
	DisabledChanged bool
	VisibleChanged  bool
	// Options lists radio options whose own state changed, sorted.
	Options []string
	// ValueReset is set when the transition replaced the value (fallback to
	// the initial value, clearing on hide, restoring on show).
	ValueReset bool
	// Reselect names the radio option that must be re-asserted as checked.
	Reselect string
	// Restore asks for the visibility restore pass at batch settle.
	Restore bool
}

// Event is a state transition understood by State.Apply.
type Event interface {
	apply(s *State) Delta
}

// SetValue stores a value. ID records the selected radio option.
type SetValue struct {
	Key   string
	Value any
	ID    string
}

// SetDisabled changes the disabled state of a field, or of one radio option
// when Type is FieldRadio and ID is set. A radio request without ID applies to
// every option of the group.
type SetDisabled struct {
	Key        string
	IsDisabled bool
	ID         string
	Type       FieldType
}

// SetVisible is the visibility counterpart of SetDisabled.
type SetVisible struct {
	Key       string
	IsVisible bool
	ID        string
	Type      FieldType
}

// RegisterOption declares a radio option and its value.
type RegisterOption struct {
	Key   string
	ID    string
	Value any
}

// RestoreValue gives a visible field without a value its initial value back,
// and re-selects the default radio option.
type RestoreValue struct {
	Key string
}

// NewState seeds a state with the initial values; every initial key gets a
// field record.
func NewState(initial map[string]any) *State {
	s := &State{
		fields:        make(map[string]*record),
		initial:       make(map[string]any, len(initial)),
		defaultActive: make(map[string]string),
	}
	keys := make([]string, 0, len(initial))
	for key, value := range initial {
		s.initial[key] = value
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		s.ensure(key)
	}
	return s
}

// Apply runs a transition and reports what changed.
func (s *State) Apply(ev Event) Delta {
	if ev == nil {
		return Delta{}
	}
	return ev.apply(s)
}

// Field returns a copy of the record stored under key.
func (s *State) Field(key string) (Field, bool) {
	r, ok := s.fields[key]
	if !ok {
		return Field{}, false
	}
	out := Field{
		Value:                r.value,
		IsDisabled:           r.disabled,
		IsVisible:            r.visible,
		IsValid:              r.effectiveValid(),
		IsValidated:          r.validated,
		ValidationInProgress: r.inProgress,
		ValidationResult:     r.result,
		ActiveID:             r.activeID,
	}
	if r.options != nil {
		out.Options = make(map[string]OptionState, len(r.options))
		for id, opt := range r.options {
			out.Options[id] = *opt
		}
	}
	return out, true
}

// Fields returns key → value for every field.
func (s *State) Fields() map[string]any {
	out := make(map[string]any, len(s.fields))
	for key, r := range s.fields {
		out[key] = r.value
	}
	return out
}

// Keys lists field keys in creation order.
func (s *State) Keys() []string {
	return append([]string(nil), s.order...)
}

// Valid is the AND of every field's effective validity.
func (s *State) Valid() bool {
	for _, r := range s.fields {
		if !r.effectiveValid() {
			return false
		}
	}
	return true
}

// Initial returns the initial value configured for key.
func (s *State) Initial(key string) (any, bool) {
	v, ok := s.initial[key]
	return v, ok
}

func (s *State) inProgress() bool {
	for _, r := range s.fields {
		if r.inProgress {
			return true
		}
	}
	return false
}

func (s *State) ensure(key string) *record {
	if r, ok := s.fields[key]; ok {
		return r
	}
	r := &record{
		value:   s.initial[key],
		visible: true,
		valid:   true,
	}
	s.fields[key] = r
	s.order = append(s.order, key)
	return r
}

func (s *State) declareRadio(key string) {
	r := s.ensure(key)
	if r.options == nil {
		r.options = make(map[string]*OptionState)
	}
}

// beginValidation marks key as awaiting an async result and returns the
// epoch the result has to match.
func (s *State) beginValidation(key string, content any) uint64 {
	r := s.ensure(key)
	r.epoch++
	r.valid = false
	r.validated = true
	r.inProgress = true
	r.result = content
	return r.epoch
}

// settle commits a synchronous result; any async validation still in flight
// becomes stale.
func (s *State) settle(key string, res Result) {
	r := s.ensure(key)
	r.epoch++
	r.valid = res.IsValid
	r.result = res.Content
	r.validated = true
	r.inProgress = false
}

// resolve commits an async result if epoch is still current.
func (s *State) resolve(key string, epoch uint64, res Result) bool {
	r, ok := s.fields[key]
	if !ok || r.epoch != epoch {
		return false
	}
	r.valid = res.IsValid
	r.result = res.Content
	r.validated = true
	r.inProgress = false
	return true
}

// reject ends an async validation without touching validity.
func (s *State) reject(key string, epoch uint64) bool {
	r, ok := s.fields[key]
	if !ok || r.epoch != epoch {
		return false
	}
	r.inProgress = false
	return true
}

func (r *record) effectiveValid() bool {
	return r.valid || r.disabled || !r.visible
}

func (r *record) invalidate() {
	r.epoch++
	r.validated = false
	r.inProgress = false
}

// option returns the state of a radio option, creating it with the field's
// aggregate state so that registration alone never flips the aggregate.
func (r *record) option(id string) *OptionState {
	if r.options == nil {
		r.options = make(map[string]*OptionState)
	}
	opt, ok := r.options[id]
	if !ok {
		opt = &OptionState{IsDisabled: r.disabled, IsVisible: r.visible}
		r.options[id] = opt
	}
	return opt
}

func (r *record) allDisabled() bool {
	for _, opt := range r.options {
		if !opt.IsDisabled {
			return false
		}
	}
	return len(r.options) > 0
}

func (r *record) anyVisible() bool {
	for _, opt := range r.options {
		if opt.IsVisible {
			return true
		}
	}
	return false
}

func (r *record) selectable(id string) bool {
	opt, ok := r.options[id]
	return ok && !opt.IsDisabled && opt.IsVisible
}

func (e SetValue) apply(s *State) Delta {
	r := s.ensure(e.Key)
	r.value = e.Value
	r.activeID = e.ID
	r.invalidate()
	if e.ID != "" {
		if initial, ok := s.initial[e.Key]; ok && sameValue(initial, e.Value) {
			s.defaultActive[e.Key] = e.ID
		}
	}
	return Delta{Key: e.Key, Changed: true}
}

func (e SetDisabled) apply(s *State) Delta {
	r := s.ensure(e.Key)
	d := Delta{Key: e.Key}
	before := r.disabled

	if e.Type != FieldRadio {
		if r.disabled == e.IsDisabled {
			return d
		}
		r.disabled = e.IsDisabled
		if e.IsDisabled {
			initial := s.initial[e.Key]
			if !sameValue(r.value, initial) {
				r.value = initial
				r.invalidate()
				d.ValueReset = true
			}
		}
		d.Changed = true
		d.DisabledChanged = true
		return d
	}

	if e.ID == "" && len(r.options) == 0 {
		if r.disabled == e.IsDisabled {
			return d
		}
		r.disabled = e.IsDisabled
	} else {
		d.Options = setOptions(r, e.ID, func(opt *OptionState) *bool { return &opt.IsDisabled }, e.IsDisabled)
		r.disabled = r.allDisabled()
	}
	if len(d.Options) == 0 && before == r.disabled {
		return d
	}

	if e.IsDisabled && r.activeID != "" && (e.ID == "" || e.ID == r.activeID) {
		r.value = s.initial[e.Key]
		r.activeID = ""
		r.invalidate()
		d.ValueReset = true
	}
	if def := s.defaultActive[e.Key]; def != "" && r.activeID != def &&
		sameValue(r.value, s.initial[e.Key]) && r.selectable(def) {
		r.activeID = def
		d.Reselect = def
	}

	d.Changed = true
	d.DisabledChanged = before != r.disabled
	return d
}

func (e SetVisible) apply(s *State) Delta {
	r := s.ensure(e.Key)
	d := Delta{Key: e.Key}
	before := r.visible

	if e.Type != FieldRadio {
		if r.visible == e.IsVisible {
			return d
		}
		r.visible = e.IsVisible
		if !e.IsVisible && r.value != nil {
			r.value = nil
			d.ValueReset = true
		}
	} else {
		if e.ID == "" && len(r.options) == 0 {
			if r.visible == e.IsVisible {
				return d
			}
			r.visible = e.IsVisible
		} else {
			d.Options = setOptions(r, e.ID, func(opt *OptionState) *bool { return &opt.IsVisible }, e.IsVisible)
			r.visible = r.anyVisible()
		}
		if len(d.Options) == 0 && before == r.visible {
			return d
		}
		if !e.IsVisible && r.activeID != "" && (e.ID == "" || e.ID == r.activeID) {
			r.value = nil
			r.activeID = ""
			d.ValueReset = true
		}
	}

	r.invalidate()
	d.Changed = true
	d.VisibleChanged = before != r.visible
	d.Restore = true
	return d
}

func (e RegisterOption) apply(s *State) Delta {
	s.declareRadio(e.Key)
	r := s.fields[e.Key]
	d := Delta{Key: e.Key}
	if _, ok := r.options[e.ID]; !ok {
		r.option(e.ID)
		d.Changed = true
	}
	initial, ok := s.initial[e.Key]
	if !ok || !sameValue(initial, e.Value) {
		return d
	}
	s.defaultActive[e.Key] = e.ID
	if r.activeID == "" && sameValue(r.value, initial) && r.selectable(e.ID) {
		r.activeID = e.ID
		d.Changed = true
	}
	return d
}

func (e RestoreValue) apply(s *State) Delta {
	d := Delta{Key: e.Key}
	r, ok := s.fields[e.Key]
	if !ok || !r.visible || r.value != nil {
		return d
	}
	initial, ok := s.initial[e.Key]
	if !ok || initial == nil {
		return d
	}
	r.value = initial
	r.invalidate()
	d.Changed = true
	d.ValueReset = true
	if def := s.defaultActive[e.Key]; def != "" && r.selectable(def) {
		r.activeID = def
		d.Reselect = def
	}
	return d
}

// setOptions applies a boolean to one option (id set) or every option of the
// group, returning the sorted ids that changed.
func setOptions(r *record, id string, field func(*OptionState) *bool, value bool) []string {
	var changed []string
	apply := func(optID string, opt *OptionState) {
		if ptr := field(opt); *ptr != value {
			*ptr = value
			changed = append(changed, optID)
		}
	}
	if id != "" {
		apply(id, r.option(id))
		return changed
	}
	for optID, opt := range r.options {
		apply(optID, opt)
	}
	sort.Strings(changed)
	return changed
}

func sameValue(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
