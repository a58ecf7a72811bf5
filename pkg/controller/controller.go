package controller

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// maxRulePasses bounds how often DisableIf/HideIf are re-evaluated within one
// broadcast before giving up on a non-converging rule set.
const maxRulePasses = 8

// Factory owns the generation counter that numbers Controllers. Controllers
// built by one factory, including successors created by ResetForm, have
// strictly increasing keys.
type Factory struct {
	generation atomic.Uint64
}

// NewFactory returns a factory starting at generation zero.
func NewFactory() *Factory {
	return &Factory{}
}

// New validates cfg and builds a Controller.
func (f *Factory) New(cfg Config, opts ...Option) (*Controller, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	set := defaultSettings()
	for _, opt := range opts {
		if opt != nil {
			opt(&set)
		}
	}
	if set.pollInterval < 0 {
		return nil, fmt.Errorf("%w: negative poll interval %s", ErrInvalidConfig, set.pollInterval)
	}
	if set.pollInterval == 0 {
		set.pollInterval = DefaultPollInterval
	}
	return f.build(cloneConfig(cfg), set), nil
}

// New builds a Controller with a private factory.
func New(cfg Config, opts ...Option) (*Controller, error) {
	return NewFactory().New(cfg, opts...)
}

// Controller is the form-state engine. All methods are safe for concurrent
// use; listeners are invoked without internal locks held.
type Controller struct {
	mu sync.Mutex

	key      uint64
	factory  *Factory
	cfg      Config
	settings settings
	log      *zap.Logger

	state      *State
	keys       map[string]keyEntry
	validators map[string]*validatorEntry
	ruleKeys   []string

	onChange   *listenerSet[ChangeFunc]
	onDisable  *listenerSet[DisableListener]
	onButton   *listenerSet[ButtonFunc]
	onValidate *listenerSet[MessageListener]
	selected   map[optionRef]selectedEntry

	pending     *afterAll
	changeDepth int
	subSeq      uint64
	applying    bool
	submitted   bool
	retired     bool
	retiredOnce sync.Once
}

type keyEntry struct {
	typ   FieldType
	count int
}

func (f *Factory) build(cfg Config, set settings) *Controller {
	c := &Controller{
		key:        f.generation.Add(1),
		factory:    f,
		cfg:        cfg,
		settings:   set,
		state:      NewState(cfg.InitialValues),
		keys:       make(map[string]keyEntry),
		validators: make(map[string]*validatorEntry),
		onChange:   newListenerSet[ChangeFunc](),
		onDisable:  newListenerSet[DisableListener](),
		onButton:   newListenerSet[ButtonFunc](),
		onValidate: newListenerSet[MessageListener](),
		selected:   make(map[optionRef]selectedEntry),
		pending:    newAfterAll(),
	}
	c.log = set.logger.With(zap.Uint64("form", c.key))

	validationKeys := make([]string, 0, len(cfg.Validation))
	for key := range cfg.Validation {
		validationKeys = append(validationKeys, key)
	}
	sort.Strings(validationKeys)
	for _, key := range validationKeys {
		c.state.ensure(key)
	}

	seen := make(map[string]struct{})
	for key := range cfg.DisableIf {
		seen[key] = struct{}{}
	}
	for key := range cfg.HideIf {
		seen[key] = struct{}{}
	}
	for key := range seen {
		c.ruleKeys = append(c.ruleKeys, key)
	}
	sort.Strings(c.ruleKeys)

	c.applyRules()
	return c
}

func validateConfig(cfg Config) error {
	check := func(kind string, keys []string) error {
		for _, key := range keys {
			if key == "" {
				return fmt.Errorf("%w: empty key in %s", ErrInvalidConfig, kind)
			}
		}
		return nil
	}
	if err := check("initial values", mapKeys(cfg.InitialValues)); err != nil {
		return err
	}
	if err := check("validation", mapKeys(cfg.Validation)); err != nil {
		return err
	}
	if err := check("disableIf", mapKeys(cfg.DisableIf)); err != nil {
		return err
	}
	if err := check("hideIf", mapKeys(cfg.HideIf)); err != nil {
		return err
	}
	for key, pred := range cfg.DisableIf {
		if pred == nil {
			return fmt.Errorf("%w: nil disableIf predicate for %q", ErrInvalidConfig, key)
		}
	}
	for key, pred := range cfg.HideIf {
		if pred == nil {
			return fmt.Errorf("%w: nil hideIf predicate for %q", ErrInvalidConfig, key)
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.InitialValues = cloneMap(cfg.InitialValues)
	out.DisableIf = cloneMap(cfg.DisableIf)
	out.HideIf = cloneMap(cfg.HideIf)
	out.Validation = cloneMap(cfg.Validation)
	return out
}

func cloneMap[V any](src map[string]V) map[string]V {
	if src == nil {
		return nil
	}
	out := make(map[string]V, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func mapKeys[V any](src map[string]V) []string {
	out := make([]string, 0, len(src))
	for k := range src {
		out = append(out, k)
	}
	return out
}

// Key is the generation number of this instance. Renderers use it to force a
// remount after ResetForm.
func (c *Controller) Key() uint64 {
	return c.key
}

// Fields returns key → current value for every field.
func (c *Controller) Fields() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Fields()
}

// Keys lists field keys in creation order.
func (c *Controller) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Keys()
}

// IsValid is true when every enabled, visible field is valid.
func (c *Controller) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Valid()
}

// IsSubmitted reports whether Submit has been called.
func (c *Controller) IsSubmitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

// Pending reports whether any field awaits an async validation.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.inProgress()
}

// Retired reports whether ResetForm replaced this instance.
func (c *Controller) Retired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retired
}

// GetField returns a copy of the field record.
func (c *Controller) GetField(key string) (Field, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Field(key)
}

// GetFieldValue returns the field value.
func (c *Controller) GetFieldValue(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.state.fields[key]
	if !ok {
		return nil, false
	}
	return r.value, true
}

// RegisterKey declares a field. It reports false when key is already
// registered and the registrations are not both radio options of one group;
// that usually means two inputs accidentally share a name.
func (c *Controller) RegisterKey(key string, typ FieldType) bool {
	if key == "" {
		panic(ErrEmptyKey)
	}
	c.mu.Lock()
	entry, ok := c.keys[key]
	if ok && (typ != FieldRadio || entry.typ != FieldRadio) {
		c.mu.Unlock()
		c.log.Warn("duplicate field key",
			zap.String("key", key),
			zap.String("type", string(typ)),
			zap.String("registered_type", string(entry.typ)),
		)
		return false
	}
	entry.typ = typ
	entry.count++
	c.keys[key] = entry
	if typ == FieldRadio {
		c.state.declareRadio(key)
	} else {
		c.state.ensure(key)
	}
	c.mu.Unlock()
	return true
}

// UnregisterKey releases one registration of key. The field record stays.
func (c *Controller) UnregisterKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.keys[key]
	if !ok {
		return
	}
	entry.count--
	if entry.count <= 0 {
		delete(c.keys, key)
		return
	}
	c.keys[key] = entry
}

// SetFieldValue stores a value and validates the field. Validation only
// notifies result listeners once the form was submitted or ValidateOnChange
// is set; otherwise validity is tracked silently.
func (c *Controller) SetFieldValue(key string, value any) {
	c.setValue(SetValue{Key: key, Value: value})
}

// SelectOption stores the value of the radio option id and records it as the
// active option.
func (c *Controller) SelectOption(key, id string, value any) {
	c.setValue(SetValue{Key: key, Value: value, ID: id})
}

func (c *Controller) setValue(ev SetValue) {
	c.warnRetired("SetFieldValue")
	c.mu.Lock()
	c.state.Apply(ev)
	silent := c.silentLocked()
	c.mu.Unlock()

	c.validateField(ev.Key, silent)
	c.broadcast()
	c.notifyMessage(ev.Key)
}

// SetIsDisabled changes a field's (or radio option's) disabled state. A field
// becoming disabled falls back to its initial value; for radio groups the
// default option is re-selected once the current change batch settles.
func (c *Controller) SetIsDisabled(req SetDisabled) {
	c.warnRetired("SetIsDisabled")
	c.setDisabled(req)
}

func (c *Controller) setDisabled(req SetDisabled) bool {
	c.mu.Lock()
	d := c.state.Apply(req)
	if !d.Changed {
		c.mu.Unlock()
		return false
	}
	if id := d.Reselect; id != "" {
		key := req.Key
		c.pending.deferDisable(key, func() { c.fireSelected(key, id) })
	}
	c.mu.Unlock()

	c.validateField(req.Key, true)
	c.notifyDisable(d)
	c.notifyMessage(req.Key)
	c.broadcast()
	return true
}

// SetIsVisible changes a field's (or radio option's) visibility. Hiding clears
// the value; once the batch settles a visible field without a value gets its
// initial value back.
func (c *Controller) SetIsVisible(req SetVisible) {
	c.warnRetired("SetIsVisible")
	c.setVisible(req)
}

func (c *Controller) setVisible(req SetVisible) bool {
	c.mu.Lock()
	d := c.state.Apply(req)
	if !d.Changed {
		c.mu.Unlock()
		return false
	}
	if d.Restore {
		key := req.Key
		c.pending.deferVisible(key, func() { c.restoreVisible(key) })
	}
	c.mu.Unlock()

	c.validateField(req.Key, true)
	c.notifyMessage(req.Key)
	c.broadcast()
	return true
}

func (c *Controller) restoreVisible(key string) {
	c.mu.Lock()
	d := c.state.Apply(RestoreValue{Key: key})
	silent := c.silentLocked()
	c.mu.Unlock()

	if d.Reselect != "" {
		c.fireSelected(key, d.Reselect)
	}
	c.validateField(key, silent)
	if !silent {
		c.notifyMessage(key)
	}
	if d.Changed {
		c.broadcast()
	}
}

// DisableFields tells every field listener whose field is not disabled on its
// own, then every button listener, to take the given disabled state.
func (c *Controller) DisableFields(disable bool) {
	c.mu.Lock()
	var fieldActions []func(bool)
	for _, l := range c.onDisable.snapshot() {
		if c.disabledLocked(l.Key, l.ID) {
			continue
		}
		fieldActions = append(fieldActions, l.Action)
	}
	buttons := c.onButton.snapshot()
	c.mu.Unlock()

	for _, action := range fieldActions {
		action(disable)
	}
	for _, fn := range buttons {
		fn(disable)
	}
}

// ResetForm builds the successor of this Controller from the same factory,
// configuration and options, hands it to Config.SetController and returns it.
// This instance is retired; its listeners are not carried over.
func (c *Controller) ResetForm() *Controller {
	next := c.factory.build(c.cfg, c.settings)
	c.mu.Lock()
	c.retired = true
	c.mu.Unlock()
	c.log.Debug("form reset", zap.Uint64("successor", next.key))
	if c.cfg.SetController != nil {
		c.cfg.SetController(next)
	}
	return next
}

// broadcast notifies change listeners. Work queued while any broadcast is in
// progress runs when the outermost one returns.
func (c *Controller) broadcast() {
	c.mu.Lock()
	c.changeDepth++
	c.mu.Unlock()

	c.applyRules()

	c.mu.Lock()
	listeners := c.onChange.snapshot()
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(c.IsValid())
	}

	c.mu.Lock()
	c.changeDepth--
	var effects []func()
	if c.changeDepth == 0 {
		effects = c.pending.drain()
	}
	c.mu.Unlock()
	for _, fn := range effects {
		fn()
	}
}

// applyRules evaluates DisableIf and HideIf until they stop changing state.
// Nested broadcasts triggered by the setters below skip it.
func (c *Controller) applyRules() {
	if len(c.ruleKeys) == 0 {
		return
	}
	c.mu.Lock()
	if c.applying {
		c.mu.Unlock()
		return
	}
	c.applying = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.applying = false
		c.mu.Unlock()
	}()

	for pass := 0; pass < maxRulePasses; pass++ {
		changed := false
		for _, key := range c.ruleKeys {
			fields := c.Fields()
			typ := c.typeOf(key)
			if pred, ok := c.cfg.DisableIf[key]; ok {
				if c.setDisabled(SetDisabled{Key: key, IsDisabled: pred(fields), Type: typ}) {
					changed = true
					fields = c.Fields()
				}
			}
			if pred, ok := c.cfg.HideIf[key]; ok {
				if c.setVisible(SetVisible{Key: key, IsVisible: !pred(fields), Type: typ}) {
					changed = true
				}
			}
		}
		if !changed {
			return
		}
	}
	c.log.Warn("disable/hide rules did not settle", zap.Int("passes", maxRulePasses))
}

func (c *Controller) typeOf(key string) FieldType {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.keys[key]; ok {
		return entry.typ
	}
	if r, ok := c.state.fields[key]; ok && r.options != nil {
		return FieldRadio
	}
	return FieldText
}

func (c *Controller) notifyDisable(d Delta) {
	type call struct {
		action   func(bool)
		disabled bool
	}
	c.mu.Lock()
	r := c.state.fields[d.Key]
	var calls []call
	for _, l := range c.onDisable.snapshot() {
		if l.Key != d.Key {
			continue
		}
		switch {
		case l.ID == "" || r.options == nil:
			if d.DisabledChanged {
				calls = append(calls, call{l.Action, r.disabled})
			}
		case containsString(d.Options, l.ID):
			calls = append(calls, call{l.Action, r.options[l.ID].IsDisabled})
		}
	}
	c.mu.Unlock()
	for _, cl := range calls {
		cl.action(cl.disabled)
	}
}

// notifyMessage tells message listeners of key whether to display the
// validation message.
func (c *Controller) notifyMessage(key string) {
	c.mu.Lock()
	r, ok := c.state.fields[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	show := !r.disabled && r.visible && (c.cfg.ValidateOnChange || c.submitted)
	valid := r.effectiveValid()
	var actions []func(bool, bool)
	for _, l := range c.onValidate.snapshot() {
		if l.Key == key {
			actions = append(actions, l.Action)
		}
	}
	c.mu.Unlock()
	for _, action := range actions {
		action(show, valid)
	}
}

func (c *Controller) notifyButtons(disabled bool) {
	c.mu.Lock()
	buttons := c.onButton.snapshot()
	c.mu.Unlock()
	for _, fn := range buttons {
		fn(disabled)
	}
}

func (c *Controller) fireSelected(key, id string) {
	c.mu.Lock()
	entry, ok := c.selected[optionRef{key: key, id: id}]
	c.mu.Unlock()
	if ok {
		entry.sel.Action()
	}
}

func (c *Controller) disabledLocked(key, id string) bool {
	r, ok := c.state.fields[key]
	if !ok {
		return false
	}
	if id != "" && r.options != nil {
		if opt, ok := r.options[id]; ok {
			return opt.IsDisabled
		}
	}
	return r.disabled
}

func (c *Controller) silentLocked() bool {
	return !(c.submitted || c.cfg.ValidateOnChange)
}

func (c *Controller) warnRetired(op string) {
	c.mu.Lock()
	retired := c.retired
	c.mu.Unlock()
	if !retired {
		return
	}
	c.retiredOnce.Do(func() {
		c.log.Warn("mutating a controller replaced by ResetForm", zap.String("op", op))
	})
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func (c *Controller) pollInterval() time.Duration {
	return c.settings.pollInterval
}
