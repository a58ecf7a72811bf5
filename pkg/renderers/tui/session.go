package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/formspec"
	"github.com/goliatone/go-formstate/pkg/render"
)

const defaultMaxAttempts = 3

// Session drives one form definition through terminal prompts. Each Run
// builds a fresh controller, walks the fields in declaration order and
// submits once every field was prompted.
type Session struct {
	def            *formspec.Definition
	driver         PromptDriver
	format         string
	encoders       *render.Registry
	transform      SubmitTransformer
	theme          Theme
	log            *zap.Logger
	maxAttempts    int
	controllerOpts []controller.Option
}

// New constructs a session with defaults (survey driver, JSON output).
func New(def *formspec.Definition, options ...Option) (*Session, error) {
	if def == nil {
		return nil, errors.New("tui: definition is required")
	}
	s := &Session{
		def:         def,
		format:      "json",
		encoders:    render.DefaultRegistry(),
		log:         zap.NewNop(),
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.driver == nil {
		s.driver = NewSurveyDriver(nil)
	}
	if _, err := s.encoders.Get(s.format); err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	return s, nil
}

// ContentType reports the media type of the bytes returned by Run.
func (s *Session) ContentType() string {
	enc, err := s.encoders.Get(s.format)
	if err != nil {
		return ""
	}
	return enc.ContentType()
}

// Run prompts for every field, submits the form and returns the encoded
// values. Invalid fields are prompted again after each failed submit until
// the attempts run out, in which case the error wraps ErrInvalid.
func (s *Session) Run(ctx context.Context) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var submitted map[string]any
	cfg, err := s.def.Config()
	if err != nil {
		return nil, err
	}
	cfg.OnSubmit = func(_ context.Context, fields map[string]any, _ *controller.Controller) error {
		submitted = fields
		return nil
	}

	opts := append(s.def.Options(), controller.WithLogger(s.log), controller.WithContext(ctx))
	opts = append(opts, s.controllerOpts...)
	c, err := controller.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	unbind, err := s.def.Bind(c, nil)
	if err != nil {
		return nil, err
	}
	defer unbind()

	feed := newMessageFeed()
	defer feed.listen(c, s.def)()

	for _, field := range s.def.Fields {
		if err := s.promptField(ctx, c, field); err != nil {
			return nil, err
		}
		if err := s.flush(ctx, c, feed); err != nil {
			return nil, err
		}
	}

	for attempt := 1; ; attempt++ {
		if _, err := c.Submit(ctx); err != nil {
			return nil, err
		}
		if err := s.flush(ctx, c, feed); err != nil {
			return nil, err
		}
		if submitted != nil {
			break
		}
		issues := render.IssuesFor(c, s.def.Keys())
		if attempt >= s.maxAttempts {
			return nil, fmt.Errorf("%w: %s", ErrInvalid, summarize(issues))
		}
		s.log.Debug("re-prompting invalid fields", zap.Int("attempt", attempt), zap.Int("issues", len(issues)))
		for _, issue := range issues {
			field, ok := s.def.Field(issue.Key)
			if !ok {
				continue
			}
			if err := s.promptField(ctx, c, field); err != nil {
				return nil, err
			}
		}
	}

	return s.encode(submitted)
}

func (s *Session) encode(values map[string]any) ([]byte, error) {
	if s.transform != nil {
		var err error
		values, err = s.transform(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	nested, err := render.Nest(values)
	if err != nil {
		return nil, err
	}
	enc, err := s.encoders.Get(s.format)
	if err != nil {
		return nil, err
	}
	return enc.Encode(nested)
}

func (s *Session) promptField(ctx context.Context, c *controller.Controller, field formspec.Field) error {
	state, ok := c.GetField(field.Key)
	if !ok || !state.IsVisible {
		return nil
	}
	if state.IsDisabled {
		return s.driver.Info(ctx, s.theme.InfoPrefix+field.Title()+" is disabled")
	}

	switch field.ControlType() {
	case controller.FieldCheckbox:
		value, err := s.driver.Confirm(ctx, ConfirmConfig{
			Message: field.Title(),
			Default: state.Value == true,
			Help:    field.Help,
		})
		if err != nil {
			return err
		}
		c.SetFieldValue(field.Key, value)
	case controller.FieldSelect, controller.FieldRadio:
		return s.promptChoice(ctx, c, field, state)
	case controller.FieldPassword:
		value, err := s.driver.Password(ctx, InputConfig{Message: field.Title(), Default: text(state.Value), Help: field.Help})
		if err != nil {
			return err
		}
		c.SetFieldValue(field.Key, value)
	case controller.FieldTextArea:
		value, err := s.driver.TextArea(ctx, TextAreaConfig{Message: field.Title(), Default: text(state.Value), Help: field.Help})
		if err != nil {
			return err
		}
		c.SetFieldValue(field.Key, value)
	default:
		value, err := s.driver.Input(ctx, InputConfig{Message: field.Title(), Default: text(state.Value), Help: field.Help})
		if err != nil {
			return err
		}
		c.SetFieldValue(field.Key, strings.TrimSpace(value))
	}
	return nil
}

// promptChoice offers the enabled, visible options of a select or radio
// field. Radio answers go through SelectOption so the controller tracks the
// active option.
func (s *Session) promptChoice(ctx context.Context, c *controller.Controller, field formspec.Field, state controller.Field) error {
	var (
		choices []formspec.Option
		labels  []string
	)
	defaultIndex := -1
	for _, opt := range field.Options {
		if optState, ok := state.Options[opt.ID]; ok && (optState.IsDisabled || !optState.IsVisible) {
			continue
		}
		if isCurrent(field, state, opt) {
			defaultIndex = len(choices)
		}
		choices = append(choices, opt)
		labels = append(labels, opt.Label)
	}
	if len(choices) == 0 {
		return fmt.Errorf("%w: %q", ErrNoChoices, field.Key)
	}

	idx, err := s.driver.Select(ctx, SelectConfig{
		Message:      field.Title(),
		Options:      labels,
		DefaultIndex: defaultIndex,
		Help:         field.Help,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(choices) {
		return fmt.Errorf("tui: field %q: choice %d out of range", field.Key, idx)
	}
	chosen := choices[idx]
	if field.ControlType() == controller.FieldRadio {
		c.SelectOption(field.Key, chosen.ID, chosen.Value)
	} else {
		c.SetFieldValue(field.Key, chosen.Value)
	}
	return nil
}

func isCurrent(field formspec.Field, state controller.Field, opt formspec.Option) bool {
	if field.ControlType() == controller.FieldRadio && state.ActiveID != "" {
		return state.ActiveID == opt.ID
	}
	return state.Value != nil && fmt.Sprint(state.Value) == fmt.Sprint(opt.Value)
}

func (s *Session) flush(ctx context.Context, c *controller.Controller, feed *messageFeed) error {
	for _, key := range feed.drain() {
		state, ok := c.GetField(key)
		if !ok || state.IsValid {
			continue
		}
		msg := render.Message(state.ValidationResult)
		if msg == "" {
			msg = "invalid"
		}
		title := key
		if field, ok := s.def.Field(key); ok {
			title = field.Title()
		}
		prefix := s.theme.ErrorPrefix
		if state.ValidationInProgress {
			prefix = s.theme.InfoPrefix
		}
		if err := s.driver.Info(ctx, prefix+title+": "+msg); err != nil {
			return err
		}
	}
	return nil
}

func summarize(issues []render.Issue) string {
	parts := make([]string, len(issues))
	for i, issue := range issues {
		parts[i] = issue.Key + ": " + issue.Message
	}
	return strings.Join(parts, "; ")
}

func text(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

// messageFeed collects the keys whose validation message should be shown.
// Listeners may fire from async resolutions, so the feed is locked.
type messageFeed struct {
	mu     sync.Mutex
	shown  map[string]bool
	queued []string
}

func newMessageFeed() *messageFeed {
	return &messageFeed{shown: make(map[string]bool)}
}

// listen subscribes to message visibility and validator results for every
// field and returns the combined unsubscribe.
func (f *messageFeed) listen(c *controller.Controller, def *formspec.Definition) func() {
	var subs []controller.Unsubscribe
	for _, field := range def.Fields {
		key := field.Key
		subs = append(subs, c.SubscribeOnValidate(controller.MessageListener{
			Key: key,
			Action: func(show, valid bool) {
				f.mark(key, show, !show || valid)
			},
		}))
		validator := controller.Validator{
			Key:    key,
			Action: func(any) { f.resend(key) },
		}
		if field.ControlType() == controller.FieldRadio && len(field.Options) > 0 {
			validator.Type = controller.FieldRadio
			validator.ID = field.Options[0].ID
		}
		subs = append(subs, c.SubscribeValidator(validator))
	}
	return func() {
		for _, unsubscribe := range subs {
			unsubscribe()
		}
	}
}

func (f *messageFeed) mark(key string, show, quiet bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown[key] = show
	if !quiet {
		f.enqueue(key)
	}
}

// resend queues key again when its message is already on display, so a
// changed result is reported.
func (f *messageFeed) resend(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shown[key] {
		f.enqueue(key)
	}
}

func (f *messageFeed) enqueue(key string) {
	for _, queued := range f.queued {
		if queued == key {
			return
		}
	}
	f.queued = append(f.queued, key)
}

func (f *messageFeed) drain() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.queued
	f.queued = nil
	return out
}
