package tui

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/controller"
)

// Theme captures optional message prefixes. Keep minimal to avoid coupling
// session logic to ANSI specifics.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// SubmitTransformer mutates submitted values before serialization.
type SubmitTransformer func(map[string]any) (map[string]any, error)

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithOutputFormat selects the encoder used for the submitted values
// (json, form or pretty).
func WithOutputFormat(format string) Option {
	return func(s *Session) {
		if format != "" {
			s.format = format
		}
	}
}

// WithSubmitTransformer allows callers to mutate submitted values prior to
// serialization.
func WithSubmitTransformer(fn SubmitTransformer) Option {
	return func(s *Session) {
		s.transform = fn
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}

// WithLogger sets the logger shared with the controller.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithMaxAttempts bounds the correction rounds after a failed submit.
func WithMaxAttempts(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithControllerOptions forwards options to the controller the session
// builds, after the ones implied by the definition.
func WithControllerOptions(opts ...controller.Option) Option {
	return func(s *Session) {
		s.controllerOpts = append(s.controllerOpts, opts...)
	}
}
