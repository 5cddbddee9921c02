package core

import "errors"

// Option is a function that configures the Core.
// Options return errors to enable validation during construction.
type Option func(*Core) error

// New creates a new Core instance with the provided options.
//
// A validator is required unless the Core is disabled:
//
//	c, err := core.New(
//	    core.WithValidator(v),
//	    core.WithLogger(slog.Default()),
//	)
func New(opts ...Option) (*Core, error) {
	c := &Core{}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.validator == nil && !c.disabled {
		return nil, errors.New("validator is required but not set (use WithValidator option)")
	}

	return c, nil
}

// WithValidator sets the validator used for every bearer token.
func WithValidator(validator Validator) Option {
	return func(c *Core) error {
		if validator == nil {
			return errors.New("validator cannot be nil")
		}
		c.validator = validator
		return nil
	}
}

// WithDisabled turns authentication off: every call to Authenticate returns
// a bypassed outcome without looking at the header. This is the mode used
// when no tenant or audience is configured.
func WithDisabled(disabled bool) Option {
	return func(c *Core) error {
		c.disabled = disabled
		return nil
	}
}

// WithLogger sets an optional logger for the Core.
//
// The Core logs rejection kinds and validation timings. It never logs the
// token itself.
func WithLogger(logger Logger) Option {
	return func(c *Core) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}
