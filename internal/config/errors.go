package config

import "errors"

// ConfigurationError reports a configuration that cannot be used. Err holds
// every problem found, joined with [errors.Join].
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "config: invalid configuration: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// invalid wraps errs in a [*ConfigurationError], or returns nil when errs is
// empty.
func invalid(errs ...error) error {
	if err := errors.Join(errs...); err != nil {
		return &ConfigurationError{Err: err}
	}
	return nil
}
