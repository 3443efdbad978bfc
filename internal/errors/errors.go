package errors

import (
	"errors"
	"fmt"
)

// ConfigurationError indicates required deployment configuration is missing,
// such as the AWS region or a secret resource identifier. It is never retried.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Key != "" {
		msg += fmt.Sprintf(" for '%s'", e.Key)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// SecretResolutionError indicates the secret store was unreachable or the
// secret itself is absent. Missing configuration is reported as
// ConfigurationError instead, so callers can tell the two apart.
type SecretResolutionError struct {
	Name string
	Err  error
}

func (e SecretResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve secret '%s': %v", e.Name, e.Err)
}

func (e SecretResolutionError) Unwrap() error {
	return e.Err
}

// ValidationError indicates a malformed or missing required field on an
// inbound request. The offending field is named in the message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Field '%s' is required", e.Field)
}

// RequestError indicates a well-formed request referencing a resource that
// does not exist. It is caller-visible with its specific message.
type RequestError struct {
	Message string
}

func (e RequestError) Error() string {
	return e.Message
}

// ServiceError is the catch-all for unexpected internal failures. The cause
// is kept for server-side logging but the rendered message never exposes it.
type ServiceError struct {
	Err error
}

func (e ServiceError) Error() string {
	return "Internal server error"
}

func (e ServiceError) Unwrap() error {
	return e.Err
}

// NotFound reports whether err is a RequestError.
func NotFound(err error) bool {
	var reqErr RequestError
	return errors.As(err, &reqErr)
}

// CallerVisible reports whether err carries a message that may cross the
// system boundary unchanged. Everything else is replaced with a generic
// ServiceError message before being returned to a caller.
func CallerVisible(err error) bool {
	var valErr ValidationError
	var reqErr RequestError
	return errors.As(err, &valErr) || errors.As(err, &reqErr)
}
