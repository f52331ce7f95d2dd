package ingest

import "errors"

// ValidationError is a missing or malformed input. Clients see its message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError is an unknown tenant, advertiser, visit or action.
type NotFoundError struct {
	Msg string
	Err error
}

func (e *NotFoundError) Error() string { return e.Msg }

func (e *NotFoundError) Unwrap() error { return e.Err }

// AuthError is an advertiser id and license that do not match.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string { return e.Msg }

const (
	msgMissingParams = "Missing required parameters"
	msgInvalidHash   = "Invalid hash format"
	msgInvalidKey    = "Invalid pkey or hash"
	msgMissingHash   = "Missing hash parameter"
	msgMissingDomain = "Missing domain parameter"
	msgDomain        = "Domain not found"
	msgVisit         = "Visit not found"
	msgAction        = "Action not found"
)

func invalid(msg string) error { return &ValidationError{Msg: msg} }

func notFound(msg string, err error) error { return &NotFoundError{Msg: msg, Err: err} }

// ClientMessage returns the message to show the caller when err is a
// ValidationError, NotFoundError or AuthError.
func ClientMessage(err error) (string, bool) {
	var (
		v *ValidationError
		n *NotFoundError
		a *AuthError
	)
	switch {
	case errors.As(err, &v):
		return v.Msg, true
	case errors.As(err, &n):
		return n.Msg, true
	case errors.As(err, &a):
		return a.Msg, true
	}
	return "", false
}

func outcomeOf(err error) string {
	var (
		v *ValidationError
		n *NotFoundError
		a *AuthError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &v):
		return "invalid"
	case errors.As(err, &n):
		return "not_found"
	case errors.As(err, &a):
		return "unauthorized"
	}
	return "error"
}
