package model

import "errors"

// Error kinds shared by the loader, the image ingest and both entry points.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrIO            = errors.New("io error")
	ErrDecode        = errors.New("decode error")
	ErrDevice        = errors.New("device error")
)

// Error ties a failure to one of the kinds above while keeping the
// underlying cause reachable through errors.Is / errors.As.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ConfigurationError wraps err as a configuration failure.
func ConfigurationError(op string, err error) error { return newError(ErrConfiguration, op, err) }

// IOError wraps err as a file or network failure.
func IOError(op string, err error) error { return newError(ErrIO, op, err) }

// DecodeError wraps err as an image decoding failure.
func DecodeError(op string, err error) error { return newError(ErrDecode, op, err) }

// DeviceError wraps err as a compute device failure.
func DeviceError(op string, err error) error { return newError(ErrDevice, op, err) }
