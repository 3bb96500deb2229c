package soap

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying why an invocation failed. Every error returned
// by Client.Call matches exactly one of them with errors.Is.
var (
	ErrTransport   = errors.New("soap: transport failure")
	ErrRemoteFault = errors.New("soap: remote fault")
	ErrAuth        = errors.New("soap: authentication rejected")
)

// ErrorKind classifies an invocation failure.
type ErrorKind string

const (
	KindTransport   ErrorKind = "transport"
	KindRemoteFault ErrorKind = "remote_fault"
	KindAuth        ErrorKind = "auth"
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindRemoteFault:
		return ErrRemoteFault
	case KindAuth:
		return ErrAuth
	default:
		return ErrTransport
	}
}

// InvocationError is returned when a call does not produce a result.
// Exchange is set whenever the request reached the wire.
type InvocationError struct {
	Kind       ErrorKind
	Operation  string
	StatusCode int
	Exchange   *Exchange
	Err        error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("soap %s: operation %q: %v", e.Kind, e.Operation, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *InvocationError) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}

// KindOf returns the kind of an invocation error, or "" when err is not one.
func KindOf(err error) ErrorKind {
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
