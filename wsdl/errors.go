package wsdl

import "errors"

// Sentinel errors for descriptor loading and lookup.
var (
	// ErrFetch is returned when a descriptor or one of its imports cannot be
	// retrieved.
	ErrFetch = errors.New("wsdl: fetch failed")

	// ErrParse is returned when a retrieved document is not a usable WSDL or
	// XML Schema document.
	ErrParse = errors.New("wsdl: parse failed")

	// ErrUnknownOperation is returned when an operation name is not declared by
	// the descriptor's selected port.
	ErrUnknownOperation = errors.New("wsdl: unknown operation")
)
