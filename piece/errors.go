package piece

import "errors"

var (
	// ErrNotFound is returned when a piece, action or property does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPiece is returned by Validate and Registry.Register.
	ErrInvalidPiece = errors.New("invalid piece")
	// ErrInvalidProps is returned when required props are missing or malformed.
	ErrInvalidProps = errors.New("invalid props")
	// ErrAuthRequired is returned when a piece requires a connection and none
	// was supplied.
	ErrAuthRequired = errors.New("authentication required")
	// ErrNotResolvable is returned when a property has nothing to resolve.
	ErrNotResolvable = errors.New("property is not resolvable")
)
