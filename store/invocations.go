package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for store operations.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)

// InvocationStatus is the outcome of a recorded invocation.
type InvocationStatus string

const (
	StatusSucceeded InvocationStatus = "succeeded"
	StatusFailed    InvocationStatus = "failed"
)

// InvocationRecord is the audit entry written for every action invocation.
type InvocationRecord struct {
	ID          uuid.UUID        `json:"id"`
	Piece       string           `json:"piece"`
	Action      string           `json:"action"`
	Descriptor  string           `json:"descriptor"`
	Operation   string           `json:"operation"`
	Credential  string           `json:"credential"`
	Status      InvocationStatus `json:"status"`
	ErrorKind   string           `json:"errorKind,omitempty"`
	Error       string           `json:"error,omitempty"`
	RawRequest  string           `json:"rawRequest,omitempty"`
	RawResponse string           `json:"rawResponse,omitempty"`
	StartedAt   time.Time        `json:"startedAt"`
	Duration    time.Duration    `json:"duration"`
}

// InvocationFilter specifies criteria for listing invocation records.
type InvocationFilter struct {
	Piece      string
	Operation  string
	Status     InvocationStatus
	Since      time.Time
	Pagination Pagination
}

// Pagination holds common pagination parameters.
type Pagination struct {
	Offset int
	Limit  int
}

// DefaultPagination returns a Pagination with sensible defaults.
func DefaultPagination() Pagination {
	return Pagination{Offset: 0, Limit: 50}
}

// InvocationStore defines persistence operations for invocation records.
// List returns records newest first.
type InvocationStore interface {
	Record(ctx context.Context, rec *InvocationRecord) error
	Get(ctx context.Context, id uuid.UUID) (*InvocationRecord, error)
	List(ctx context.Context, f InvocationFilter) ([]*InvocationRecord, error)
}

var (
	passwordElement = regexp.MustCompile(`(<(?:[\w-]+:)?Password\b[^>]*>)[^<]*(</(?:[\w-]+:)?Password>)`)
	nonceElement    = regexp.MustCompile(`(<(?:[\w-]+:)?Nonce\b[^>]*>)[^<]*(</(?:[\w-]+:)?Nonce>)`)
)

// RedactEnvelope masks WS-Security secrets in a raw envelope.
func RedactEnvelope(raw string) string {
	raw = passwordElement.ReplaceAllString(raw, "${1}***${2}")
	return nonceElement.ReplaceAllString(raw, "${1}***${2}")
}

func (r *InvocationRecord) prepare() {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	r.RawRequest = RedactEnvelope(r.RawRequest)
}

func (f InvocationFilter) matches(r *InvocationRecord) bool {
	if f.Piece != "" && r.Piece != f.Piece {
		return false
	}
	if f.Operation != "" && r.Operation != f.Operation {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && r.StartedAt.Before(f.Since) {
		return false
	}
	return true
}

func (f InvocationFilter) limit() int {
	if f.Pagination.Limit <= 0 {
		return DefaultPagination().Limit
	}
	return f.Pagination.Limit
}
