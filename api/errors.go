package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/GoCodeAlone/workflow-plugin-soap/invoker"
	"github.com/GoCodeAlone/workflow-plugin-soap/piece"
	"github.com/GoCodeAlone/workflow-plugin-soap/pieces/harvest"
	"github.com/GoCodeAlone/workflow-plugin-soap/soap"
	"github.com/GoCodeAlone/workflow-plugin-soap/store"
	"github.com/GoCodeAlone/workflow-plugin-soap/wsdl"
)

// statusFor maps a domain error to the HTTP status reported to the builder.
func statusFor(err error) int {
	switch {
	case errors.Is(err, piece.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, piece.ErrInvalidProps),
		errors.Is(err, piece.ErrNotResolvable),
		errors.Is(err, invoker.ErrInvalidInvocation):
		return http.StatusBadRequest
	case errors.Is(err, wsdl.ErrUnknownOperation), errors.Is(err, invoker.ErrFieldMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, piece.ErrAuthRequired), errors.Is(err, soap.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, wsdl.ErrFetch),
		errors.Is(err, wsdl.ErrParse),
		errors.Is(err, soap.ErrRemoteFault),
		errors.Is(err, soap.ErrTransport),
		errors.Is(err, harvest.ErrAPI):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure reports err with its status and failure kind.
func writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	kind := invoker.ErrorKind(err)
	if kind == "internal" {
		kind = ""
	}
	writeErrorKind(w, status, msg, kind)
}
