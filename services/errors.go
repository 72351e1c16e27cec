package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Domain error taxonomy. Handlers map these onto HTTP statuses with
// StatusForError; everything unrecognized is a 500.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrNoActiveAgreement = errors.New("no active agreement for contract")
	ErrOverAllocation    = errors.New("resolved shares exceed sale amount")
	ErrDuplicateSale     = errors.New("sale already finalized")
	ErrStaleWrite        = errors.New("tier was modified concurrently, re-fetch and retry")
	ErrTimeout           = errors.New("operation timed out")
)

// StatusForError picks the HTTP status for a domain error.
// DuplicateSale and StaleWrite are conflicts (recoverable by refetch),
// OverAllocation and NoActiveAgreement mean the configuration itself is
// unprocessable, Timeout maps to gateway timeout so callers retry.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotAuthorized):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNoActiveAgreement), errors.Is(err, ErrOverAllocation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ErrDuplicateSale), errors.Is(err, ErrStaleWrite):
		return fiber.StatusConflict
	case errors.Is(err, ErrTimeout):
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusInternalServerError
}
