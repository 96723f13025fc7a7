package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing destination, end date before start date).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned by repo functions when a write violates a unique
// constraint (duplicate email or username). It is internal: the plan service
// reacts to it with a lookup retry instead of failing the request.
var ErrConflict = errors.New("conflict")

// ErrGenerationFailed is returned by the plan service when the LLM call fails
// or returns unusable output. The upstream error stays in the chain so its
// message is available for diagnostics.
// Handlers should map this to HTTP 502 Bad Gateway.
var ErrGenerationFailed = errors.New("generation failed")
