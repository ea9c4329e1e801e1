package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnauthorized indicates an authentication denial. Handlers must map this
// to a generic "invalid credentials" response without detail about which
// factor failed.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates the caller is authenticated but the operation is
// not permitted by policy.
var ErrForbidden = errors.New("forbidden")

// ErrTokenNotValid indicates a bearer token failed structural or
// cryptographic validation (bad prefix, segment count, expiry, secret).
var ErrTokenNotValid = errors.New("token not valid")

// ErrTooManyTokens indicates the per-user bearer token ceiling was reached.
var ErrTooManyTokens = errors.New("too many tokens for user")

// ErrWeakPassword indicates a password below the configured strength policy.
var ErrWeakPassword = errors.New("password does not meet strength requirements")

// ErrNoLocalIdentity indicates the user exists but holds no local password identity.
var ErrNoLocalIdentity = errors.New("no local identity for user")

// ErrRegistrationDisabled indicates an external login matched no identity
// and the provider instance does not permit new registrations.
var ErrRegistrationDisabled = errors.New("registration is disabled for this provider")

// DeniedError is an authentication denial carrying a stable, user-safe
// reason (e.g. "password expired"). It unwraps to ErrUnauthorized so callers
// can treat it uniformly as a denial.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return e.Reason
}

func (e *DeniedError) Unwrap() error {
	return ErrUnauthorized
}
