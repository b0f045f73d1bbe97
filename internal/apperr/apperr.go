// Package apperr defines the closed error taxonomy shared by the share
// access protocol. Handlers translate these sentinels to HTTP statuses;
// services wrap them with context via fmt.Errorf and %w.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound signals that a share, file or token record is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalid signals a lifecycle state that precludes access, such as
	// an invalidated share link or a malformed input value.
	ErrInvalid = errors.New("invalid")

	// ErrExpired signals that a record's TTL has passed.
	ErrExpired = errors.New("expired")

	// ErrRevoked signals that the share or file has been revoked.
	ErrRevoked = errors.New("revoked")

	// ErrQuotaExceeded covers both the download-count ceiling and the
	// storage-quota ceiling.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrUnauthorized signals a missing or invalid credential (wrong PIN,
	// bad bearer token). Deliberately unspecific about which check failed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden signals an authenticated caller that is not entitled:
	// wrong account bound, device claimed by another identity.
	ErrForbidden = errors.New("forbidden")

	// ErrSecurityFault signals a replay indicator such as an authenticator
	// counter rollback. Kept distinct from ErrUnauthorized so audit trails
	// can tell a replay from an ordinary verification failure.
	ErrSecurityFault = errors.New("security fault")

	// ErrSizeMismatch signals that a confirmed upload deviates from its
	// validated size beyond tolerance.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrTokenUsed signals a second redemption of a single-use token.
	ErrTokenUsed = errors.New("token already used")

	// ErrTokenMismatch signals a token presented by someone other than the
	// identity it was minted for.
	ErrTokenMismatch = errors.New("token mismatch")
)

// Status maps an error to the HTTP status code for the API surface.
// Unrecognized errors degrade to 500 so internal detail never leaks.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrSizeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrExpired), errors.Is(err, ErrRevoked), errors.Is(err, ErrTokenUsed):
		return http.StatusGone
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrTokenMismatch), errors.Is(err, ErrSecurityFault):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing message for an error. Internal errors
// collapse to a generic message.
func Message(err error) string {
	for _, sentinel := range []error{
		ErrNotFound, ErrInvalid, ErrExpired, ErrRevoked, ErrQuotaExceeded,
		ErrUnauthorized, ErrForbidden, ErrSecurityFault, ErrSizeMismatch,
		ErrTokenUsed, ErrTokenMismatch,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}
