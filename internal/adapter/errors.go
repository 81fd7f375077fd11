package adapter

import "errors"

// Failure classes of a remote call. Every error returned by this package
// wraps exactly one of them.
var (
	// ErrTransient covers network failures, timeouts, 408, 429 and 5xx
	// responses. The call may succeed on a later pass.
	ErrTransient = errors.New("transient remote failure")

	// ErrUnauthorized is returned for 401 and 403 responses. It does not
	// heal without a fresh credential.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrValidation is returned when the remote service refused the request
	// permanently (400, 409, 422 and other 4xx).
	ErrValidation = errors.New("request rejected by remote service")

	// ErrNotFound is returned for 404 responses and missing bucket objects.
	ErrNotFound = errors.New("remote resource not found")
)

// ErrUnknownActionType is returned by Submit for an action type that has no
// route.
var ErrUnknownActionType = errors.New("unknown action type")
