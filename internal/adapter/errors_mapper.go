package adapter

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/civic-sync/models"
)

func mapHTTPError(resp *resty.Response) error {
	return mapStatus(resp.StatusCode(), resp.Body())
}

// mapStatus maps a response status and body onto the failure classes.
// 2xx yields nil.
func mapStatus(code int, rawBody []byte) error {
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(rawBody))
	if body == "" {
		body = http.StatusText(code)
	}

	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w: http %d: %s", ErrUnauthorized, code, body)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: http %d: %s", ErrNotFound, code, body)
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: http %d: %s", ErrTransient, code, body)
	case code >= http.StatusBadRequest:
		return fmt.Errorf("%w: http %d: %s", ErrValidation, code, body)
	default:
		return fmt.Errorf("%w: unexpected http %d: %s", ErrTransient, code, body)
	}
}

// mapRequestError wraps a failure to get any response at all.
func mapRequestError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransient, op, err)
}

// Classify translates an adapter error into the failure kind surfaced to
// domain code. Unknown errors are treated as transient.
func Classify(err error) models.FailureKind {
	switch {
	case err == nil:
		return models.FailureNone
	case errors.Is(err, ErrUnauthorized):
		return models.FailureUnauthorized
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownActionType):
		return models.FailureValidation
	default:
		return models.FailureTransient
	}
}
