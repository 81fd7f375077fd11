package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/MKhiriev/civic-sync/internal/utils"
)

type credentialValidator struct {
	now func() time.Time
}

// NewCredentialValidator accepts any non-empty credential, except a JWT
// whose exp claim has passed. Opaque tokens can only be judged by the
// remote service.
func NewCredentialValidator() CredentialValidator {
	return &credentialValidator{now: time.Now}
}

func (v *credentialValidator) Validate(credential string) error {
	if strings.TrimSpace(credential) == "" {
		return ErrNoCredential
	}

	expiresAt, ok, err := utils.CredentialExpiry(credential)
	if err != nil {
		// malformed tokens are left for the remote service to refuse
		return nil
	}
	if ok && !expiresAt.After(v.now()) {
		return fmt.Errorf("%w: expired at %s", ErrCredentialExpired, expiresAt.UTC().Format(time.RFC3339))
	}

	return nil
}
