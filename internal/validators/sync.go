package validators

import (
	"context"
	"net/url"
	"strings"

	"github.com/MKhiriev/civic-sync/models"
)

// Field name constants used to restrict validation to a subset of fields.
const (
	// FieldType targets the action type, which must map to a remote operation.
	FieldType = "type"

	// FieldCredential targets the bearer credential attached at enqueue time.
	FieldCredential = "credential"

	// FieldLocalRefID targets the optional optimistic mirror record reference.
	FieldLocalRefID = "local_ref_id"

	// FieldPayload requires a non-empty payload. Not part of the defaults:
	// some remote operations take an empty body.
	FieldPayload = "payload"

	// FieldOwnerID targets the owning entity id of a document.
	FieldOwnerID = "owner_entity_id"

	// FieldSource targets the document location (source url or object key).
	FieldSource = "source"

	// FieldExpectedSize targets the size announced by the catalog.
	FieldExpectedSize = "expected_size"
)

// SyncValidator implements [Validator] for the values producers hand to the
// sync core: queued actions and document metadata.
type SyncValidator struct {
}

func NewSyncValidator() Validator {
	return &SyncValidator{}
}

// Validate dispatches on the dynamic type of obj. Both value and pointer
// forms are accepted.
//
// Supported types:
//   - models.QueuedAction / *models.QueuedAction
//   - models.DocumentMetadata / *models.DocumentMetadata
//
// Returns ErrUnsupportedType for anything else.
func (v *SyncValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.QueuedAction:
		return v.validateAction(ctx, value, fields...)
	case *models.QueuedAction:
		return v.validateAction(ctx, *value, fields...)

	case models.DocumentMetadata:
		return v.validateDocument(ctx, value, fields...)
	case *models.DocumentMetadata:
		return v.validateDocument(ctx, *value, fields...)

	default:
		return ErrUnsupportedType
	}
}

// validateAction validates a queued action before it is persisted.
//
// Default validated fields: Type, Credential, LocalRefID.
func (v *SyncValidator) validateAction(_ context.Context, action models.QueuedAction, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldType, FieldCredential, FieldLocalRefID}
	}

	for _, f := range fields {
		switch f {
		case FieldType:
			if !action.Type.Valid() {
				return ErrInvalidActionType
			}
		case FieldCredential:
			if strings.TrimSpace(action.Credential) == "" {
				return ErrNoCredential
			}
		case FieldLocalRefID:
			if action.LocalRefID != nil && strings.TrimSpace(*action.LocalRefID) == "" {
				return ErrInvalidLocalRefID
			}
		case FieldPayload:
			if len(action.Payload) == 0 {
				return ErrEmptyPayload
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

// validateDocument validates the metadata a document download starts from.
//
// Default validated fields: OwnerEntityID, Source, ExpectedSize.
func (v *SyncValidator) validateDocument(_ context.Context, meta models.DocumentMetadata, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldOwnerID, FieldSource, FieldExpectedSize}
	}

	for _, f := range fields {
		switch f {
		case FieldOwnerID:
			if strings.TrimSpace(meta.OwnerEntityID) == "" {
				return ErrInvalidOwnerID
			}
		case FieldSource:
			if meta.SourceURL == "" && meta.ObjectKey == "" {
				return ErrNoDocumentSource
			}
			if meta.SourceURL != "" {
				if _, err := url.Parse(meta.SourceURL); err != nil {
					return ErrInvalidSourceURL
				}
			}
		case FieldExpectedSize:
			if meta.ExpectedSize < 0 {
				return ErrInvalidExpectedSize
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}
