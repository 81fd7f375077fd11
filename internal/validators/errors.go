package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidActionType = errors.New("invalid action type")
	ErrNoCredential      = errors.New("no credential attached")
	ErrInvalidLocalRefID = errors.New("invalid local reference id")
	ErrEmptyPayload      = errors.New("payload is required")

	ErrInvalidOwnerID      = errors.New("invalid owner entity id")
	ErrNoDocumentSource    = errors.New("document has neither a source url nor an object key")
	ErrInvalidSourceURL    = errors.New("invalid document source url")
	ErrInvalidExpectedSize = errors.New("invalid expected document size")
)
