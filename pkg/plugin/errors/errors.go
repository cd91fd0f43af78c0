// Package errors contains the closed error taxonomy surfaced by the plugin.
package errors

import "errors"

// Kind classifies a plugin error
type Kind int

const (
	// KindExternal is an unexpected remote status/shape or a transport failure
	KindExternal Kind = iota
	// KindInvalidFields is for local or remote request validation failures
	KindInvalidFields
	// KindDuplicateID is raised when the ledger rejects a transfer ID that is already taken
	KindDuplicateID
	// KindNotAccepted is raised when the ledger refuses an operation (unmet condition, unauthorized, generic 4xx)
	KindNotAccepted
	// KindTransferNotFound is raised when the referenced transfer does not exist
	KindTransferNotFound
	// KindMissingFulfillment is raised when a transfer exists but carries no fulfillment
	KindMissingFulfillment
	// KindTransferNotConditional is raised when fulfilling a transfer that has no condition
	KindTransferNotConditional
	// KindAlreadyRolledBack is raised when fulfilling a transfer the ledger has already rejected
	KindAlreadyRolledBack
	// KindAlreadyFulfilled is raised when rejecting a transfer the ledger has already executed
	KindAlreadyFulfilled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidFields:
		return "InvalidFieldsError"
	case KindDuplicateID:
		return "DuplicateIdError"
	case KindNotAccepted:
		return "NotAcceptedError"
	case KindTransferNotFound:
		return "TransferNotFoundError"
	case KindMissingFulfillment:
		return "MissingFulfillmentError"
	case KindTransferNotConditional:
		return "TransferNotConditionalError"
	case KindAlreadyRolledBack:
		return "AlreadyRolledBackError"
	case KindAlreadyFulfilled:
		return "AlreadyFulfilledError"
	default:
		return "ExternalError"
	}
}

// PluginError is the error type returned by every plugin operation
// that fails in a classifiable way.
type PluginError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error method to comply with error interface
func (err PluginError) Error() string {
	if err.Message != "" {
		return err.Message
	}
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Kind.String()
}

// Unwrap returns the underlying error
func (err PluginError) Unwrap() error {
	return err.Err
}

// Is checks that provided error is a PluginError with the desired Kind
func Is(err error, kind Kind) bool {
	var plugErr *PluginError
	if errors.As(err, &plugErr) && plugErr.Kind == kind {
		return true
	}
	return false
}

// InvalidFieldsError returns an error with kind KindInvalidFields
func InvalidFieldsError(err error, message string) error {
	return &PluginError{Kind: KindInvalidFields, Message: message, Err: err}
}

// DuplicateIDError returns an error with kind KindDuplicateID
func DuplicateIDError(err error, message string) error {
	return &PluginError{Kind: KindDuplicateID, Message: message, Err: err}
}

// NotAcceptedError returns an error with kind KindNotAccepted
func NotAcceptedError(err error, message string) error {
	return &PluginError{Kind: KindNotAccepted, Message: message, Err: err}
}

// TransferNotFoundError returns an error with kind KindTransferNotFound
func TransferNotFoundError(err error, message string) error {
	return &PluginError{Kind: KindTransferNotFound, Message: message, Err: err}
}

// MissingFulfillmentError returns an error with kind KindMissingFulfillment
func MissingFulfillmentError(err error, message string) error {
	return &PluginError{Kind: KindMissingFulfillment, Message: message, Err: err}
}

// TransferNotConditionalError returns an error with kind KindTransferNotConditional
func TransferNotConditionalError(err error, message string) error {
	return &PluginError{Kind: KindTransferNotConditional, Message: message, Err: err}
}

// AlreadyRolledBackError returns an error with kind KindAlreadyRolledBack
func AlreadyRolledBackError(err error, message string) error {
	return &PluginError{Kind: KindAlreadyRolledBack, Message: message, Err: err}
}

// AlreadyFulfilledError returns an error with kind KindAlreadyFulfilled
func AlreadyFulfilledError(err error, message string) error {
	return &PluginError{Kind: KindAlreadyFulfilled, Message: message, Err: err}
}

// ExternalError returns an error with kind KindExternal
func ExternalError(err error, message string) error {
	return &PluginError{Kind: KindExternal, Message: message, Err: err}
}
