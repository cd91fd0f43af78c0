package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	plugerrors "github.com/interledger-go/plugin-bells/pkg/plugin/errors"
)

// CallContext tells the error mapper which operation produced a response.
// Status and body id alone cannot distinguish a modification conflict raised
// by a fulfillment submission (transfer already rolled back) from one raised
// by a rejection submission (transfer already fulfilled).
type CallContext int

const (
	// ContextTransfer is the default context for transfer submission and
	// account operations.
	ContextTransfer CallContext = iota
	// ContextFulfillment marks fulfillment submission and retrieval.
	ContextFulfillment
	// ContextRejection marks rejection submission.
	ContextRejection
)

// rejectedStateMessage is the exact message the ledger uses when a
// fulfillment is submitted for a transfer it has already rejected.
const rejectedStateMessage = "Transfers in state rejected may not be executed"

// errorBody is the ledger's error response shape.
type errorBody struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// MapRemoteError translates a non-2xx ledger response into the plugin's
// closed error taxonomy. The raw status code never escapes this function.
func MapRemoteError(cctx CallContext, status int, body []byte) error {
	if status >= 500 {
		return plugerrors.ExternalError(nil, fmt.Sprintf("Remote error: status=%d", status))
	}

	var remote errorBody
	if err := json.Unmarshal(body, &remote); err != nil || remote.ID == "" {
		return plugerrors.ExternalError(nil, fmt.Sprintf("Remote error: status=%d", status))
	}

	switch remote.ID {
	case "InvalidBodyError":
		return plugerrors.InvalidFieldsError(nil, remote.Message)
	case "InvalidModificationError":
		switch {
		case cctx == ContextFulfillment && remote.Message == rejectedStateMessage:
			return plugerrors.AlreadyRolledBackError(nil, remote.Message)
		case cctx == ContextRejection:
			return plugerrors.AlreadyFulfilledError(nil, remote.Message)
		default:
			return plugerrors.DuplicateIDError(nil, remote.Message)
		}
	case "UnmetConditionError", "UnauthorizedError":
		return plugerrors.NotAcceptedError(nil, remote.Message)
	case "TransferNotConditionalError":
		return plugerrors.TransferNotConditionalError(nil, remote.Message)
	case "NotFoundError", "TransferNotFoundError":
		return plugerrors.TransferNotFoundError(nil, remote.Message)
	case "MissingFulfillmentError":
		return plugerrors.MissingFulfillmentError(nil, remote.Message)
	default:
		return plugerrors.NotAcceptedError(nil, remote.Message)
	}
}

// MapTransportError wraps a network-level failure (no response received) as
// an ExternalError carrying the underlying message.
func MapTransportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return plugerrors.ExternalError(err, fmt.Sprintf("Remote error: message=%s", err.Error()))
}
