package client

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plugerrors "github.com/interledger-go/plugin-bells/pkg/plugin/errors"
)

func TestMapRemoteError(t *testing.T) {
	for _, tc := range []struct {
		name    string
		cctx    CallContext
		status  int
		body    string
		kind    plugerrors.Kind
		message string
	}{
		{
			name:    "invalid body",
			status:  400,
			body:    `{"id":"InvalidBodyError","message":"Body did not match schema Transfer"}`,
			kind:    plugerrors.KindInvalidFields,
			message: "Body did not match schema Transfer",
		},
		{
			name:    "duplicate transfer",
			status:  400,
			body:    `{"id":"InvalidModificationError","message":"Transfer may not be modified in this way"}`,
			kind:    plugerrors.KindDuplicateID,
			message: "Transfer may not be modified in this way",
		},
		{
			name:    "unmet condition",
			cctx:    ContextFulfillment,
			status:  422,
			body:    `{"id":"UnmetConditionError","message":"Fulfillment does not match condition"}`,
			kind:    plugerrors.KindNotAccepted,
			message: "Fulfillment does not match condition",
		},
		{
			name:    "unauthorized",
			status:  403,
			body:    `{"id":"UnauthorizedError","message":"Invalid attempt to authorize debit"}`,
			kind:    plugerrors.KindNotAccepted,
			message: "Invalid attempt to authorize debit",
		},
		{
			name:    "not conditional",
			cctx:    ContextFulfillment,
			status:  422,
			body:    `{"id":"TransferNotConditionalError","message":"Transfer is not conditional"}`,
			kind:    plugerrors.KindTransferNotConditional,
			message: "Transfer is not conditional",
		},
		{
			name:    "not found",
			status:  404,
			body:    `{"id":"NotFoundError","message":"Unknown transfer"}`,
			kind:    plugerrors.KindTransferNotFound,
			message: "Unknown transfer",
		},
		{
			name:    "transfer not found",
			cctx:    ContextFulfillment,
			status:  404,
			body:    `{"id":"TransferNotFoundError","message":"This transfer does not exist"}`,
			kind:    plugerrors.KindTransferNotFound,
			message: "This transfer does not exist",
		},
		{
			name:    "missing fulfillment",
			cctx:    ContextFulfillment,
			status:  404,
			body:    `{"id":"MissingFulfillmentError","message":"This transfer has not yet been fulfilled"}`,
			kind:    plugerrors.KindMissingFulfillment,
			message: "This transfer has not yet been fulfilled",
		},
		{
			name:    "unrecognized id falls back to not accepted",
			status:  400,
			body:    `{"id":"SomeNewError","message":"something else"}`,
			kind:    plugerrors.KindNotAccepted,
			message: "something else",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := MapRemoteError(tc.cctx, tc.status, []byte(tc.body))
			require.Error(t, err)
			assert.True(t, plugerrors.Is(err, tc.kind), "got %v", err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestMapRemoteError_ModificationConflictByContext(t *testing.T) {
	rejected := `{"id":"InvalidModificationError","message":"Transfers in state rejected may not be executed"}`
	generic := `{"id":"InvalidModificationError","message":"Transfer may not be modified in this way"}`

	// Fulfilling a transfer the ledger already rejected.
	err := MapRemoteError(ContextFulfillment, 400, []byte(rejected))
	assert.True(t, plugerrors.Is(err, plugerrors.KindAlreadyRolledBack), "got %v", err)

	// The same id with a different message is an ordinary conflict.
	err = MapRemoteError(ContextFulfillment, 400, []byte(generic))
	assert.True(t, plugerrors.Is(err, plugerrors.KindDuplicateID), "got %v", err)

	// Rejecting a transfer the ledger already executed.
	err = MapRemoteError(ContextRejection, 400, []byte(generic))
	assert.True(t, plugerrors.Is(err, plugerrors.KindAlreadyFulfilled), "got %v", err)

	// Transfer submission conflicts stay duplicate-id errors.
	err = MapRemoteError(ContextTransfer, 400, []byte(generic))
	assert.True(t, plugerrors.Is(err, plugerrors.KindDuplicateID), "got %v", err)
}

func TestMapRemoteError_ServerAndUnparsable(t *testing.T) {
	err := MapRemoteError(ContextTransfer, 500, []byte(`{"id":"InvalidBodyError"}`))
	assert.True(t, plugerrors.Is(err, plugerrors.KindExternal), "5xx always maps to external")
	assert.EqualError(t, err, "Remote error: status=500")

	err = MapRemoteError(ContextTransfer, 400, []byte("not json"))
	assert.True(t, plugerrors.Is(err, plugerrors.KindExternal))
	assert.EqualError(t, err, "Remote error: status=400")

	err = MapRemoteError(ContextTransfer, 400, []byte(`{"message":"no id"}`))
	assert.True(t, plugerrors.Is(err, plugerrors.KindExternal))
}

func TestMapTransportError(t *testing.T) {
	inner := errors.New("connection refused")
	err := MapTransportError(&url.Error{Op: "Put", URL: "http://red.example/transfers/1", Err: inner})

	assert.True(t, plugerrors.Is(err, plugerrors.KindExternal))
	assert.EqualError(t, err, "Remote error: message=connection refused")
	assert.ErrorIs(t, err, inner)
}
