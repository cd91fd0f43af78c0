package plugin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/interledger-go/plugin-bells/internal/metrics"
	plugerrors "github.com/interledger-go/plugin-bells/pkg/plugin/errors"

	"github.com/interledger-go/plugin-bells/pkg/bells"
)

// Send submits an outgoing transfer. The destination account and amount are
// validated locally before any network call. When notary cases are attached,
// each case is notified of the transfer's fulfillment target after
// submission.
func (p *Plugin) Send(ctx context.Context, transfer *bells.PluginTransfer) error {
	sess, err := p.currentSession("send")
	if err != nil {
		return err
	}

	if transfer.Account == "" {
		return plugerrors.InvalidFieldsError(nil, "invalid account")
	}
	if err := validateAmount(transfer.Amount); err != nil {
		return err
	}
	if transfer.ID == "" {
		transfer.ID = uuid.NewString()
	} else if _, err := uuid.Parse(transfer.ID); err != nil {
		return plugerrors.InvalidFieldsError(err, "invalid id")
	}

	encoded, err := sess.codec.EncodeOutgoing(transfer)
	if err != nil {
		return err
	}

	if err := p.ledger.SubmitTransfer(ctx, encoded); err != nil {
		metrics.TransfersSubmitted.WithLabelValues("error").Inc()
		return err
	}
	metrics.TransfersSubmitted.WithLabelValues("ok").Inc()
	p.logger.Debug("Transfer submitted",
		zap.String("id", transfer.ID),
		zap.String("account", transfer.Account),
		zap.String("amount", transfer.Amount),
	)

	fulfillmentURI := sess.codec.FulfillmentURI(transfer.ID)
	for _, caseURI := range transfer.Cases {
		if err := p.ledger.NotifyCase(ctx, caseURI, fulfillmentURI); err != nil {
			return err
		}
	}
	return nil
}

// validateAmount requires a positive decimal string. The amount is never
// converted to a float; decimal parsing is used for the sign check only and
// the original string is what goes on the wire.
func validateAmount(amount string) error {
	if amount == "" {
		return plugerrors.InvalidFieldsError(nil, "invalid amount")
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil || !parsed.IsPositive() {
		return plugerrors.InvalidFieldsError(err, "invalid amount")
	}
	return nil
}

// FulfillCondition submits the fulfillment for a prepared conditional
// transfer. Remote failures with no usable classification (5xx, transport)
// surface as a submission error naming the transfer.
func (p *Plugin) FulfillCondition(ctx context.Context, transferID, fulfillment string) error {
	sess, err := p.currentSession("fulfillCondition")
	if err != nil {
		return err
	}

	err = p.ledger.SubmitFulfillment(ctx, sess.codec.FulfillmentURI(transferID), fulfillment)
	if err != nil {
		if plugerrors.Is(err, plugerrors.KindExternal) {
			return fmt.Errorf("Failed to submit fulfillment for transfer: %s Error: %s",
				transferID, err.Error())
		}
		return err
	}
	return nil
}

// GetFulfillment fetches the fulfillment of an executed transfer.
func (p *Plugin) GetFulfillment(ctx context.Context, transferID string) (string, error) {
	sess, err := p.currentSession("getFulfillment")
	if err != nil {
		return "", err
	}
	return p.ledger.GetFulfillment(ctx, sess.codec.FulfillmentURI(transferID))
}

// RejectIncomingTransfer rejects a prepared incoming transfer with a
// plain-text reason. The ledger's response body is discarded.
func (p *Plugin) RejectIncomingTransfer(ctx context.Context, transferID, reason string) error {
	sess, err := p.currentSession("rejectIncomingTransfer")
	if err != nil {
		return err
	}
	return p.ledger.SubmitRejection(ctx, sess.codec.RejectionURI(transferID), reason)
}
