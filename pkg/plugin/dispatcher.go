package plugin

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/interledger-go/plugin-bells/internal/metrics"
	"github.com/interledger-go/plugin-bells/pkg/bells"
)

// ackReply is the JSON acknowledgment sent back over the channel for every
// received notification. Unacknowledged clients are treated as unresponsive
// by the ledger.
type ackReply struct {
	Result       string        `json:"result"`
	IgnoreReason *ignoreReason `json:"ignoreReason,omitempty"`
}

type ignoreReason struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func ignoredReply() *ackReply {
	return &ackReply{
		Result: "ignored",
		IgnoreReason: &ignoreReason{
			ID:      "UnrelatedNotificationError",
			Message: "Notification does not seem related to connector",
		},
	}
}

func malformedReply(message string) *ackReply {
	return &ackReply{
		Result: "ignored",
		IgnoreReason: &ignoreReason{
			ID:      "InvalidBodyError",
			Message: message,
		},
	}
}

// dispatchLoop processes notifications strictly in receive order, one at a
// time. A slow handler delays the next receive; that is the backpressure
// model.
func (p *Plugin) dispatchLoop(sess *session) {
	defer close(sess.dispatchDone)
	for raw := range sess.channel.Messages() {
		p.handleNotification(sess, raw)
	}
	p.channelClosed(sess)
}

// channelClosed tears the session down when the notification channel dies for
// good (reconnect abandoned) underneath an active session, so IsConnected
// stops reporting a connection that no longer exists. During an orderly
// Disconnect the session is already gone and this is a no-op.
func (p *Plugin) channelClosed(sess *session) {
	p.mu.Lock()
	if p.session != sess {
		p.mu.Unlock()
		return
	}
	p.session = nil
	p.state = stateDisconnected
	p.mu.Unlock()
	p.logger.Warn("Notification channel closed, session terminated")
}

// handleNotification classifies one envelope and emits exactly one lifecycle
// event, then acknowledges it. Unrelated or malformed notifications emit no
// event but are still acknowledged: every received message gets a reply so
// the remote never treats the client as unresponsive. The dispatcher keeps no
// state across notifications: a duplicate envelope re-emits the same event.
func (p *Plugin) handleNotification(sess *session, raw json.RawMessage) {
	var env bells.Notification
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.NotificationsTotal.WithLabelValues("malformed").Inc()
		p.logger.Warn("Malformed notification", zap.Error(err))
		p.acknowledge(sess, malformedReply(err.Error()))
		return
	}

	transfer, err := sess.codec.DecodeIncoming(&env.Resource)
	if err != nil {
		if !errors.Is(err, bells.ErrUnrelatedTransfer) {
			metrics.NotificationsTotal.WithLabelValues("malformed").Inc()
			p.logger.Warn("Undecodable notification", zap.String("transfer", env.Resource.ID), zap.Error(err))
			p.acknowledge(sess, malformedReply(err.Error()))
			return
		}
		metrics.NotificationsTotal.WithLabelValues("unrelated").Inc()
		p.logger.Debug("Ignoring unrelated notification", zap.String("transfer", env.Resource.ID))
		p.acknowledge(sess, ignoredReply())
		return
	}

	credit := sess.codec.MatchedCredit(&env.Resource, transfer.Direction)
	kind, detail, err := classify(&env, transfer, credit)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("malformed").Inc()
		p.logger.Warn("Unclassifiable notification",
			zap.String("transfer", transfer.ID),
			zap.String("state", env.Resource.State),
			zap.Error(err),
		)
		p.acknowledge(sess, malformedReply(err.Error()))
		return
	}

	metrics.NotificationsTotal.WithLabelValues("dispatched").Inc()
	p.logger.Debug("Dispatching notification",
		zap.String("transfer", transfer.ID),
		zap.String("event", kind.String()),
	)
	p.events.emit(kind, transfer, detail)
	p.acknowledge(sess, &ackReply{Result: "processed"})
}

func (p *Plugin) acknowledge(sess *session, reply *ackReply) {
	if err := sess.channel.Send(reply); err != nil {
		p.logger.Warn("Failed to acknowledge notification", zap.Error(err))
	}
}

// classify picks the single lifecycle event for a related transfer
// notification, per the resource state:
//
//	prepared -> *_prepare
//	executed -> *_fulfill when the execution condition and its fulfillment
//	            are both present, else *_transfer
//	rejected -> *_cancel with the fulfillment when the cancellation
//	            condition and its fulfillment are both present; *_reject
//	            with the decoded rejection message when the matching
//	            credit leg carries rejected=true; else *_cancel with no
//	            fulfillment (expiry)
func classify(env *bells.Notification, transfer *bells.PluginTransfer, credit *bells.Credit) (EventKind, string, error) {
	incoming := transfer.Direction == bells.DirectionIncoming
	resource := &env.Resource

	var related bells.RelatedResources
	if env.RelatedResources != nil {
		related = *env.RelatedResources
	}

	switch resource.State {
	case bells.StatePrepared:
		return pick(incoming, IncomingPrepare, OutgoingPrepare), "", nil

	case bells.StateExecuted:
		if resource.ExecutionCondition != "" && related.ExecutionConditionFulfillment != "" {
			return pick(incoming, IncomingFulfill, OutgoingFulfill), related.ExecutionConditionFulfillment, nil
		}
		return pick(incoming, IncomingTransfer, OutgoingTransfer), "", nil

	case bells.StateRejected:
		if resource.CancellationCondition != "" && related.CancellationConditionFulfillment != "" {
			return pick(incoming, IncomingCancel, OutgoingCancel), related.CancellationConditionFulfillment, nil
		}
		if credit != nil && credit.Rejected {
			message, err := bells.DecodeRejectionMessage(credit.RejectionMessage)
			if err != nil {
				return 0, "", err
			}
			return pick(incoming, IncomingReject, OutgoingReject), message, nil
		}
		// Timeout/expiry rejection: no rejected flag, no cancellation
		// condition. Reported as a cancel with no fulfillment.
		return pick(incoming, IncomingCancel, OutgoingCancel), "", nil

	default:
		return 0, "", errors.New("unknown transfer state " + resource.State)
	}
}

func pick(incoming bool, in, out EventKind) EventKind {
	if incoming {
		return in
	}
	return out
}
