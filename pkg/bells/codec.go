package bells

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrUnrelatedTransfer marks a notification whose transfer does not reference
// the session's own account exactly once, or whose debit/credit shape is
// outside the 1-debit/1-credit-per-party model this adapter supports.
var ErrUnrelatedTransfer = errors.New("transfer is not related to this account")

// Codec converts between ledger transfer resources and plugin transfer
// records for one session.
type Codec struct {
	ownAccount string
	ledgerURI  string
	addr       *AddressTranslator
}

// NewCodec builds a codec bound to the session's own account URI and ledger
// base URI.
func NewCodec(ownAccount, ledgerURI string, addr *AddressTranslator) *Codec {
	return &Codec{
		ownAccount: ownAccount,
		ledgerURI:  strings.TrimSuffix(ledgerURI, "/"),
		addr:       addr,
	}
}

// TransferURI returns the absolute transfer resource URI for a bare ID.
func (c *Codec) TransferURI(id string) string {
	return c.ledgerURI + "/transfers/" + id
}

// FulfillmentURI returns the fulfillment sub-resource URI for a bare ID.
func (c *Codec) FulfillmentURI(id string) string {
	return c.TransferURI(id) + "/fulfillment"
}

// RejectionURI returns the rejection sub-resource URI for a bare ID.
func (c *Codec) RejectionURI(id string) string {
	return c.TransferURI(id) + "/rejection"
}

// EncodeOutgoing builds the ledger transfer resource for an outgoing plugin
// transfer. The session's own account becomes the sole authorized debit and
// the destination the sole credit.
func (c *Codec) EncodeOutgoing(pt *PluginTransfer) (*Transfer, error) {
	destination, err := c.addr.ToRemote(pt.Account)
	if err != nil {
		return nil, err
	}

	t := &Transfer{
		ID:     c.TransferURI(pt.ID),
		Ledger: c.ledgerURI,
		Debits: []Debit{{
			Account:    c.ownAccount,
			Amount:     pt.Amount,
			Authorized: true,
			Memo:       pt.NoteToSelf,
		}},
		Credits: []Credit{{
			Account: destination,
			Amount:  pt.Amount,
			Memo:    pt.Data,
		}},
		ExecutionCondition:    pt.ExecutionCondition,
		CancellationCondition: pt.CancellationCondition,
		ExpiresAt:             pt.ExpiresAt,
	}
	if len(pt.Cases) > 0 {
		t.AdditionalInfo = &AdditionalInfo{Cases: pt.Cases}
	}
	return t, nil
}

// DecodeIncoming translates a ledger transfer resource into a plugin transfer
// record and its direction relative to the session's own account. The payload
// (Data) comes from the credit memo; the own debit memo becomes NoteToSelf on
// outgoing transfers. It returns ErrUnrelatedTransfer when the own account is
// referenced on neither side, more than once, or the counterparty side is
// ambiguous.
func (c *Codec) DecodeIncoming(t *Transfer) (*PluginTransfer, error) {
	var own *Debit
	var ownCredit *Credit
	ownCount := 0
	for i := range t.Debits {
		if t.Debits[i].Account == c.ownAccount {
			own = &t.Debits[i]
			ownCount++
		}
	}
	for i := range t.Credits {
		if t.Credits[i].Account == c.ownAccount {
			ownCredit = &t.Credits[i]
			ownCount++
		}
	}
	if ownCount != 1 {
		return nil, ErrUnrelatedTransfer
	}

	pt := &PluginTransfer{
		ID:                    strings.TrimPrefix(t.ID, c.TransferURI("")),
		Ledger:                c.addr.Prefix(),
		ExecutionCondition:    t.ExecutionCondition,
		CancellationCondition: t.CancellationCondition,
		ExpiresAt:             t.ExpiresAt,
	}

	if ownCredit != nil {
		// Own account is credited: incoming, counterparty is the debit side.
		if len(t.Debits) != 1 {
			return nil, ErrUnrelatedTransfer
		}
		pt.Direction = DirectionIncoming
		pt.Account = c.addr.ToLocal(t.Debits[0].Account)
		pt.Amount = ownCredit.Amount
		pt.Data = ownCredit.Memo
		return pt, nil
	}

	// Own account is debited: outgoing, counterparty is the credit side.
	// Anything other than a single credit leg is outside the supported
	// 1-debit/1-credit-per-party shape.
	if len(t.Credits) != 1 {
		return nil, ErrUnrelatedTransfer
	}
	pt.Direction = DirectionOutgoing
	pt.Account = c.addr.ToLocal(t.Credits[0].Account)
	pt.Amount = own.Amount
	pt.Data = t.Credits[0].Memo
	pt.NoteToSelf = own.Memo
	return pt, nil
}

// MatchedCredit returns the credit leg a decoded transfer was derived from:
// the own-account credit for incoming transfers, the counterparty credit for
// outgoing ones. Rejection state on other legs belongs to other parties.
func (c *Codec) MatchedCredit(t *Transfer, direction Direction) *Credit {
	for i := range t.Credits {
		own := t.Credits[i].Account == c.ownAccount
		if (direction == DirectionIncoming) == own {
			return &t.Credits[i]
		}
	}
	return nil
}

// DecodeRejectionMessage decodes the base64-encoded rejection message carried
// on a credit leg into plain text.
func DecodeRejectionMessage(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return "", fmt.Errorf("malformed rejection message: %w", err)
		}
	}
	return string(raw), nil
}
