// Package bells contains the wire types of the Five Bells Ledger HTTP and
// WebSocket APIs together with the translation layer between the ledger's
// transfer resources and the plugin's local transfer records.
package bells

// Transfer states reported by the ledger.
const (
	StatePrepared = "prepared"
	StateExecuted = "executed"
	StateRejected = "rejected"
)

// Direction of a transfer relative to the session's own account.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Transfer is the ledger's transfer resource. All URIs are absolute and all
// amounts are decimal strings forwarded verbatim.
type Transfer struct {
	ID                    string          `json:"id"`
	Ledger                string          `json:"ledger"`
	Debits                []Debit         `json:"debits"`
	Credits               []Credit        `json:"credits"`
	State                 string          `json:"state,omitempty"`
	ExecutionCondition    string          `json:"execution_condition,omitempty"`
	CancellationCondition string          `json:"cancellation_condition,omitempty"`
	ExpiresAt             string          `json:"expires_at,omitempty"`
	AdditionalInfo        *AdditionalInfo `json:"additional_info,omitempty"`
}

// Debit is a single funding leg of a ledger transfer.
type Debit struct {
	Account    string         `json:"account"`
	Amount     string         `json:"amount"`
	Authorized bool           `json:"authorized,omitempty"`
	Memo       map[string]any `json:"memo,omitempty"`
}

// Credit is a single receiving leg of a ledger transfer. RejectionMessage is
// base64-encoded on the wire.
type Credit struct {
	Account          string         `json:"account"`
	Amount           string         `json:"amount"`
	Memo             map[string]any `json:"memo,omitempty"`
	Rejected         bool           `json:"rejected,omitempty"`
	RejectionMessage string         `json:"rejection_message,omitempty"`
}

// AdditionalInfo carries optional transfer metadata, currently only the
// notary case URIs registered for conditional transfers.
type AdditionalInfo struct {
	Cases []string `json:"cases,omitempty"`
}

// Notification is the envelope pushed by the ledger over the WebSocket
// transfer stream.
type Notification struct {
	Resource         Transfer          `json:"resource"`
	RelatedResources *RelatedResources `json:"related_resources,omitempty"`
}

// RelatedResources carries fulfillments attached to a transfer notification.
type RelatedResources struct {
	ExecutionConditionFulfillment    string `json:"execution_condition_fulfillment,omitempty"`
	CancellationConditionFulfillment string `json:"cancellation_condition_fulfillment,omitempty"`
}

// Account is the ledger's account resource.
type Account struct {
	Ledger    string `json:"ledger,omitempty"`
	Name      string `json:"name,omitempty"`
	Connector string `json:"connector,omitempty"`
	Balance   string `json:"balance,omitempty"`
}

// LedgerInfo is the ledger metadata resource served at the ledger base URI.
type LedgerInfo struct {
	Precision      int      `json:"precision"`
	Scale          int      `json:"scale"`
	CurrencyCode   string   `json:"currency_code,omitempty"`
	CurrencySymbol string   `json:"currency_symbol,omitempty"`
	Connectors     []string `json:"connectors,omitempty"`
}

// PluginTransfer is the single-account, single-amount transfer record the
// plugin exposes to callers. ID is the bare UUID and Account is the
// counterparty's local address.
type PluginTransfer struct {
	ID                    string         `json:"id"`
	Direction             Direction      `json:"direction,omitempty"`
	Account               string         `json:"account"`
	Ledger                string         `json:"ledger,omitempty"`
	Amount                string         `json:"amount"`
	NoteToSelf            map[string]any `json:"noteToSelf,omitempty"`
	Data                  map[string]any `json:"data,omitempty"`
	ExecutionCondition    string         `json:"executionCondition,omitempty"`
	CancellationCondition string         `json:"cancellationCondition,omitempty"`
	ExpiresAt             string         `json:"expiresAt,omitempty"`
	Cases                 []string       `json:"cases,omitempty"`
}
