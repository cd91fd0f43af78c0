package plugin

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/interledger-go/plugin-bells/pkg/bells"
	"github.com/interledger-go/plugin-bells/pkg/bells/client"
	"github.com/interledger-go/plugin-bells/pkg/bells/ws"
)

// Manual mocks for the ledger client and notification channel.

type mockLedger struct {
	mu sync.Mutex

	GetAccountFunc       func(ctx context.Context, accountURI string) (*bells.Account, error)
	GetInfoFunc          func(ctx context.Context, ledgerURI string) (*bells.LedgerInfo, error)
	UpdateAccountFunc    func(ctx context.Context, accountURI string, account *bells.Account) error
	UpdateAccountAsFunc  func(ctx context.Context, accountURI string, account *bells.Account, username, password string) error
	SubmitTransferFunc   func(ctx context.Context, transfer *bells.Transfer) error
	SubmitFulfillFunc    func(ctx context.Context, fulfillmentURI, fulfillment string) error
	GetFulfillmentFunc   func(ctx context.Context, fulfillmentURI string) (string, error)
	SubmitRejectionFunc  func(ctx context.Context, rejectionURI, reason string) error
	NotifyCaseFunc       func(ctx context.Context, caseURI, fulfillmentURI string) error

	GetAccountCalls int
	GetInfoCalls    int
	Username        string
}

var _ client.Ledger = (*mockLedger)(nil)

func (m *mockLedger) GetAccount(ctx context.Context, accountURI string) (*bells.Account, error) {
	m.mu.Lock()
	m.GetAccountCalls++
	m.mu.Unlock()
	if m.GetAccountFunc != nil {
		return m.GetAccountFunc(ctx, accountURI)
	}
	return &bells.Account{Ledger: "http://red.example", Name: "mike"}, nil
}

func (m *mockLedger) GetInfo(ctx context.Context, ledgerURI string) (*bells.LedgerInfo, error) {
	m.mu.Lock()
	m.GetInfoCalls++
	m.mu.Unlock()
	if m.GetInfoFunc != nil {
		return m.GetInfoFunc(ctx, ledgerURI)
	}
	return &bells.LedgerInfo{Precision: 10, Scale: 2, CurrencyCode: "USD"}, nil
}

func (m *mockLedger) UpdateAccount(ctx context.Context, accountURI string, account *bells.Account) error {
	if m.UpdateAccountFunc != nil {
		return m.UpdateAccountFunc(ctx, accountURI, account)
	}
	return nil
}

func (m *mockLedger) UpdateAccountAs(ctx context.Context, accountURI string, account *bells.Account, username, password string) error {
	if m.UpdateAccountAsFunc != nil {
		return m.UpdateAccountAsFunc(ctx, accountURI, account, username, password)
	}
	return nil
}

func (m *mockLedger) SubmitTransfer(ctx context.Context, transfer *bells.Transfer) error {
	if m.SubmitTransferFunc != nil {
		return m.SubmitTransferFunc(ctx, transfer)
	}
	return nil
}

func (m *mockLedger) SubmitFulfillment(ctx context.Context, fulfillmentURI, fulfillment string) error {
	if m.SubmitFulfillFunc != nil {
		return m.SubmitFulfillFunc(ctx, fulfillmentURI, fulfillment)
	}
	return nil
}

func (m *mockLedger) GetFulfillment(ctx context.Context, fulfillmentURI string) (string, error) {
	if m.GetFulfillmentFunc != nil {
		return m.GetFulfillmentFunc(ctx, fulfillmentURI)
	}
	return "", nil
}

func (m *mockLedger) SubmitRejection(ctx context.Context, rejectionURI, reason string) error {
	if m.SubmitRejectionFunc != nil {
		return m.SubmitRejectionFunc(ctx, rejectionURI, reason)
	}
	return nil
}

func (m *mockLedger) NotifyCase(ctx context.Context, caseURI, fulfillmentURI string) error {
	if m.NotifyCaseFunc != nil {
		return m.NotifyCaseFunc(ctx, caseURI, fulfillmentURI)
	}
	return nil
}

func (m *mockLedger) SetUsername(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Username = username
}

// mockChannel feeds canned notifications and records acknowledgment replies.
type mockChannel struct {
	msgs      chan json.RawMessage
	replies   chan any
	closeOnce sync.Once
	StreamURL string
}

var _ ws.Channel = (*mockChannel)(nil)

func newMockChannel() *mockChannel {
	return &mockChannel{
		msgs:    make(chan json.RawMessage, 16),
		replies: make(chan any, 16),
	}
}

func (m *mockChannel) Connect(ctx context.Context) error { return nil }

func (m *mockChannel) Messages() <-chan json.RawMessage { return m.msgs }

func (m *mockChannel) Send(v any) error {
	m.replies <- v
	return nil
}

func (m *mockChannel) Close() error {
	m.closeOnce.Do(func() { close(m.msgs) })
	return nil
}

// push delivers a notification payload and returns once it is queued.
func (m *mockChannel) push(t testingT, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal notification: %v", err)
	}
	m.msgs <- raw
}

// testingT is the subset of *testing.T the mocks need.
type testingT interface {
	Fatalf(format string, args ...any)
}
