// Package client implements the REST client for the Five Bells Ledger API.
//
// It issues the fixed set of calls the plugin needs (account resolution,
// ledger metadata, transfer submission, fulfillment handling, rejection,
// notary case registration) and classifies every non-2xx response through
// the plugin error taxonomy. The raw HTTP status codes never reach callers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/interledger-go/plugin-bells/internal/metrics"
	"github.com/interledger-go/plugin-bells/pkg/bells"
)

// Ledger defines the remote ledger operations used by the plugin.
type Ledger interface {
	// GetAccount fetches an account resource.
	GetAccount(ctx context.Context, accountURI string) (*bells.Account, error)

	// GetInfo fetches the ledger metadata resource at the ledger base URI.
	GetInfo(ctx context.Context, ledgerURI string) (*bells.LedgerInfo, error)

	// UpdateAccount replaces an account resource using the session credentials.
	UpdateAccount(ctx context.Context, accountURI string, account *bells.Account) error

	// UpdateAccountAs replaces an account resource using explicit credentials.
	// Used by the debug auto-funding helper, which acts as the ledger admin.
	UpdateAccountAs(ctx context.Context, accountURI string, account *bells.Account, username, password string) error

	// SubmitTransfer PUTs a transfer resource to its URI.
	SubmitTransfer(ctx context.Context, transfer *bells.Transfer) error

	// SubmitFulfillment PUTs a raw fulfillment string to a fulfillment URI.
	SubmitFulfillment(ctx context.Context, fulfillmentURI, fulfillment string) error

	// GetFulfillment fetches the raw fulfillment string for a transfer.
	GetFulfillment(ctx context.Context, fulfillmentURI string) (string, error)

	// SubmitRejection PUTs a plain-text rejection reason to a rejection URI.
	SubmitRejection(ctx context.Context, rejectionURI, reason string) error

	// NotifyCase registers a fulfillment target with a notary case.
	NotifyCase(ctx context.Context, caseURI, fulfillmentURI string) error

	// SetUsername installs the effective username resolved at connect time.
	SetUsername(username string)
}

// Client is the HTTP implementation of the Ledger interface.
type Client struct {
	http   *http.Client
	logger *zap.Logger

	mu       sync.RWMutex
	username string
	password string
}

var _ Ledger = (*Client)(nil)

// New creates a ledger client. The username may be empty; it is resolved at
// connect time from the account resource and installed via SetUsername.
func New(username, password string, opts ...Option) *Client {
	s := applyOptions(opts)
	return &Client{
		http:     s.httpClient,
		logger:   s.logger,
		username: username,
		password: password,
	}
}

func (c *Client) SetUsername(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
}

func (c *Client) credentials() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username, c.password
}

// do issues a request and returns status and body. Basic auth is applied
// whenever credentials are known; overrideUser forces explicit credentials.
func (c *Client) do(ctx context.Context, method, uri, contentType string, body []byte, overrideUser, overridePass string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build %s %s: %w", method, uri, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	user, pass := c.credentials()
	if overrideUser != "" {
		user, pass = overrideUser, overridePass
	}
	if user != "" {
		req.SetBasicAuth(user, pass)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.LedgerRequests.WithLabelValues(method, "transport_error").Inc()
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.LedgerRequests.WithLabelValues(method, "transport_error").Inc()
		return 0, nil, err
	}
	metrics.LedgerRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	c.logger.Debug("Ledger request completed",
		zap.String("method", method),
		zap.String("uri", uri),
		zap.Int("status", resp.StatusCode),
	)
	return resp.StatusCode, respBody, nil
}

func (c *Client) GetAccount(ctx context.Context, accountURI string) (*bells.Account, error) {
	status, body, err := c.do(ctx, http.MethodGet, accountURI, "", nil, "", "")
	if err != nil {
		return nil, MapTransportError(err)
	}
	if status < 200 || status >= 300 {
		return nil, MapRemoteError(ContextTransfer, status, body)
	}
	var account bells.Account
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("malformed account resource: %w", err)
	}
	return &account, nil
}

func (c *Client) GetInfo(ctx context.Context, ledgerURI string) (*bells.LedgerInfo, error) {
	status, body, err := c.do(ctx, http.MethodGet, ledgerURI, "", nil, "", "")
	if err != nil {
		return nil, MapTransportError(err)
	}
	if status < 200 || status >= 300 {
		return nil, MapRemoteError(ContextTransfer, status, body)
	}
	var info bells.LedgerInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("malformed ledger metadata: %w", err)
	}
	return &info, nil
}

func (c *Client) UpdateAccount(ctx context.Context, accountURI string, account *bells.Account) error {
	return c.putAccount(ctx, accountURI, account, "", "")
}

func (c *Client) UpdateAccountAs(ctx context.Context, accountURI string, account *bells.Account, username, password string) error {
	return c.putAccount(ctx, accountURI, account, username, password)
}

func (c *Client) putAccount(ctx context.Context, accountURI string, account *bells.Account, username, password string) error {
	body, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}
	status, respBody, err := c.do(ctx, http.MethodPut, accountURI, "application/json", body, username, password)
	if err != nil {
		return MapTransportError(err)
	}
	if status < 200 || status >= 300 {
		return MapRemoteError(ContextTransfer, status, respBody)
	}
	return nil
}

func (c *Client) SubmitTransfer(ctx context.Context, transfer *bells.Transfer) error {
	body, err := json.Marshal(transfer)
	if err != nil {
		return fmt.Errorf("failed to encode transfer: %w", err)
	}
	status, respBody, err := c.do(ctx, http.MethodPut, transfer.ID, "application/json", body, "", "")
	if err != nil {
		return MapTransportError(err)
	}
	if status < 200 || status >= 300 {
		return MapRemoteError(ContextTransfer, status, respBody)
	}
	return nil
}

func (c *Client) SubmitFulfillment(ctx context.Context, fulfillmentURI, fulfillment string) error {
	status, respBody, err := c.do(ctx, http.MethodPut, fulfillmentURI, "text/plain", []byte(fulfillment), "", "")
	if err != nil {
		return MapTransportError(err)
	}
	if status < 200 || status >= 300 {
		return MapRemoteError(ContextFulfillment, status, respBody)
	}
	return nil
}

func (c *Client) GetFulfillment(ctx context.Context, fulfillmentURI string) (string, error) {
	status, body, err := c.do(ctx, http.MethodGet, fulfillmentURI, "", nil, "", "")
	if err != nil {
		return "", MapTransportError(err)
	}
	if status < 200 || status >= 300 {
		return "", MapRemoteError(ContextFulfillment, status, body)
	}
	return string(body), nil
}

func (c *Client) SubmitRejection(ctx context.Context, rejectionURI, reason string) error {
	status, respBody, err := c.do(ctx, http.MethodPut, rejectionURI, "text/plain", []byte(reason), "", "")
	if err != nil {
		return MapTransportError(err)
	}
	if status < 200 || status >= 300 {
		return MapRemoteError(ContextRejection, status, respBody)
	}
	return nil
}

func (c *Client) NotifyCase(ctx context.Context, caseURI, fulfillmentURI string) error {
	body, err := json.Marshal([]string{fulfillmentURI})
	if err != nil {
		return fmt.Errorf("failed to encode case target: %w", err)
	}
	status, _, err := c.do(ctx, http.MethodPost, caseURI+"/targets", "application/json", body, "", "")
	if err != nil {
		return MapTransportError(err)
	}
	// Case registration is a side effect of send, not the transfer outcome,
	// so it bypasses the remote error taxonomy.
	if status < 200 || status >= 300 {
		return fmt.Errorf("Unexpected status code: %d", status)
	}
	return nil
}
