// Package plugin implements the ledger plugin contract on top of the Five
// Bells Ledger HTTP+WebSocket API.
//
// A Plugin owns one session against one ledger account. Connect resolves the
// account, fetches ledger metadata and opens the notification subscription;
// incoming notifications are translated into exactly one lifecycle event
// each, delivered synchronously to subscribed handlers.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/interledger-go/plugin-bells/pkg/bells"
	"github.com/interledger-go/plugin-bells/pkg/bells/client"
	"github.com/interledger-go/plugin-bells/pkg/bells/ws"
	plugerrors "github.com/interledger-go/plugin-bells/pkg/plugin/errors"
)

// ErrLedgerResolution is returned by Connect when the account resource is
// missing or does not carry a ledger URI and account name.
var ErrLedgerResolution = errors.New("Failed to resolve ledger URI from account URI")

// Config holds the per-session plugin settings.
type Config struct {
	// Prefix is the local address prefix, e.g. "example.red.".
	Prefix string
	// Account is the absolute URI of the session's own ledger account.
	Account string
	// Username overrides the account name reported by the ledger. Optional.
	Username string
	// Password for HTTP basic auth against the ledger.
	Password string
	// Connector, when set, is written to the account resource at connect
	// time if it differs from what the ledger reports.
	Connector string
	// Autofund enables the debug-only auto-funding helper.
	Autofund *AutofundConfig
}

// AutofundConfig configures the debug auto-funding helper: at connect time
// the account is (re)created with admin credentials and a large balance.
// Test convenience only.
type AutofundConfig struct {
	Connector     string
	AdminUsername string
	AdminPassword string
	// Balance defaults to "1500000" when empty.
	Balance string
}

const defaultAutofundBalance = "1500000"

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

// session holds the state established by a successful Connect.
type session struct {
	accountURI   string
	ledgerURI    string
	username     string
	info         *bells.LedgerInfo
	codec        *bells.Codec
	channel      ws.Channel
	dispatchDone chan struct{}
}

// ChannelFactory builds a notification channel for a stream URL. Swappable
// for tests.
type ChannelFactory func(streamURL string) ws.Channel

// Plugin is the ledger plugin facade.
type Plugin struct {
	cfg        Config
	ledger     client.Ledger
	newChannel ChannelFactory
	logger     *zap.Logger
	events     *emitter

	mu      sync.Mutex
	state   connState
	session *session
}

// New creates a plugin for the given configuration.
func New(cfg Config, opts ...Option) *Plugin {
	s := applyOptions(opts)

	ledger := s.ledger
	if ledger == nil {
		ledger = client.New(cfg.Username, cfg.Password, client.WithLogger(s.logger))
	}
	newChannel := s.newChannel
	if newChannel == nil {
		logger := s.logger
		newChannel = func(streamURL string) ws.Channel {
			return ws.NewWebsocketChannel(ws.Config{URL: streamURL}, logger)
		}
	}

	return &Plugin{
		cfg:        cfg,
		ledger:     ledger,
		newChannel: newChannel,
		logger:     s.logger,
		events:     newEmitter(),
	}
}

// Subscribe registers a handler for a lifecycle event. The returned function
// unsubscribes it. Handlers run synchronously with notification dispatch and
// must not block indefinitely.
func (p *Plugin) Subscribe(kind EventKind, fn Handler) func() {
	return p.events.subscribe(kind, fn)
}

// Connect establishes the session. Calling it while connecting or connected
// is a no-op that issues no network calls.
func (p *Plugin) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.state != stateDisconnected {
		p.mu.Unlock()
		return nil
	}
	p.state = stateConnecting
	p.mu.Unlock()

	sess, err := p.establish(ctx)
	if err != nil {
		p.mu.Lock()
		p.state = stateDisconnected
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.state = stateConnected
	p.session = sess
	p.mu.Unlock()

	p.logger.Info("Plugin connected",
		zap.String("ledger", sess.ledgerURI),
		zap.String("username", sess.username),
		zap.String("prefix", p.cfg.Prefix),
	)
	return nil
}

func (p *Plugin) establish(ctx context.Context) (*session, error) {
	account, err := p.ledger.GetAccount(ctx, p.cfg.Account)
	if err != nil || account.Ledger == "" || account.Name == "" {
		// A 404 and a malformed 200 are the same failure: the account URI
		// did not resolve to a ledger. Not retried.
		return nil, ErrLedgerResolution
	}

	username := p.cfg.Username
	if username == "" {
		username = account.Name
	}
	p.ledger.SetUsername(username)

	info, err := p.ledger.GetInfo(ctx, account.Ledger)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger metadata: %w", err)
	}

	if p.cfg.Connector != "" && account.Connector != p.cfg.Connector {
		update := &bells.Account{Name: account.Name, Connector: p.cfg.Connector}
		if err := p.ledger.UpdateAccount(ctx, p.cfg.Account, update); err != nil {
			return nil, err
		}
	}

	if p.cfg.Autofund != nil {
		if err := p.autofund(ctx, username); err != nil {
			return nil, err
		}
	}

	streamURL, err := transferStreamURL(account.Ledger, username)
	if err != nil {
		return nil, err
	}
	channel := p.newChannel(streamURL)
	if err := channel.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to open notification channel: %w", err)
	}

	addr := bells.NewAddressTranslator(p.cfg.Prefix, account.Ledger)
	sess := &session{
		accountURI:   p.cfg.Account,
		ledgerURI:    account.Ledger,
		username:     username,
		info:         info,
		codec:        bells.NewCodec(p.cfg.Account, account.Ledger, addr),
		channel:      channel,
		dispatchDone: make(chan struct{}),
	}
	go p.dispatchLoop(sess)
	return sess, nil
}

// autofund creates the session account with admin credentials and a large
// starting balance. Debug convenience, never used in production.
func (p *Plugin) autofund(ctx context.Context, username string) error {
	balance := p.cfg.Autofund.Balance
	if balance == "" {
		balance = defaultAutofundBalance
	}
	account := &bells.Account{
		Name:      username,
		Balance:   balance,
		Connector: p.cfg.Autofund.Connector,
	}
	err := p.ledger.UpdateAccountAs(ctx, p.cfg.Account,
		account, p.cfg.Autofund.AdminUsername, p.cfg.Autofund.AdminPassword)
	if err != nil {
		return fmt.Errorf("autofund failed: %w", err)
	}
	p.logger.Debug("Autofunded account",
		zap.String("account", p.cfg.Account),
		zap.String("balance", balance),
	)
	return nil
}

// Disconnect closes the channel and resets the session. Idempotent.
func (p *Plugin) Disconnect() error {
	p.mu.Lock()
	if p.state == stateDisconnected {
		p.mu.Unlock()
		return nil
	}
	sess := p.session
	p.session = nil
	p.state = stateDisconnected
	p.mu.Unlock()

	if sess != nil {
		_ = sess.channel.Close()
		<-sess.dispatchDone
	}
	p.logger.Info("Plugin disconnected")
	return nil
}

// IsConnected reports whether a session is established.
func (p *Plugin) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == stateConnected
}

// currentSession returns the active session, or an error naming op when
// disconnected.
func (p *Plugin) currentSession(op string) (*session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != stateConnected || p.session == nil {
		return nil, fmt.Errorf("Must be connected before %s can be called", op)
	}
	return p.session, nil
}

// GetAccount returns the resolved account URI.
func (p *Plugin) GetAccount() (string, error) {
	sess, err := p.currentSession("getAccount")
	if err != nil {
		return "", err
	}
	return sess.accountURI, nil
}

// GetPrefix returns the configured local address prefix.
func (p *Plugin) GetPrefix() (string, error) {
	return p.cfg.Prefix, nil
}

// GetInfo returns the ledger metadata captured at connect time.
func (p *Plugin) GetInfo() (*bells.LedgerInfo, error) {
	sess, err := p.currentSession("getInfo")
	if err != nil {
		return nil, err
	}
	return sess.info, nil
}

// GetBalance fetches the account's current balance as a decimal string.
func (p *Plugin) GetBalance(ctx context.Context) (string, error) {
	sess, err := p.currentSession("getBalance")
	if err != nil {
		return "", err
	}
	account, err := p.ledger.GetAccount(ctx, sess.accountURI)
	if err != nil {
		return "", err
	}
	if account.Balance == "" {
		return "", plugerrors.ExternalError(nil, "ledger returned no balance")
	}
	return account.Balance, nil
}

// transferStreamURL derives the WebSocket transfer stream URL for an account
// from the ledger base URI.
func transferStreamURL(ledgerURI, username string) (string, error) {
	parsed, err := url.Parse(ledgerURI)
	if err != nil {
		return "", fmt.Errorf("invalid ledger URI %q: %w", ledgerURI, err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/accounts/" + username + "/transfers"
	return parsed.String(), nil
}
