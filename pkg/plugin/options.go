package plugin

import (
	"go.uber.org/zap"

	"github.com/interledger-go/plugin-bells/pkg/bells/client"
)

// Option configures plugin settings using the functional options pattern.
type Option func(*settings)

type settings struct {
	logger     *zap.Logger
	ledger     client.Ledger
	newChannel ChannelFactory
}

// WithLogger sets a custom logger for the plugin.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithLedger overrides the remote ledger client, primarily for tests.
func WithLedger(l client.Ledger) Option {
	return func(s *settings) { s.ledger = l }
}

// WithChannelFactory overrides how notification channels are constructed,
// primarily for tests.
func WithChannelFactory(f ChannelFactory) Option {
	return func(s *settings) { s.newChannel = f }
}

func applyOptions(opts []Option) settings {
	s := settings{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}
