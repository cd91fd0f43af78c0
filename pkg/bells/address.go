package bells

import (
	"fmt"
	"strings"

	plugerrors "github.com/interledger-go/plugin-bells/pkg/plugin/errors"
)

// AddressTranslator maps between ledger account URIs and plugin-local
// addresses (prefix + account name). It is pure and safe for concurrent use.
type AddressTranslator struct {
	prefix      string
	accountBase string // "{ledger}/accounts/"
}

// NewAddressTranslator builds a translator for the given local prefix and
// ledger base URI.
func NewAddressTranslator(prefix, ledgerURI string) *AddressTranslator {
	return &AddressTranslator{
		prefix:      prefix,
		accountBase: strings.TrimSuffix(ledgerURI, "/") + "/accounts/",
	}
}

// Prefix returns the configured local address prefix.
func (t *AddressTranslator) Prefix() string { return t.prefix }

// ToLocal converts a ledger account URI into a local address by stripping the
// ledger's account path and prepending the prefix.
func (t *AddressTranslator) ToLocal(accountURI string) string {
	return t.prefix + strings.TrimPrefix(accountURI, t.accountBase)
}

// ToRemote converts a local address into the ledger account URI. The address
// must start with the configured prefix.
func (t *AddressTranslator) ToRemote(localAddress string) (string, error) {
	if !strings.HasPrefix(localAddress, t.prefix) {
		return "", plugerrors.InvalidFieldsError(nil, fmt.Sprintf(
			"Destination address %q must start with ledger prefix %q", localAddress, t.prefix))
	}
	return t.accountBase + strings.TrimPrefix(localAddress, t.prefix), nil
}
