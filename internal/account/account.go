// Package account derives Algorand accounts from secret phrases and
// validates the user supplied inputs around them: addresses, phrases
// and wallet passwords.
package account

import (
	"crypto/ed25519"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/types"

	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// Generated is a freshly created account. The phrase must be shown to the
// user once and then only kept encrypted.
type Generated struct {
	Address  string
	Mnemonic string
}

// Generate creates a new random account.
func Generate() (*Generated, error) {
	acct := crypto.GenerateAccount()
	defer zero(acct.PrivateKey)

	phrase, err := mnemonic.FromPrivateKey(acct.PrivateKey)
	if err != nil {
		return nil, walleterr.Wrap(err, "encoding secret phrase")
	}
	return &Generated{Address: acct.Address.String(), Mnemonic: phrase}, nil
}

// Key is a signing key derived from a secret phrase. Call Destroy when done.
type Key struct {
	Address types.Address
	private ed25519.PrivateKey
}

// FromMnemonic derives the signing key for phrase. The phrase is normalized
// first; invalid phrases return ErrInvalidMnemonic with typo hints.
func FromMnemonic(phrase string) (*Key, error) {
	normalized, err := ValidateMnemonic(phrase)
	if err != nil {
		return nil, err
	}
	sk, err := mnemonic.ToPrivateKey(normalized)
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrInvalidMnemonic, err)
	}
	acct, err := crypto.AccountFromPrivateKey(sk)
	if err != nil {
		zero(sk)
		return nil, walleterr.WithCause(walleterr.ErrInvalidMnemonic, err)
	}
	return &Key{Address: acct.Address, private: sk}, nil
}

// AddressFromMnemonic returns only the address for phrase.
func AddressFromMnemonic(phrase string) (string, error) {
	k, err := FromMnemonic(phrase)
	if err != nil {
		return "", err
	}
	defer k.Destroy()
	return k.Address.String(), nil
}

// PrivateKey returns the key for signing. It is zeroed by Destroy.
func (k *Key) PrivateKey() ed25519.PrivateKey {
	return k.private
}

// Destroy zeroes the private key.
func (k *Key) Destroy() {
	if k == nil {
		return
	}
	zero(k.private)
	k.private = nil
}

// ValidateAddress parses an Algorand address, rejecting bad checksums.
func ValidateAddress(s string) (types.Address, error) {
	s = strings.TrimSpace(s)
	addr, err := types.DecodeAddress(s)
	if err != nil {
		return types.Address{}, walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{"address": s})
	}
	return addr, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
