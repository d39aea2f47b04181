// Package vault encrypts wallet secret phrases under a password-derived key.
//
// Every blob starts with a one-byte scheme tag so the key-derivation function
// and its parameters can be upgraded without breaking stored sessions:
//
//	0x01  age scrypt recipient (salt and work factor embedded by age)
//	0x02  Argon2id + XChaCha20-Poly1305 (params, salt and nonce in the header)
//
// Decrypt never reveals why it failed. Wrong password, truncation, unknown
// scheme and tampering all surface as errors.ErrAuthentication; the internal
// reason is available through FailureReason for debug logs only.
package vault

import (
	"errors"
	"fmt"
	"strings"

	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// Scheme identifies the encryption scheme of a blob.
type Scheme byte

// Supported schemes.
const (
	SchemeScrypt   Scheme = 0x01
	SchemeArgon2id Scheme = 0x02
)

// DefaultScheme is used when no scheme is configured.
const DefaultScheme = SchemeScrypt

// ErrUnknownScheme is returned by ParseScheme for unsupported names.
var ErrUnknownScheme = errors.New("unknown encryption scheme")

// String returns the configuration name of the scheme.
func (s Scheme) String() string {
	switch s {
	case SchemeScrypt:
		return "scrypt"
	case SchemeArgon2id:
		return "argon2id"
	default:
		return fmt.Sprintf("scheme(0x%02x)", byte(s))
	}
}

// ParseScheme maps a configuration name to a Scheme.
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "scrypt", "age":
		return SchemeScrypt, nil
	case "argon2id", "argon2":
		return SchemeArgon2id, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

// Vault encrypts and decrypts secret phrases. It performs no I/O.
type Vault struct {
	scheme  Scheme
	argon   ArgonParams
	memLock bool
}

// Option configures a Vault.
type Option func(*Vault)

// WithScheme selects the scheme used for new blobs.
func WithScheme(s Scheme) Option {
	return func(v *Vault) {
		v.scheme = s
	}
}

// WithArgonParams overrides the Argon2id cost parameters for new blobs.
func WithArgonParams(p ArgonParams) Option {
	return func(v *Vault) {
		v.argon = p
	}
}

// WithMemoryLock controls whether decrypted secrets are mlocked. On by default.
func WithMemoryLock(on bool) Option {
	return func(v *Vault) {
		v.memLock = on
	}
}

// New creates a Vault.
func New(opts ...Option) *Vault {
	v := &Vault{
		scheme:  DefaultScheme,
		argon:   DefaultArgonParams(),
		memLock: true,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Scheme returns the scheme used for new blobs.
func (v *Vault) Scheme() Scheme {
	return v.scheme
}

// Encrypt seals secret under password and returns a self-describing blob.
func (v *Vault) Encrypt(secret []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, walleterr.WithDetails(walleterr.ErrValidation, map[string]string{"field": "password"})
	}

	var (
		body []byte
		err  error
	)
	switch v.scheme {
	case SchemeScrypt:
		body, err = sealScrypt(secret, password)
	case SchemeArgon2id:
		body, err = sealArgon(secret, password, v.argon)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, v.scheme)
	}
	if err != nil {
		return nil, err
	}

	return append([]byte{byte(v.scheme)}, body...), nil
}

// Decrypt opens blob with password. The caller must Destroy the result.
func (v *Vault) Decrypt(blob []byte, password string) (*SecureBytes, error) {
	if len(blob) < 2 {
		return nil, authFailed("blob too short")
	}

	var (
		plaintext []byte
		err       error
	)
	switch Scheme(blob[0]) {
	case SchemeScrypt:
		plaintext, err = openScrypt(blob[1:], password)
	case SchemeArgon2id:
		plaintext, err = openArgon(blob, password)
	default:
		return nil, authFailed(fmt.Sprintf("unknown scheme tag 0x%02x", blob[0]))
	}
	if err != nil {
		return nil, authFailed(err.Error())
	}

	// Ensure plaintext is zeroed on all paths
	defer zero(plaintext)

	return secureCopy(plaintext, v.memLock)
}

// NeedsUpgrade reports whether blob was sealed with a scheme other than the
// vault's current one. Callers re-encrypt after a successful Decrypt.
func (v *Vault) NeedsUpgrade(blob []byte) bool {
	if len(blob) == 0 {
		return false
	}
	return Scheme(blob[0]) != v.scheme
}

// BlobScheme returns the scheme tag of blob.
func BlobScheme(blob []byte) (Scheme, bool) {
	if len(blob) == 0 {
		return 0, false
	}
	s := Scheme(blob[0])
	return s, s == SchemeScrypt || s == SchemeArgon2id
}

// authError is what Decrypt returns. Its message never varies.
type authError struct {
	reason string
}

func (e *authError) Error() string {
	return walleterr.ErrAuthentication.Error()
}

func (e *authError) Unwrap() error {
	return walleterr.ErrAuthentication
}

func authFailed(reason string) error {
	return &authError{reason: reason}
}

// FailureReason returns the internal cause of a Decrypt failure, or "".
func FailureReason(err error) string {
	var ae *authError
	if errors.As(err, &ae) {
		return ae.reason
	}
	return ""
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
