package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync/atomic"

	"filippo.io/age"
)

// defaultScryptWorkFactor matches age's own default (log2 of N).
const defaultScryptWorkFactor = 18

// scryptWorkFactor is lowered in tests via SetScryptWorkFactor.
//
//nolint:gochecknoglobals // Package-level cost knob, tests lower it in TestMain
var scryptWorkFactor atomic.Int32

func init() { //nolint:gochecknoinits // Default must be set before first use
	scryptWorkFactor.Store(defaultScryptWorkFactor)
}

// SetScryptWorkFactor sets the scrypt work factor (log2 N) for new blobs.
// Values outside 1..30 are ignored.
func SetScryptWorkFactor(logN int) {
	if logN < 1 || logN > 30 {
		return
	}
	scryptWorkFactor.Store(int32(logN)) //nolint:gosec // bounded above
}

// sealScrypt encrypts plaintext using age with a password-based recipient.
func sealScrypt(plaintext []byte, password string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(int(scryptWorkFactor.Load()))

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}

	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}

	return buf.Bytes(), nil
}

// openScrypt decrypts ciphertext using age with a password-based identity.
func openScrypt(ciphertext []byte, password string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("initializing decryption: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		zero(plaintext)
		return nil, fmt.Errorf("reading decrypted data: %w", err)
	}

	return plaintext, nil
}
