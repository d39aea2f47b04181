package vault

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	argonSaltSize = 16
	argonKeySize  = chacha20poly1305.KeySize
	// tag(1) time(1) memory(4) threads(1) salt nonce
	argonHeaderSize = 1 + 1 + 4 + 1 + argonSaltSize + chacha20poly1305.NonceSizeX

	// Upper bound on memory accepted from a blob header, in KiB (1 GiB).
	maxArgonMemory = 1 << 20
)

var (
	errArgonHeader = errors.New("argon2id header truncated")
	errArgonParams = errors.New("argon2id parameters out of range")
)

// ArgonParams are the Argon2id cost parameters stored in every v2 blob.
type ArgonParams struct {
	Time    uint8
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultArgonParams returns the RFC 9106 second recommended option.
func DefaultArgonParams() ArgonParams {
	return ArgonParams{Time: 3, Memory: 64 * 1024, Threads: 4}
}

func (p ArgonParams) valid() bool {
	return p.Time > 0 && p.Threads > 0 && p.Memory >= 8*uint32(p.Threads) && p.Memory <= maxArgonMemory
}

func sealArgon(plaintext []byte, password string, p ArgonParams) ([]byte, error) {
	if !p.valid() {
		return nil, errArgonParams
	}

	salt, err := RandomBytes(argonSaltSize)
	if err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	nonce, err := RandomBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	header := make([]byte, 0, argonHeaderSize)
	header = append(header, byte(SchemeArgon2id), p.Time)
	header = binary.BigEndian.AppendUint32(header, p.Memory)
	header = append(header, p.Threads)
	header = append(header, salt...)
	header = append(header, nonce...)

	key := argon2.IDKey([]byte(password), salt, uint32(p.Time), p.Memory, p.Threads, argonKeySize)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	// Encrypt prepends the scheme tag itself.
	sealed := aead.Seal(nil, nonce, plaintext, header)
	return append(header[1:], sealed...), nil
}

// openArgon takes the full blob including the scheme tag, which is part of
// the authenticated header.
func openArgon(blob []byte, password string) ([]byte, error) {
	if len(blob) < argonHeaderSize+chacha20poly1305.Overhead {
		return nil, errArgonHeader
	}

	header := blob[:argonHeaderSize]
	p := ArgonParams{
		Time:    header[1],
		Memory:  binary.BigEndian.Uint32(header[2:6]),
		Threads: header[6],
	}
	if !p.valid() {
		return nil, errArgonParams
	}
	salt := header[7 : 7+argonSaltSize]
	nonce := header[7+argonSaltSize:]

	key := argon2.IDKey([]byte(password), salt, uint32(p.Time), p.Memory, p.Threads, argonKeySize)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, blob[argonHeaderSize:], header)
	if err != nil {
		return nil, fmt.Errorf("opening ciphertext: %w", err)
	}
	return plaintext, nil
}
