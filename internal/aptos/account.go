package aptos

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	ed25519Scheme      byte = 0x00
	objectSeedScheme   byte = 0xFE
	privateKeyPrefix        = "ed25519-priv-"
	addressLengthBytes      = 32
)

// Signer signs raw transaction signing messages.
type Signer interface {
	Address() string
	PublicKeyHex() string
	Sign(message []byte) []byte
}

// Ed25519Account is a single-key account held in memory.
type Ed25519Account struct {
	privateKey ed25519.PrivateKey
	address    string
}

// NewEd25519Account parses a hex private key. Accepted forms: 32-byte seed or
// 64-byte expanded key, with optional "0x" and "ed25519-priv-" prefixes.
func NewEd25519Account(privateKeyHex string) (*Ed25519Account, error) {
	raw := strings.TrimSpace(privateKeyHex)
	raw = strings.TrimPrefix(raw, privateKeyPrefix)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")

	keyBytes, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}

	var privateKey ed25519.PrivateKey
	switch len(keyBytes) {
	case ed25519.SeedSize:
		privateKey = ed25519.NewKeyFromSeed(keyBytes)
	case ed25519.PrivateKeySize:
		privateKey = ed25519.PrivateKey(keyBytes)
	default:
		return nil, fmt.Errorf("expected %d-byte private key, got %d bytes", ed25519.SeedSize, len(keyBytes))
	}

	publicKey := privateKey.Public().(ed25519.PublicKey)
	return &Ed25519Account{
		privateKey: privateKey,
		address:    AuthenticationKey(publicKey),
	}, nil
}

// Address returns the account address derived from the public key.
func (a *Ed25519Account) Address() string {
	return a.address
}

// PublicKeyHex returns the 0x-prefixed public key.
func (a *Ed25519Account) PublicKeyHex() string {
	return "0x" + hex.EncodeToString(a.privateKey.Public().(ed25519.PublicKey))
}

// Sign signs message with the account key.
func (a *Ed25519Account) Sign(message []byte) []byte {
	return ed25519.Sign(a.privateKey, message)
}

// AuthenticationKey derives the single-key ed25519 authentication key,
// which is also the address of a freshly created account.
func AuthenticationKey(publicKey ed25519.PublicKey) string {
	digest := sha3.Sum256(append(append([]byte{}, publicKey...), ed25519Scheme))
	return "0x" + hex.EncodeToString(digest[:])
}

// DeriveObjectAddress computes the address of a named object created by
// creator with the given seed, e.g. the contract vault.
func DeriveObjectAddress(creator string, seed []byte) (string, error) {
	creatorBytes, err := AddressBytes(creator)
	if err != nil {
		return "", err
	}

	buf := make([]byte, 0, len(creatorBytes)+len(seed)+1)
	buf = append(buf, creatorBytes...)
	buf = append(buf, seed...)
	buf = append(buf, objectSeedScheme)

	digest := sha3.Sum256(buf)
	return "0x" + hex.EncodeToString(digest[:]), nil
}

// AddressBytes parses a hex address, left-padding short forms such as "0x1".
func AddressBytes(address string) ([]byte, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(address), "0x"), "0X")
	if raw == "" || len(raw) > addressLengthBytes*2 {
		return nil, fmt.Errorf("invalid address: %q", address)
	}
	if len(raw)%2 == 1 || len(raw) < addressLengthBytes*2 {
		raw = strings.Repeat("0", addressLengthBytes*2-len(raw)) + raw
	}

	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	return b, nil
}

// NormalizeAddress returns the long, lower-case 0x form of address.
func NormalizeAddress(address string) (string, error) {
	b, err := AddressBytes(address)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}
