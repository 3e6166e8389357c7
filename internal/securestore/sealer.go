package securestore

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/maheshrc27/crosspost/pkg/utils"
)

var ErrInvalidKey = errors.New("secret key must be 16, 24 or 32 bytes")

// Sealer protects values before they reach a Backend. Protected reports
// whether the sealing offers real confidentiality.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
	Protected() bool
}

// AESSealer encrypts values with AES-GCM under a server-held key.
type AESSealer struct {
	key []byte
}

func NewAESSealer(key []byte) (*AESSealer, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, ErrInvalidKey
	}
	return &AESSealer{key: append([]byte(nil), key...)}, nil
}

func (s *AESSealer) Seal(plaintext []byte) ([]byte, error) {
	sealed, err := utils.Encrypt(s.key, plaintext)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return sealed, nil
}

func (s *AESSealer) Open(sealed []byte) ([]byte, error) {
	plaintext, err := utils.Decrypt(s.key, sealed)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return plaintext, nil
}

func (s *AESSealer) Protected() bool { return true }

// ObfuscatingSealer only base64-encodes values. It keeps tokens out of casual
// view but is NOT encryption: anyone with backend access can read them. It is
// the fallback when no secret key is configured.
type ObfuscatingSealer struct{}

func (ObfuscatingSealer) Seal(plaintext []byte) ([]byte, error) {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(plaintext)))
	base64.StdEncoding.Encode(out, plaintext)
	return out, nil
}

func (ObfuscatingSealer) Open(sealed []byte) ([]byte, error) {
	out := make([]byte, base64.StdEncoding.DecodedLen(len(sealed)))
	n, err := base64.StdEncoding.Decode(out, sealed)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return out[:n], nil
}

func (ObfuscatingSealer) Protected() bool { return false }

// NewSealer picks AES-GCM when a key is configured and falls back to
// obfuscation otherwise.
func NewSealer(secretKey string) (Sealer, error) {
	if secretKey == "" {
		return ObfuscatingSealer{}, nil
	}
	return NewAESSealer([]byte(secretKey))
}
