package service

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tickgate/tickgate/internal/exchange"
	"github.com/tickgate/tickgate/internal/model"
	"github.com/tickgate/tickgate/internal/pkg/crypto"
)

var (
	ErrCredentialsMissing = errors.New("connection has no stored credentials")
	ErrDecryptionFailed   = errors.New("credential decryption failed")
)

// CredentialResolver turns a connection's encrypted blob into
// plaintext API credentials for one tick. Plaintext never leaves the
// call chain and is never logged or persisted.
type CredentialResolver struct {
	enc *crypto.Encryptor
}

func NewCredentialResolver(enc *crypto.Encryptor) *CredentialResolver {
	return &CredentialResolver{enc: enc}
}

// Resolve decrypts and parses the connection's credential blob. All
// crypto and parse failures collapse into ErrDecryptionFailed so
// callers cannot distinguish (and leak) the failure mode.
func (r *CredentialResolver) Resolve(conn *model.ExchangeConnection) (exchange.Credentials, error) {
	if strings.TrimSpace(conn.EncryptedConfigB64) == "" {
		return exchange.Credentials{}, ErrCredentialsMissing
	}

	plaintext, err := r.enc.Decrypt(conn.EncryptedConfigB64)
	if err != nil {
		return exchange.Credentials{}, ErrDecryptionFailed
	}

	var payload struct {
		APIKey    string `json:"apiKey"`
		APISecret string `json:"apiSecret"`
	}
	if err := json.Unmarshal([]byte(plaintext), &payload); err != nil {
		return exchange.Credentials{}, ErrDecryptionFailed
	}
	if payload.APIKey == "" || payload.APISecret == "" {
		return exchange.Credentials{}, ErrDecryptionFailed
	}

	return exchange.Credentials{APIKey: payload.APIKey, APISecret: payload.APISecret}, nil
}

// EncryptCredentials is the write-side counterpart used when a
// connection is created or rotated.
func (r *CredentialResolver) EncryptCredentials(creds exchange.Credentials) (string, error) {
	raw, err := json.Marshal(map[string]string{
		"apiKey":    creds.APIKey,
		"apiSecret": creds.APISecret,
	})
	if err != nil {
		return "", err
	}
	return r.enc.Encrypt(string(raw))
}
