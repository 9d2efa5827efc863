package service

import (
	"errors"
	"testing"

	"github.com/tickgate/tickgate/internal/exchange"
	"github.com/tickgate/tickgate/internal/model"
	"github.com/tickgate/tickgate/internal/pkg/crypto"
)

func newTestResolver(t *testing.T) *CredentialResolver {
	t.Helper()
	enc, err := crypto.NewEncryptor(testKey)
	if err != nil {
		t.Fatalf("encryptor: %v", err)
	}
	return NewCredentialResolver(enc)
}

func TestResolveRoundtrip(t *testing.T) {
	r := newTestResolver(t)

	blob, err := r.EncryptCredentials(exchange.Credentials{APIKey: "k1", APISecret: "s1"})
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	creds, err := r.Resolve(&model.ExchangeConnection{EncryptedConfigB64: blob})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if creds.APIKey != "k1" || creds.APISecret != "s1" {
		t.Fatalf("creds = %+v", creds)
	}
}

func TestResolveMissing(t *testing.T) {
	r := newTestResolver(t)
	_, err := r.Resolve(&model.ExchangeConnection{EncryptedConfigB64: "  "})
	if !errors.Is(err, ErrCredentialsMissing) {
		t.Fatalf("err = %v, want ErrCredentialsMissing", err)
	}
}

func TestResolveFailureModesCollapse(t *testing.T) {
	r := newTestResolver(t)

	// Garbage ciphertext, wrong-key ciphertext and non-JSON plaintext
	// must all surface the same error.
	otherEnc, _ := crypto.NewEncryptor([]byte("ffffffffffffffffffffffffffffffff"))
	otherBlob, _ := otherEnc.Encrypt(`{"apiKey":"k","apiSecret":"s"}`)

	sameKeyEnc, _ := crypto.NewEncryptor(testKey)
	notJSON, _ := sameKeyEnc.Encrypt("plain text, not credentials")
	missingFields, _ := sameKeyEnc.Encrypt(`{"other":"thing"}`)

	for name, blob := range map[string]string{
		"not base64":     "!!!",
		"wrong key":      otherBlob,
		"not json":       notJSON,
		"missing fields": missingFields,
	} {
		_, err := r.Resolve(&model.ExchangeConnection{EncryptedConfigB64: blob})
		if !errors.Is(err, ErrDecryptionFailed) {
			t.Fatalf("%s: err = %v, want ErrDecryptionFailed", name, err)
		}
	}
}
