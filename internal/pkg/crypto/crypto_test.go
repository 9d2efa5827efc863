package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"testing"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	enc, err := NewEncryptor(testKey())
	if err != nil {
		t.Fatalf("NewEncryptor failed: %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty", ""},
		{"short", "hello"},
		{"creds", `{"apiKey":"abc123","apiSecret":"XYZ789"}`},
		{"long", "a very long secret value that exceeds a single AES block by a comfortable margin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}
			decrypted, err := enc.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt failed: %v", err)
			}
			if decrypted != tt.plaintext {
				t.Fatalf("decrypted = %q, want %q", decrypted, tt.plaintext)
			}
		})
	}
}

func TestEncryptProducesDifferentCiphertexts(t *testing.T) {
	enc, _ := NewEncryptor(testKey())
	c1, _ := enc.Encrypt("same-api-key")
	c2, _ := enc.Encrypt("same-api-key")
	if c1 == c2 {
		t.Fatal("expected different ciphertexts for same plaintext")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	enc, _ := NewEncryptor(testKey())
	ciphertext, _ := enc.Encrypt("payload")

	other := make([]byte, KeySize)
	for i := range other {
		other[i] = byte(255 - i)
	}
	enc2, _ := NewEncryptor(other)
	if _, err := enc2.Decrypt(ciphertext); err != ErrDecryptionFailed {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestDecryptInvalidInput(t *testing.T) {
	enc, _ := NewEncryptor(testKey())
	for _, raw := range []string{"", "not-base64!!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		if _, err := enc.Decrypt(raw); err == nil {
			t.Fatalf("expected error for input %q", raw)
		}
	}
}

func TestNewEncryptorRejectsShortKey(t *testing.T) {
	if _, err := NewEncryptor([]byte("short")); err != ErrInvalidKey {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestKeyFromString(t *testing.T) {
	key := testKey()

	got, err := KeyFromString(hex.EncodeToString(key))
	if err != nil || len(got) != KeySize {
		t.Fatalf("hex key rejected: %v", err)
	}

	got, err = KeyFromString(base64.StdEncoding.EncodeToString(key))
	if err != nil || len(got) != KeySize {
		t.Fatalf("base64 key rejected: %v", err)
	}

	if _, err := KeyFromString("tooshort"); err != ErrInvalidKey {
		t.Fatalf("expected ErrInvalidKey for short key, got %v", err)
	}
}
