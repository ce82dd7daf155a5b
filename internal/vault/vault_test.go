package vault

import (
	"errors"
	"testing"

	"github.com/dbgateway/gateway/internal/gwerrors"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext string
		secret    string
	}{
		{"simple password", "hunter2", "master-key"},
		{"empty plaintext", "", "master-key"},
		{"unicode plaintext", "pässwörd-日本語", "master-key"},
		{"long plaintext", string(make([]byte, 4096)), "master-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := Encrypt(tt.plaintext, tt.secret)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			got, err := Decrypt(ciphertext, tt.secret)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if got != tt.plaintext {
				t.Errorf("round trip mismatch: got %q, want %q", got, tt.plaintext)
			}
		})
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	a, err := Encrypt("hunter2", "key")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encrypt("hunter2", "key")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical ciphertext (salt/nonce not randomized)")
	}
}

func TestDecryptWithWrongSecretFailsAuth(t *testing.T) {
	ciphertext, err := Encrypt("hunter2", "correct-key")
	if err != nil {
		t.Fatal(err)
	}
	_, err = Decrypt(ciphertext, "wrong-key")
	if err == nil {
		t.Fatal("expected error decrypting with wrong secret")
	}
	var authErr *gwerrors.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("expected *gwerrors.AuthError, got %T: %v", err, err)
	}
}

func TestDecryptMalformedCiphertextIsLegacyFormat(t *testing.T) {
	_, err := Decrypt("not valid base64!!!", "key")
	if !errors.Is(err, ErrLegacyFormat) {
		t.Errorf("expected ErrLegacyFormat, got %v", err)
	}
}

func TestDecryptTruncatedCiphertextIsLegacyFormat(t *testing.T) {
	_, err := Decrypt("AAAA", "key")
	if !errors.Is(err, ErrLegacyFormat) {
		t.Errorf("expected ErrLegacyFormat, got %v", err)
	}
}
