package crypto

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext: not a hex string")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrEncryptionFailed  = errors.New("encryption failed")
	ErrSigningFailed     = errors.New("signing failed")
	ErrInvalidKeyPEM     = errors.New("invalid private key PEM")
)

// PromptCipher protects the instruction text in transit. Clients encrypt
// with the public key; the server decrypts with the private key. The same
// pair backs signing and verification. Keys are loaded once at startup and
// never rotated during a run.
//
// Wire format (before hex encoding): an RSA-OAEP-wrapped AES-256 key of
// exactly key-size bytes, followed by the GCM nonce and sealed payload.
// The envelope keeps instruction length independent of the RSA modulus.
type PromptCipher struct {
	private *rsa.PrivateKey
}

// NewPromptCipher parses a PEM-encoded RSA private key (PKCS#8 or PKCS#1).
func NewPromptCipher(privateKeyPEM []byte) (*PromptCipher, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, ErrInvalidKeyPEM
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, ErrInvalidKeyPEM
		}
		return &PromptCipher{private: rsaKey}, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, ErrInvalidKeyPEM
	}
	return &PromptCipher{private: key}, nil
}

// LoadPromptCipher reads the private key PEM from disk.
func LoadPromptCipher(path string) (*PromptCipher, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	return NewPromptCipher(pemBytes)
}

// GeneratePromptCipher creates an ephemeral 2048-bit key pair. Used when no
// key file is configured; prompts encrypted against an earlier run's public
// key will not decrypt.
func GeneratePromptCipher() (*PromptCipher, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return &PromptCipher{private: key}, nil
}

// Decrypt interprets ciphertextHex as hex, unwraps the session key and opens
// the payload. No partial results: any failure past hex decoding is reported
// as ErrDecryptionFailed.
func (p *PromptCipher) Decrypt(ciphertextHex string) (string, error) {
	raw, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	keySize := p.private.Size()
	if len(raw) < keySize {
		return "", ErrDecryptionFailed
	}
	wrappedKey, sealed := raw[:keySize], raw[keySize:]

	aesKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, p.private, wrappedKey, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	if len(sealed) < gcm.NonceSize() {
		return "", ErrDecryptionFailed
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	if !utf8.Valid(plaintext) {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// Encrypt seals plaintext under a fresh AES-256 key wrapped with the public
// key, returning lowercase hex.
func (p *PromptCipher) Encrypt(plaintext string) (string, error) {
	aesKey := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, aesKey); err != nil {
		return "", ErrEncryptionFailed
	}

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &p.private.PublicKey, aesKey, nil)
	if err != nil {
		return "", ErrEncryptionFailed
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return "", ErrEncryptionFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrEncryptionFailed
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", ErrEncryptionFailed
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(append(wrappedKey, sealed...)), nil
}

// Sign produces a hex-encoded RSA-PSS signature over data.
func (p *PromptCipher) Sign(data string) (string, error) {
	digest := sha256.Sum256([]byte(data))
	signature, err := rsa.SignPSS(rand.Reader, p.private, crypto.SHA256, digest[:], nil)
	if err != nil {
		return "", ErrSigningFailed
	}
	return hex.EncodeToString(signature), nil
}

// Verify checks a hex-encoded signature over data. It never returns an
// error: malformed hex or a failed verification both yield false.
func (p *PromptCipher) Verify(data, signatureHex string) bool {
	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	digest := sha256.Sum256([]byte(data))
	return rsa.VerifyPSS(&p.private.PublicKey, crypto.SHA256, digest[:], signature, nil) == nil
}

// PublicKeyPEM exports the public half for client-side encryption.
func (p *PromptCipher) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(&p.private.PublicKey)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
