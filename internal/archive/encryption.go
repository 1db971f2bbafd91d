package archive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize         = 32
	keySize          = 32 // AES-256
	pbkdf2Iterations = 100000
)

// Cipher encrypts archive payloads with AES-256-GCM using a key derived
// from a passphrase. Each payload gets a fresh salt and nonce, stored as
// an envelope: salt || nonce || ciphertext.
type Cipher struct {
	passphrase string
}

// NewCipher creates a cipher around a passphrase
func NewCipher(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, NewEncryptionError("encryption passphrase is required", nil)
	}
	return &Cipher{passphrase: passphrase}, nil
}

// Seal encrypts the payload
func (c *Cipher) Seal(data []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, NewEncryptionError("failed to generate salt", err)
	}

	gcm, err := c.gcm(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, NewEncryptionError("failed to generate nonce", err)
	}

	envelope := make([]byte, 0, saltSize+len(nonce)+len(data)+gcm.Overhead())
	envelope = append(envelope, salt...)
	envelope = append(envelope, nonce...)
	envelope = gcm.Seal(envelope, nonce, data, nil)

	return envelope, nil
}

// Open decrypts a payload produced by Seal
func (c *Cipher) Open(envelope []byte) ([]byte, error) {
	if len(envelope) < saltSize {
		return nil, NewEncryptionError("encrypted payload too short", nil)
	}

	salt := envelope[:saltSize]
	gcm, err := c.gcm(salt)
	if err != nil {
		return nil, err
	}

	rest := envelope[saltSize:]
	nonceSize := gcm.NonceSize()
	if len(rest) < nonceSize {
		return nil, NewEncryptionError("encrypted payload too short", nil)
	}

	nonce, ciphertext := rest[:nonceSize], rest[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, NewEncryptionError("failed to decrypt payload", err)
	}

	return plaintext, nil
}

func (c *Cipher) gcm(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(c.passphrase), salt, pbkdf2Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, NewEncryptionError("failed to create AES cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewEncryptionError("failed to create GCM cipher", err)
	}

	return gcm, nil
}
