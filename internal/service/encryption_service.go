package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const sealInfoPrefix = "split-escrow/custody/v1:"

// AESSecretSealer implements ports.SecretSealer using AES-256-GCM with a key
// derived per (wallet, holder) from the master key via HKDF-SHA256.
type AESSecretSealer struct {
	master []byte // 32-byte master key
}

// NewAESSecretSealer creates a new sealer.
// hexKey must be a 64-character hex string (32 bytes decoded).
func NewAESSecretSealer(hexKey string) (*AESSecretSealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding master key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(key))
	}
	return &AESSecretSealer{master: key}, nil
}

// Seal encrypts secret for one holder of one wallet.
// Returns hex-encoded string: nonce(12) + ciphertext.
func (s *AESSecretSealer) Seal(walletID, holderID, secret string) (string, error) {
	aesGCM, err := s.cipherFor(walletID, holderID)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(secret), additionalData(walletID, holderID))
	return hex.EncodeToString(ciphertext), nil
}

// Open decrypts a value produced by Seal for the same wallet and holder.
func (s *AESSecretSealer) Open(walletID, holderID, sealed string) (string, error) {
	ciphertext, err := hex.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	aesGCM, err := s.cipherFor(walletID, holderID)
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, additionalData(walletID, holderID))
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}

	return string(plaintext), nil
}

func (s *AESSecretSealer) cipherFor(walletID, holderID string) (cipher.AEAD, error) {
	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, s.master, []byte(walletID), []byte(sealInfoPrefix+holderID))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return aesGCM, nil
}

func additionalData(walletID, holderID string) []byte {
	return []byte(walletID + "|" + holderID)
}
