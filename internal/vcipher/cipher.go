// Package vcipher implements the VoiceprintCipher: per-user authenticated
// encryption of the binary voiceprint envelope, at rest. Key derivation
// follows the original PBKDF2-over-(secret, user_id) construction; the
// cipher itself is a from-scratch Fernet-equivalent (AES-128-CBC +
// HMAC-SHA256, versioned and timestamped) built from raw primitives,
// since the corpus carries no pure-Go Fernet implementation to reuse.
package vcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"voiceauth/internal/corefail"
)

const (
	saltSize = 16
	keySize  = 32 // AES-128 signing+encryption key split, Fernet layout
	version  = byte(0x80)

	// Fernet token layout: version(1) | timestamp(8) | iv(16) | ciphertext(N) | hmac(32)
	ivSize  = 16
	macSize = 32
)

var ErrMalformedToken = errors.New("vcipher: malformed token")

// Cipher encrypts and decrypts voiceprint envelopes for one configured
// process secret.
type Cipher struct {
	ProcessSecret string
	Iterations    int
}

func NewCipher(processSecret string, iterations int) *Cipher {
	return &Cipher{ProcessSecret: processSecret, Iterations: iterations}
}

// GenerateSalt returns a fresh random 16-byte salt, hex-like the original
// encoder's secrets.token_hex(16) but returned raw for storage alongside
// the ciphertext.
func (c *Cipher) GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("vcipher: generate salt: %w", err)
	}
	return salt, nil
}

// deriveKey derives a 32-byte signing+encryption key from the process
// secret and userID, salted by salt — the per-user key material
// "{secret}_{user_id}" run through PBKDF2-HMAC-SHA256.
func (c *Cipher) deriveKey(userID string, salt []byte) []byte {
	keyMaterial := c.ProcessSecret + "_" + userID
	return pbkdf2.Key([]byte(keyMaterial), salt, c.Iterations, keySize, sha256.New)
}

// Encrypt authenticates and encrypts plaintext under the key derived for
// userID and salt, returning a versioned, timestamped, URL-safe token.
func (c *Cipher) Encrypt(plaintext []byte, userID string, salt []byte) ([]byte, error) {
	key := c.deriveKey(userID, salt)
	signKey, encKey := key[:16], key[16:]

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("vcipher: generate iv: %w", err)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("vcipher: new cipher: %w", err)
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(time.Now().Unix()))

	body := make([]byte, 0, 1+8+ivSize+len(ciphertext))
	body = append(body, version)
	body = append(body, ts...)
	body = append(body, iv...)
	body = append(body, ciphertext...)

	mac := hmac.New(sha256.New, signKey)
	mac.Write(body)
	tag := mac.Sum(nil)

	token := append(body, tag...)

	encoded := make([]byte, base64.URLEncoding.EncodedLen(len(token)))
	base64.URLEncoding.Encode(encoded, token)
	return encoded, nil
}

// Decrypt verifies the HMAC tag and decrypts token back into plaintext.
// Any tag mismatch maps to corefail.IntegrityViolation; a structurally
// malformed token maps to corefail.CorruptVoiceprint.
func (c *Cipher) Decrypt(token []byte, userID string, salt []byte) ([]byte, error) {
	const stage = "vcipher.decrypt"

	raw := make([]byte, base64.URLEncoding.DecodedLen(len(token)))
	n, err := base64.URLEncoding.Decode(raw, token)
	if err != nil {
		return nil, corefail.Wrap(corefail.CorruptVoiceprint, stage, err)
	}
	raw = raw[:n]

	if len(raw) < 1+8+ivSize+macSize {
		return nil, corefail.Wrap(corefail.CorruptVoiceprint, stage, ErrMalformedToken)
	}

	body := raw[:len(raw)-macSize]
	tag := raw[len(raw)-macSize:]

	if body[0] != version {
		return nil, corefail.Wrap(corefail.CorruptVoiceprint, stage, ErrMalformedToken)
	}

	key := c.deriveKey(userID, salt)
	signKey, encKey := key[:16], key[16:]

	mac := hmac.New(sha256.New, signKey)
	mac.Write(body)
	want := mac.Sum(nil)
	if !hmac.Equal(tag, want) {
		return nil, corefail.New(corefail.IntegrityViolation, stage)
	}

	iv := body[9 : 9+ivSize]
	ciphertext := body[9+ivSize:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, corefail.Wrap(corefail.CorruptVoiceprint, stage, ErrMalformedToken)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, corefail.Wrap(corefail.CorruptVoiceprint, stage, err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, corefail.Wrap(corefail.CorruptVoiceprint, stage, err)
	}
	return unpadded, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(data, padding...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrMalformedToken
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, ErrMalformedToken
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrMalformedToken
		}
	}
	return data[:len(data)-padLen], nil
}
