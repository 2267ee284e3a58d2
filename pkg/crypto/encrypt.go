package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// Ошибки шифрования
var (
	ErrInvalidKeyLength   = errors.New("encryption key must be exactly 32 bytes for AES-256")
	ErrInvalidCiphertext  = errors.New("invalid ciphertext")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrDecryptionFailed   = errors.New("decryption failed: authentication error")
)

// KeySize - длина ключа AES-256
const KeySize = 32

// Encrypt шифрует plaintext AES-256-GCM.
// Результат: base64(nonce || ciphertext || tag), пригоден для переменной окружения.
func Encrypt(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt расшифровывает значение, полученное из Encrypt
func Decrypt(ciphertextBase64 string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	sealed, err := base64.StdEncoding.DecodeString(ciphertextBase64)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return "", ErrCiphertextTooShort
	}

	plaintext, err := gcm.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// DecryptSecret расшифровывает секрет площадки строковым ключом из ENCRYPTION_KEY
func DecryptSecret(ciphertextBase64, keyString string) (string, error) {
	return Decrypt(ciphertextBase64, []byte(keyString))
}

// EncryptSecret - обратная операция для подготовки COINBASE_API_SECRET_ENCRYPTED
func EncryptSecret(plaintext, keyString string) (string, error) {
	return Encrypt(plaintext, []byte(keyString))
}

// GenerateKey генерирует случайный ключ AES-256
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// ValidateKey проверяет длину ключа
func ValidateKey(key []byte) error {
	if len(key) != KeySize {
		return ErrInvalidKeyLength
	}
	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
