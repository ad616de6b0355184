// Package crypto реализует симметричное шифрование шаблонов отпечатков.
//
// Ключ AES-256 выводится один раз при старте процесса из секрета конфигурации
// через PBKDF2-SHA256 и никогда не логируется. Шаблоны шифруются AES-GCM со
// случайным nonce, который хранится в начале шифротекста.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// ErrDecrypt возвращается при попытке расшифровать поврежденный или
// усеченный шифротекст. Диспетчер преобразует её в протокольное сообщение
// об ошибке, не разрывая соединение.
var ErrDecrypt = errors.New("crypto: cannot decrypt template")

const (
	keyLen     = 32
	iterations = 100_000
	// Соль фиксирована: один и тот же секрет должен давать один и тот же ключ
	// между перезапусками процесса.
	derivationSalt = "gym_fingerprint_salt"
)

// Cipher шифрует и расшифровывает бинарные шаблоны отпечатков.
type Cipher struct {
	aead cipher.AEAD
}

// New выводит ключ из секрета процесса и готовит AEAD.
func New(secretKey string) (*Cipher, error) {
	const op = "crypto.New"

	key := pbkdf2.Key([]byte(secretKey), []byte(derivationSalt), iterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt шифрует plaintext со случайным nonce.
// Для любого p выполняется Decrypt(Encrypt(p)) == p, включая пустой p.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	const op = "crypto.Encrypt"

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt расшифровывает шифротекст, созданный Encrypt.
// Для поврежденных или усеченных данных возвращает ErrDecrypt.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	const op = "crypto.Decrypt"

	if len(ciphertext) < c.aead.NonceSize() {
		return nil, fmt.Errorf("%s: %w", op, ErrDecrypt)
	}
	nonce, sealed := ciphertext[:c.aead.NonceSize()], ciphertext[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrDecrypt)
	}
	return plaintext, nil
}
