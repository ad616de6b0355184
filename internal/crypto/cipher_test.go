package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *Cipher {
	c, err := New("test-secret-key")
	require.NoError(t, err)
	return c
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{name: "empty payload", plaintext: []byte{}},
		{name: "short text", plaintext: []byte("hola")},
		{name: "binary template", plaintext: []byte{0x00, 0xff, 0x10, 0x7f, 0x00, 0x01}},
		{name: "large payload", plaintext: bytes.Repeat([]byte{0xab}, 64*1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := c.Encrypt(tt.plaintext)
			require.NoError(t, err)
			assert.NotEqual(t, tt.plaintext, ciphertext)

			plaintext, err := c.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, plaintext)
		})
	}
}

func TestCipher_NonceIsRandom(t *testing.T) {
	c := newTestCipher(t)

	first, err := c.Encrypt([]byte("same payload"))
	require.NoError(t, err)
	second, err := c.Encrypt([]byte("same payload"))
	require.NoError(t, err)

	// одинаковый открытый текст не должен давать одинаковый шифротекст
	assert.NotEqual(t, first, second)
}

func TestCipher_DecryptMalformed(t *testing.T) {
	c := newTestCipher(t)

	valid, err := c.Encrypt([]byte("template"))
	require.NoError(t, err)

	tampered := append([]byte(nil), valid...)
	tampered[len(tampered)-1] ^= 0x01

	tests := []struct {
		name       string
		ciphertext []byte
	}{
		{name: "empty input", ciphertext: []byte{}},
		{name: "truncated below nonce size", ciphertext: valid[:8]},
		{name: "truncated ciphertext", ciphertext: valid[:len(valid)-4]},
		{name: "tampered byte", ciphertext: tampered},
		{name: "garbage", ciphertext: []byte("not a ciphertext at all")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decrypt(tt.ciphertext)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecrypt))
		})
	}
}

func TestCipher_DifferentKeysDoNotInterop(t *testing.T) {
	first, err := New("first-secret")
	require.NoError(t, err)
	second, err := New("second-secret")
	require.NoError(t, err)

	ciphertext, err := first.Encrypt([]byte("template"))
	require.NoError(t, err)

	_, err = second.Decrypt(ciphertext)
	assert.True(t, errors.Is(err, ErrDecrypt))
}

func TestCipher_SameSecretSameKey(t *testing.T) {
	first, err := New("shared-secret")
	require.NoError(t, err)
	second, err := New("shared-secret")
	require.NoError(t, err)

	ciphertext, err := first.Encrypt([]byte("template"))
	require.NoError(t, err)

	plaintext, err := second.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("template"), plaintext)
}
