package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"
)

func writeTestKey(t *testing.T, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "key.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadPrivateKeyPKCS8(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	require.NoError(t, err)
	path := writeTestKey(t, "PRIVATE KEY", der)

	loaded, err := LoadPrivateKey(path, "")
	require.NoError(t, err)
	assert.Equal(t, privateKey.D, loaded.D)
}

func TestLoadPrivateKeyPKCS1(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	// Старый формат PKCS#1 тоже должен загружаться
	der := x509.MarshalPKCS1PrivateKey(privateKey)
	path := writeTestKey(t, "RSA PRIVATE KEY", der)

	loaded, err := LoadPrivateKey(path, "")
	require.NoError(t, err)
	assert.Equal(t, privateKey.D, loaded.D)
}

func TestLoadPrivateKeyEncrypted(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := pkcs8.MarshalPrivateKey(privateKey, []byte("secret"), nil)
	require.NoError(t, err)
	path := writeTestKey(t, "ENCRYPTED PRIVATE KEY", der)

	loaded, err := LoadPrivateKey(path, "secret")
	require.NoError(t, err)
	assert.Equal(t, privateKey.D, loaded.D)

	_, err = LoadPrivateKey(path, "wrong")
	assert.Error(t, err)

	_, err = LoadPrivateKey(path, "")
	assert.ErrorIs(t, err, ErrPassphraseRequired)
}

func TestLoadPublicKey(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)
	path := writeTestKey(t, "PUBLIC KEY", der)

	loaded, err := LoadPublicKey(path)
	require.NoError(t, err)
	assert.Equal(t, privateKey.PublicKey.N, loaded.N)
}

func TestLoadPublicKeyInvalidPEM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a pem"), 0o600))

	_, err := LoadPublicKey(path)
	assert.Error(t, err)
}

func TestLoadPrivateKeyMissingFile(t *testing.T) {
	_, err := LoadPrivateKey(filepath.Join(t.TempDir(), "missing.pem"), "")
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	plaintext := []byte("passphrase in transit")
	ciphertext, err := EncryptWithPublicKey(plaintext, &privateKey.PublicKey)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := DecryptWithPrivateKey(ciphertext, privateKey)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}
