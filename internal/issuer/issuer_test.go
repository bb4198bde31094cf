package issuer

import (
	"crypto/rand"
	"crypto/rsa"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/25x8/keypair-issuer/internal/keys"
	"github.com/25x8/keypair-issuer/internal/signer"
)

func TestIssueUnencrypted(t *testing.T) {
	dir := t.TempDir()

	artifact, err := New().Issue(Request{
		Name:      "doc",
		Bits:      2048,
		OutputDir: dir,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "doc_private.pem"), artifact.PrivateKeyPath)
	assert.Equal(t, filepath.Join(dir, "doc_public.pem"), artifact.PublicKeyPath)
	assert.Equal(t, 2048, artifact.Bits)
	assert.False(t, artifact.Encrypted)
	assert.Len(t, artifact.Fingerprint, 64)

	// Незашифрованный ключ загружается без парольной фразы
	privateKey, err := keys.LoadPrivateKey(artifact.PrivateKeyPath, "")
	require.NoError(t, err)

	// Публичный ключ математически связан с приватным
	publicKey, err := keys.LoadPublicKey(artifact.PublicKeyPath)
	require.NoError(t, err)
	assert.Equal(t, privateKey.PublicKey.N, publicKey.N)
	assert.Equal(t, privateKey.PublicKey.E, publicKey.E)
}

func TestIssueEncrypted(t *testing.T) {
	dir := t.TempDir()

	artifact, err := New().Issue(Request{
		Name:       "doc",
		Bits:       2048,
		Passphrase: "secret",
		OutputDir:  dir,
	})
	require.NoError(t, err)
	assert.True(t, artifact.Encrypted)

	// Загрузка с верной парольной фразой
	privateKey, err := keys.LoadPrivateKey(artifact.PrivateKeyPath, "secret")
	require.NoError(t, err)
	assert.NotNil(t, privateKey)

	// Загрузка с неверной фразой возвращает ошибку расшифровки
	_, err = keys.LoadPrivateKey(artifact.PrivateKeyPath, "wrong")
	assert.Error(t, err)

	// Загрузка без фразы также невозможна
	_, err = keys.LoadPrivateKey(artifact.PrivateKeyPath, "")
	assert.ErrorIs(t, err, keys.ErrPassphraseRequired)
}

func TestIssueRoundTrip(t *testing.T) {
	dir := t.TempDir()

	artifact, err := New().Issue(Request{
		Name:      "roundtrip",
		Bits:      2048,
		OutputDir: dir,
	})
	require.NoError(t, err)

	privateKey, err := keys.LoadPrivateKey(artifact.PrivateKeyPath, "")
	require.NoError(t, err)
	publicKey, err := keys.LoadPublicKey(artifact.PublicKeyPath)
	require.NoError(t, err)

	// Шифрование публичным ключом и расшифровка приватным
	plaintext := []byte("test message")
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, publicKey, plaintext)
	require.NoError(t, err)

	decrypted, err := rsa.DecryptPKCS1v15(rand.Reader, privateKey, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)

	// Подпись приватным ключом проверяется экспортированным публичным
	signature, err := signer.Sign(plaintext, privateKey)
	require.NoError(t, err)
	assert.True(t, signer.Verify(plaintext, signature, publicKey))
}

func TestIssueInvalidBits(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		bits int
	}{
		{"Too small", 1023},
		{"Unsupported", 1024},
		{"Odd value", 2049},
		{"Negative", -2048},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Issue(Request{
				Name:      "bad",
				Bits:      tt.bits,
				OutputDir: dir,
			})
			assert.ErrorIs(t, err, ErrInvalidParameter)

			// До записи файлов дело дойти не должно
			entries, err := os.ReadDir(dir)
			assert.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestIssueRejectsPathTraversalNames(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "keys")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	tests := []struct {
		name    string
		keyName string
	}{
		{"Parent directory reference", "../escaped"},
		{"Forward slash", "nested/key"},
		{"Backslash", `nested\key`},
		{"Dot", "."},
		{"Double dot", ".."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Issue(Request{
				Name:      tt.keyName,
				Bits:      2048,
				OutputDir: dir,
			})
			assert.ErrorIs(t, err, ErrInvalidParameter)

			// Ничего не должно быть записано ни в выходной каталог,
			// ни за его пределами
			entries, err := os.ReadDir(dir)
			assert.NoError(t, err)
			assert.Empty(t, entries)

			parentEntries, err := os.ReadDir(base)
			assert.NoError(t, err)
			assert.Len(t, parentEntries, 1) // только сам каталог keys
		})
	}
}

func TestIssueDefaults(t *testing.T) {
	dir := t.TempDir()

	artifact, err := New().Issue(Request{OutputDir: dir})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "document_key_private.pem"), artifact.PrivateKeyPath)
	assert.Equal(t, 2048, artifact.Bits)
}

func TestIssueFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX file permissions are not supported on Windows")
	}

	dir := t.TempDir()

	artifact, err := New().Issue(Request{
		Name:      "perm",
		Bits:      2048,
		OutputDir: dir,
	})
	require.NoError(t, err)

	privateInfo, err := os.Stat(artifact.PrivateKeyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), privateInfo.Mode().Perm())

	publicInfo, err := os.Stat(artifact.PublicKeyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), publicInfo.Mode().Perm())
}

func TestIssueCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	artifact, err := New().Issue(Request{
		Name:      "nested",
		Bits:      2048,
		OutputDir: dir,
	})
	require.NoError(t, err)
	assert.FileExists(t, artifact.PrivateKeyPath)
	assert.FileExists(t, artifact.PublicKeyPath)
}

func TestIssueNoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()

	_, err := New().Issue(Request{
		Name:      "clean",
		Bits:      2048,
		OutputDir: dir,
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp")
	}
}

func TestIssueEachCallProducesNewKey(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	first, err := New().Issue(Request{Name: "a", Bits: 2048, OutputDir: dir1})
	require.NoError(t, err)
	second, err := New().Issue(Request{Name: "a", Bits: 2048, OutputDir: dir2})
	require.NoError(t, err)

	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)
}
