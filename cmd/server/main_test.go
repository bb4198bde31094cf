package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/25x8/keypair-issuer/internal/app"
	"github.com/25x8/keypair-issuer/internal/handler"
	"github.com/25x8/keypair-issuer/internal/issuer"
	"github.com/25x8/keypair-issuer/internal/keys"
	"github.com/25x8/keypair-issuer/internal/sender"
	"github.com/25x8/keypair-issuer/internal/storage"
)

// TestIssueSignVerifyRoundTrip поднимает сервер с полной цепочкой middleware
// и проходит через клиента весь цикл: выпуск, подпись, проверка подписи
func TestIssueSignVerifyRoundTrip(t *testing.T) {
	hashKey := "a3f5bc1d4e6f7890abcdef1234567890abcdef1234567890abcdef1234567890"

	h := &handler.Handler{
		Storage: storage.NewMemStorage(""),
		Issuer:  issuer.New(),
		KeyDir:  t.TempDir(),
	}
	router := app.InitializeRouter(h, &app.Options{HashKey: hashKey})

	server := httptest.NewServer(router)
	defer server.Close()

	client := sender.NewHTTPSender(server.URL, hashKey, nil)

	issued, err := client.Issue("doc", 2048, "")
	require.NoError(t, err)
	assert.Equal(t, "doc", issued.Name)
	assert.Len(t, issued.Fingerprint, 64)

	// Повторный выпуск под тем же именем отклоняется
	_, err = client.Issue("doc", 2048, "")
	assert.Error(t, err)

	signed, err := client.Sign("doc", "important document", "")
	require.NoError(t, err)
	assert.NotEmpty(t, signed.Signature)

	valid, err := client.Verify("doc", "important document", signed.Signature)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = client.Verify("doc", "tampered document", signed.Signature)
	require.NoError(t, err)
	assert.False(t, valid)
}

// TestEncryptedPassphraseRoundTrip проверяет защиту парольной фразы в пути:
// клиент шифрует фразу публичным ключом сервера, сервер расшифровывает
// своим приватным ключом
func TestEncryptedPassphraseRoundTrip(t *testing.T) {
	serverKeyDir := t.TempDir()
	artifact, err := issuer.New().Issue(issuer.Request{Name: "server", Bits: 2048, OutputDir: serverKeyDir})
	require.NoError(t, err)

	serverKey, err := keys.LoadPrivateKey(artifact.PrivateKeyPath, "")
	require.NoError(t, err)
	serverPublicKey, err := keys.LoadPublicKey(artifact.PublicKeyPath)
	require.NoError(t, err)

	h := &handler.Handler{
		Storage:   storage.NewMemStorage(""),
		Issuer:    issuer.New(),
		KeyDir:    t.TempDir(),
		ServerKey: serverKey,
	}
	router := app.InitializeRouter(h, &app.Options{})

	server := httptest.NewServer(router)
	defer server.Close()

	client := sender.NewHTTPSender(server.URL, "", serverPublicKey)

	issued, err := client.Issue("doc", 2048, "secret")
	require.NoError(t, err)
	assert.True(t, issued.Encrypted)

	signed, err := client.Sign("doc", "payload", "secret")
	require.NoError(t, err)

	valid, err := client.Verify("doc", "payload", signed.Signature)
	require.NoError(t, err)
	assert.True(t, valid)

	// Неверная фраза не проходит расшифровку ключа
	_, err = client.Sign("doc", "payload", "wrong")
	assert.Error(t, err)
}
