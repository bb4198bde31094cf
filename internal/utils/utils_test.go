package utils

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateHash(t *testing.T) {
	data := []byte(`{"name":"doc","bits":2048}`)

	hash := CalculateHash(data, "secret")

	// HMAC-SHA256 в шестнадцатеричном виде всегда 64 символа
	assert.Len(t, hash, 64)

	// Хеш детерминирован и зависит от ключа и данных
	assert.Equal(t, hash, CalculateHash(data, "secret"))
	assert.NotEqual(t, hash, CalculateHash(data, "other"))
	assert.NotEqual(t, hash, CalculateHash([]byte("tampered"), "secret"))
}

func TestGetLocalIP(t *testing.T) {
	ip, err := GetLocalIP()
	if err != nil {
		t.Skipf("no local IP available: %v", err)
	}

	assert.NotNil(t, net.ParseIP(ip))
}
