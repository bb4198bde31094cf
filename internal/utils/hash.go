package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// CalculateHash вычисляет HMAC-SHA256 хеш от данных с использованием ключа.
// Возвращает хеш в виде шестнадцатеричной строки.
// Используется для подписи тел запросов между клиентом и сервером выпуска.
func CalculateHash(data []byte, key string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
