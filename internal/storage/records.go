package storage

import "time"

// KeyRecord - метаданные выпущенной пары ключей.
// Байты приватного ключа в хранилище не попадают: хранятся только пути
// к файлам и публичная часть.
type KeyRecord struct {
	Name           string    `json:"name"`
	Bits           int       `json:"bits"`
	Fingerprint    string    `json:"fingerprint"`
	Encrypted      bool      `json:"encrypted"`
	PublicKeyPEM   string    `json:"public_key"`
	PrivateKeyPath string    `json:"private_key_path"`
	PublicKeyPath  string    `json:"public_key_path"`
	CreatedAt      time.Time `json:"created_at"`
}

// SignatureRecord - запись о выполненной операции подписи
type SignatureRecord struct {
	KeyName   string    `json:"key_name"`
	Digest    string    `json:"digest"`    // SHA-256 хеш подписанных данных, hex
	Signature string    `json:"signature"` // подпись, base64
	SignedAt  time.Time `json:"signed_at"`
}
