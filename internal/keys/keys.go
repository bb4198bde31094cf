// Package keys содержит функции загрузки PEM-ключей с диска и
// RSA-шифрования небольших значений (например, парольной фразы при
// передаче между клиентом и сервером).
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/youmark/pkcs8"
)

// ErrPassphraseRequired возвращается при попытке загрузить зашифрованный
// ключ без парольной фразы
var ErrPassphraseRequired = errors.New("private key is encrypted, passphrase required")

// LoadPublicKey загружает публичный ключ RSA из PEM-файла
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	return ParsePublicKey(keyData)
}

// ParsePublicKey разбирает публичный ключ RSA из PEM-данных
func ParsePublicKey(keyData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(keyData)
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, errors.New("failed to decode PEM block containing public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("key is not an RSA public key")
	}

	return rsaKey, nil
}

// LoadPrivateKey загружает приватный ключ RSA из PEM-файла.
// Для блока ENCRYPTED PRIVATE KEY требуется парольная фраза; неверная
// фраза возвращает ошибку расшифровки, а не пустой ключ.
func LoadPrivateKey(path string, passphrase string) (*rsa.PrivateKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	return ParsePrivateKey(keyData, passphrase)
}

// ParsePrivateKey разбирает приватный ключ RSA из PEM-данных
func ParsePrivateKey(keyData []byte, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("failed to decode PEM block containing private key")
	}

	switch block.Type {
	case "ENCRYPTED PRIVATE KEY":
		if passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		rsaKey, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt private key: %w", err)
		}
		return rsaKey, nil

	case "PRIVATE KEY", "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			// Старые ключи могут быть в PKCS#1
			rsaKey, err1 := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err1 != nil {
				return nil, fmt.Errorf("failed to parse private key: %w", err)
			}
			return rsaKey, nil
		}
		rsaKey, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("key is not an RSA private key")
		}
		return rsaKey, nil

	default:
		return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
	}
}

// EncryptWithPublicKey шифрует небольшой блок данных публичным ключом
func EncryptWithPublicKey(data []byte, publicKey *rsa.PublicKey) ([]byte, error) {
	return rsa.EncryptPKCS1v15(rand.Reader, publicKey, data)
}

// DecryptWithPrivateKey расшифровывает блок данных приватным ключом
func DecryptWithPrivateKey(ciphertext []byte, privateKey *rsa.PrivateKey) ([]byte, error) {
	return rsa.DecryptPKCS1v15(rand.Reader, privateKey, ciphertext)
}
