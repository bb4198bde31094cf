// Package signer реализует подпись и проверку подписи данных по схеме
// RSA-PSS с хешем SHA-256.
package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
)

var pssOpts = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthAuto,
	Hash:       crypto.SHA256,
}

// Sign подписывает SHA-256 хеш данных приватным ключом
func Sign(data []byte, privateKey *rsa.PrivateKey) ([]byte, error) {
	digest := sha256.Sum256(data)
	signature, err := rsa.SignPSS(rand.Reader, privateKey, crypto.SHA256, digest[:], pssOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to sign data: %w", err)
	}
	return signature, nil
}

// Verify проверяет подпись данных публичным ключом.
// Возвращает false для любой невалидной подписи, ошибки не возвращает:
// неверная подпись - ожидаемый результат проверки, а не сбой.
func Verify(data []byte, signature []byte, publicKey *rsa.PublicKey) bool {
	digest := sha256.Sum256(data)
	err := rsa.VerifyPSS(publicKey, crypto.SHA256, digest[:], signature, pssOpts)
	return err == nil
}

// Digest возвращает SHA-256 хеш данных в виде среза байт
func Digest(data []byte) []byte {
	d := sha256.Sum256(data)
	return d[:]
}
