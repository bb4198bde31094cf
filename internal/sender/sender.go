// Package sender реализует HTTP-клиент сервиса выпуска ключей: запросы
// выпуска, подписи и проверки подписи с gzip-сжатием тела, подписью
// запроса HMAC-SHA256 и шифрованием парольной фразы публичным ключом
// сервера при его наличии.
package sender

import (
	"bytes"
	"compress/gzip"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/25x8/keypair-issuer/internal/handler"
	"github.com/25x8/keypair-issuer/internal/keys"
	"github.com/25x8/keypair-issuer/internal/utils"
)

// HTTPSender - клиент сервиса выпуска ключей
type HTTPSender struct {
	ServerURL string
	// HashKey - общий секрет для подписи тела запроса, может быть пустым
	HashKey string
	// ServerPublicKey - публичный ключ сервера для шифрования парольных фраз
	ServerPublicKey *rsa.PublicKey
}

// NewHTTPSender - конструктор для HTTPSender
func NewHTTPSender(serverURL string, hashKey string, serverPublicKey *rsa.PublicKey) *HTTPSender {
	return &HTTPSender{
		ServerURL:       serverURL,
		HashKey:         hashKey,
		ServerPublicKey: serverPublicKey,
	}
}

// Issue - запрашивает выпуск пары ключей на сервере
func (s *HTTPSender) Issue(name string, bits int, passphrase string) (*handler.IssueResponse, error) {
	req := handler.IssueRequest{
		Name: name,
		Bits: bits,
	}

	var err error
	req.Passphrase, req.PassphraseEncrypted, err = s.preparePassphrase(passphrase)
	if err != nil {
		return nil, err
	}

	var resp handler.IssueResponse
	if err := s.post("/issue/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sign - запрашивает подпись данных ключом на сервере
func (s *HTTPSender) Sign(name string, payload string, passphrase string) (*handler.SignResponse, error) {
	req := handler.SignRequest{
		Name:    name,
		Payload: payload,
	}

	var err error
	req.Passphrase, req.PassphraseEncrypted, err = s.preparePassphrase(passphrase)
	if err != nil {
		return nil, err
	}

	var resp handler.SignResponse
	if err := s.post("/sign/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify - запрашивает проверку подписи на сервере
func (s *HTTPSender) Verify(name string, payload string, signature string) (bool, error) {
	req := handler.VerifyRequest{
		Name:      name,
		Payload:   payload,
		Signature: signature,
	}

	var resp handler.VerifyResponse
	if err := s.post("/verify/", req, &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

// preparePassphrase шифрует парольную фразу публичным ключом сервера,
// если он настроен. Открытым текстом фраза уходит только при отсутствии ключа.
func (s *HTTPSender) preparePassphrase(passphrase string) (string, bool, error) {
	if passphrase == "" || s.ServerPublicKey == nil {
		return passphrase, false, nil
	}

	encrypted, err := keys.EncryptWithPublicKey([]byte(passphrase), s.ServerPublicKey)
	if err != nil {
		return "", false, fmt.Errorf("failed to encrypt passphrase: %w", err)
	}
	return base64.StdEncoding.EncodeToString(encrypted), true, nil
}

// post отправляет JSON-запрос со сжатием gzip и подписью HMAC
func (s *HTTPSender) post(path string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var compressedBody bytes.Buffer
	gzipWriter := gzip.NewWriter(&compressedBody)
	if _, err := gzipWriter.Write(jsonData); err != nil {
		return err
	}
	gzipWriter.Close()

	url := s.ServerURL + path
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(compressedBody.Bytes()))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Content-Type", "application/json")

	// Подпись считается от несжатого тела: сервер проверяет хеш
	// после распаковки gzip
	if s.HashKey != "" {
		req.Header.Set("HashSHA256", utils.CalculateHash(jsonData, s.HashKey))
	}

	// Передаем реальный IP для проверки доверенной подсети
	if localIP, err := utils.GetLocalIP(); err == nil {
		req.Header.Set("X-Real-IP", localIP)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(reader)
		return fmt.Errorf("server returned status %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	if out != nil {
		if err := json.NewDecoder(reader).Decode(out); err != nil {
			return err
		}
	}

	return nil
}
