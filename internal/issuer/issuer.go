// Package issuer реализует выпуск пар ключей RSA: генерация, кодирование
// приватного ключа в PKCS#8 (с шифрованием по парольной фразе или без него),
// экспорт публичного ключа в формате SubjectPublicKeyInfo и запись обоих
// файлов с минимальными правами доступа.
package issuer

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/youmark/pkcs8"
)

// Классификация ошибок выпуска. Ошибки всегда оборачиваются с указанием
// этапа (generate, encode, export, chmod), чтобы оператор мог понять,
// где именно произошел сбой.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrCrypto           = errors.New("crypto failure")
	ErrIO               = errors.New("io failure")
)

const (
	// DefaultName - имя ключа по умолчанию
	DefaultName = "document_key"
	// DefaultBits - размер модуля по умолчанию
	DefaultBits = 2048
)

// SupportedBits - допустимые размеры модуля RSA
var SupportedBits = []int{2048, 3072, 4096}

// Request - параметры выпуска пары ключей
type Request struct {
	Name       string `json:"name"`
	Bits       int    `json:"bits"`
	Passphrase string `json:"passphrase,omitempty"`
	OutputDir  string `json:"output_dir"`
}

// Artifact - результат выпуска: PEM-кодировки и пути к записанным файлам.
// Fingerprint - SHA-256 от DER публичного ключа; вычисляется из ключа в
// памяти, а не повторным чтением записанного файла.
type Artifact struct {
	PrivateKeyPEM  []byte
	PublicKeyPEM   []byte
	PrivateKeyPath string
	PublicKeyPath  string
	Fingerprint    string
	Bits           int
	Encrypted      bool
	CreatedAt      time.Time
}

// Issuer - выпускает пары ключей. Не содержит состояния и безопасен для
// одновременного использования из нескольких горутин.
type Issuer struct{}

// New - конструктор для Issuer
func New() *Issuer {
	return &Issuer{}
}

// Normalize подставляет значения по умолчанию для пустых полей запроса
func (r *Request) Normalize() {
	if r.Name == "" {
		r.Name = DefaultName
	}
	if r.Bits == 0 {
		r.Bits = DefaultBits
	}
	if r.OutputDir == "" {
		r.OutputDir = "."
	}
}

// Validate проверяет параметры запроса до каких-либо операций с диском
func (r *Request) Validate() error {
	// Имя становится частью имен файлов: разделители пути и ссылки на
	// родительский каталог позволили бы записать ключи за пределами
	// выходного каталога
	if strings.ContainsAny(r.Name, `/\`) || r.Name == "." || r.Name == ".." {
		return fmt.Errorf("%w: key name %q must not contain path separators", ErrInvalidParameter, r.Name)
	}

	for _, b := range SupportedBits {
		if r.Bits == b {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported bit length %d (supported: 2048, 3072, 4096)", ErrInvalidParameter, r.Bits)
}

// Issue - выпускает новую пару ключей RSA.
// Приватный ключ записывается с правами 0600, публичный - 0644. Запись
// идет через временный файл с атомарным переименованием: при любой ошибке
// частичные артефакты удаляются.
func (i *Issuer) Issue(req Request) (*Artifact, error) {
	req.Normalize()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %v", ErrIO, err)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, req.Bits)
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %v", ErrCrypto, err)
	}

	privatePEM, err := encodePrivateKey(privateKey, req.Passphrase)
	if err != nil {
		return nil, err
	}

	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: export: %v", ErrCrypto, err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	privatePath := filepath.Join(req.OutputDir, req.Name+"_private.pem")
	publicPath := filepath.Join(req.OutputDir, req.Name+"_public.pem")

	if err := writeFileAtomic(privatePath, privatePEM, 0o600); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(publicPath, publicPEM, 0o644); err != nil {
		// Не оставляем осиротевший приватный ключ без парного публичного
		_ = os.Remove(privatePath)
		return nil, err
	}

	fingerprint := sha256.Sum256(publicDER)

	return &Artifact{
		PrivateKeyPEM:  privatePEM,
		PublicKeyPEM:   publicPEM,
		PrivateKeyPath: privatePath,
		PublicKeyPath:  publicPath,
		Fingerprint:    hex.EncodeToString(fingerprint[:]),
		Bits:           req.Bits,
		Encrypted:      req.Passphrase != "",
		CreatedAt:      time.Now(),
	}, nil
}

// encodePrivateKey кодирует приватный ключ в PKCS#8 PEM.
// Непустая парольная фраза включает шифрование контейнера (PBKDF2 +
// AES-256-CBC). Ошибка шифрования возвращается как ErrCrypto и никогда
// не приводит к записи ключа открытым текстом.
func encodePrivateKey(key *rsa.PrivateKey, passphrase string) ([]byte, error) {
	if passphrase == "" {
		// Явная ветка выпуска незашифрованного ключа
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: encode: %v", ErrCrypto, err)
		}
		return pem.EncodeToMemory(&pem.Block{
			Type:  "PRIVATE KEY",
			Bytes: der,
		}), nil
	}

	der, err := pkcs8.MarshalPrivateKey(key, []byte(passphrase), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: encode encrypted: %v", ErrCrypto, err)
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "ENCRYPTED PRIVATE KEY",
		Bytes: der,
	}), nil
}

// writeFileAtomic записывает данные во временный файл рядом с целевым и
// атомарно переименовывает его, чтобы при сбое не оставались частичные файлы
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrIO, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrIO, path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: chmod %s: %v", ErrIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", ErrIO, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", ErrIO, path, err)
	}
	return nil
}
