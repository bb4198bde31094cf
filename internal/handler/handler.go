package handler

import (
	"crypto/rsa"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/25x8/keypair-issuer/internal/buildinfo"
	"github.com/25x8/keypair-issuer/internal/issuer"
	"github.com/25x8/keypair-issuer/internal/keys"
	"github.com/25x8/keypair-issuer/internal/signer"
	"github.com/25x8/keypair-issuer/internal/storage"
	"github.com/25x8/keypair-issuer/internal/sysinfo"
)

type Handler struct {
	Storage storage.Storage
	DB      *sql.DB
	Issuer  *issuer.Issuer
	KeyDir  string
	// ServerKey используется для расшифровки парольных фраз, зашифрованных
	// клиентом публичным ключом сервера. Может быть nil.
	ServerKey *rsa.PrivateKey
}

// IssueRequest - тело JSON-запроса на выпуск пары ключей
type IssueRequest struct {
	Name       string `json:"name"`
	Bits       int    `json:"bits"`
	Passphrase string `json:"passphrase,omitempty"`
	// PassphraseEncrypted указывает, что парольная фраза зашифрована
	// публичным ключом сервера и закодирована в base64
	PassphraseEncrypted bool `json:"passphrase_encrypted,omitempty"`
}

// IssueResponse - ответ на запрос выпуска
type IssueResponse struct {
	Name        string    `json:"name"`
	Bits        int       `json:"bits"`
	Fingerprint string    `json:"fingerprint"`
	Encrypted   bool      `json:"encrypted"`
	PublicKey   string    `json:"public_key"`
	CreatedAt   time.Time `json:"created_at"`
}

// SignRequest - тело запроса на подпись данных
type SignRequest struct {
	Name                string `json:"name"`
	Payload             string `json:"payload"`
	Passphrase          string `json:"passphrase,omitempty"`
	PassphraseEncrypted bool   `json:"passphrase_encrypted,omitempty"`
}

// SignResponse - ответ с подписью
type SignResponse struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	Signature string `json:"signature"`
}

// VerifyRequest - тело запроса на проверку подписи
type VerifyRequest struct {
	Name      string `json:"name"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// VerifyResponse - результат проверки подписи
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// KeyLookupRequest - тело запроса на получение записи о ключе
type KeyLookupRequest struct {
	Name string `json:"name"`
}

// HandleIssueKey - обработчик выпуска ключа через параметры пути.
// Выпускает незашифрованный ключ с размером модуля из URL.
func (h *Handler) HandleIssueKey(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	bitsValue := vars["bits"]

	if name == "" {
		http.Error(w, "Key name is required", http.StatusNotFound)
		return
	}

	bits, err := strconv.Atoi(bitsValue)
	if err != nil {
		http.Error(w, "Invalid bit length", http.StatusBadRequest)
		return
	}

	resp, status, errMsg := h.issueKey(IssueRequest{Name: name, Bits: bits})
	if errMsg != "" {
		http.Error(w, errMsg, status)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Key %s issued, fingerprint %s", resp.Name, resp.Fingerprint)
}

// HandleIssueKeyJSON - обработчик выпуска ключа через JSON
func (h *Handler) HandleIssueKeyJSON(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "Unsupported content type", http.StatusUnsupportedMediaType)
		return
	}

	var req IssueRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	resp, status, errMsg := h.issueKey(req)
	if errMsg != "" {
		http.Error(w, errMsg, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// issueKey - общая логика выпуска для обоих вариантов обработчиков
func (h *Handler) issueKey(req IssueRequest) (*IssueResponse, int, string) {
	// Имя проверяется до обращения к диску: запись с таким именем
	// не должна быть перезаписана повторным выпуском
	if _, err := h.Storage.GetKeyRecord(req.Name); err == nil {
		return nil, http.StatusConflict, "Key already exists"
	}

	passphrase, err := h.resolvePassphrase(req.Passphrase, req.PassphraseEncrypted)
	if err != nil {
		return nil, http.StatusBadRequest, err.Error()
	}

	// Выпуск идет во временный каталог. Имя резервируется записью в
	// хранилище, и только после этого файлы переносятся на место: два
	// одновременных запроса с одним именем не могут перезаписать файлы
	// друг друга, оставив запись без парного приватного ключа.
	if err := os.MkdirAll(h.KeyDir, 0o755); err != nil {
		return nil, http.StatusInternalServerError, "Failed to prepare key directory"
	}
	tmpDir, err := os.MkdirTemp(h.KeyDir, "issue-")
	if err != nil {
		return nil, http.StatusInternalServerError, "Failed to prepare key directory"
	}
	defer os.RemoveAll(tmpDir)

	artifact, err := h.Issuer.Issue(issuer.Request{
		Name:       req.Name,
		Bits:       req.Bits,
		Passphrase: passphrase,
		OutputDir:  tmpDir,
	})
	if err != nil {
		switch {
		case errors.Is(err, issuer.ErrInvalidParameter):
			return nil, http.StatusBadRequest, err.Error()
		default:
			return nil, http.StatusInternalServerError, err.Error()
		}
	}

	rec := storage.KeyRecord{
		Name:           req.Name,
		Bits:           artifact.Bits,
		Fingerprint:    artifact.Fingerprint,
		Encrypted:      artifact.Encrypted,
		PublicKeyPEM:   string(artifact.PublicKeyPEM),
		PrivateKeyPath: filepath.Join(h.KeyDir, filepath.Base(artifact.PrivateKeyPath)),
		PublicKeyPath:  filepath.Join(h.KeyDir, filepath.Base(artifact.PublicKeyPath)),
		CreatedAt:      artifact.CreatedAt,
	}
	if err := h.Storage.SaveKeyRecord(rec); err != nil {
		return nil, http.StatusConflict, err.Error()
	}

	// Имя закреплено за этой парой, переносим файлы на постоянные пути
	if err = os.Rename(artifact.PrivateKeyPath, rec.PrivateKeyPath); err == nil {
		err = os.Rename(artifact.PublicKeyPath, rec.PublicKeyPath)
	}
	if err != nil {
		// Запись без файлов бесполезна: откатываем резервирование имени
		_ = os.Remove(rec.PrivateKeyPath)
		_ = h.Storage.DeleteKeyRecord(rec.Name)
		return nil, http.StatusInternalServerError, "Failed to store key files"
	}

	return &IssueResponse{
		Name:        rec.Name,
		Bits:        rec.Bits,
		Fingerprint: rec.Fingerprint,
		Encrypted:   rec.Encrypted,
		PublicKey:   rec.PublicKeyPEM,
		CreatedAt:   rec.CreatedAt,
	}, http.StatusOK, ""
}

// HandleGetKey - обработчик получения публичного ключа в PEM
func (h *Handler) HandleGetKey(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	rec, err := h.Storage.GetKeyRecord(name)
	if err != nil {
		http.Error(w, "Key not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-pem-file")
	fmt.Fprint(w, rec.PublicKeyPEM)
}

// HandleGetKeyJSON - обработчик получения записи о ключе через JSON
func (h *Handler) HandleGetKeyJSON(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "Unsupported content type", http.StatusUnsupportedMediaType)
		return
	}

	var req KeyLookupRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	rec, err := h.Storage.GetKeyRecord(req.Name)
	if err != nil {
		http.Error(w, "Key not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// HandleListKeys - обработчик для получения всех ключей в виде HTML
func (h *Handler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	allKeys := h.Storage.GetAllKeyRecords()

	w.Header().Set("Content-Type", "text/html")

	tmpl := `
		<html>
		<head><title>Issued Keys</title></head>
		<body>
			<h1>Issued Keys</h1>
			<table border="1">
				<tr>
					<th>Name</th>
					<th>Bits</th>
					<th>Fingerprint</th>
					<th>Encrypted</th>
					<th>Created</th>
				</tr>
				{{range $name, $rec := .}}
				<tr>
					<td>{{$name}}</td>
					<td>{{$rec.Bits}}</td>
					<td>{{$rec.Fingerprint}}</td>
					<td>{{$rec.Encrypted}}</td>
					<td>{{$rec.CreatedAt}}</td>
				</tr>
				{{end}}
			</table>
		</body>
		</html>
		`

	t := template.Must(template.New("keys").Parse(tmpl))
	if err := t.Execute(w, allKeys); err != nil {
		log.Printf("Error rendering key list: %v", err)
	}
}

// HandleSign - обработчик подписи данных приватным ключом выпущенной пары.
// Неверная парольная фраза для зашифрованного ключа возвращает ошибку
// расшифровки, а не пустую подпись.
func (h *Handler) HandleSign(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "Unsupported content type", http.StatusUnsupportedMediaType)
		return
	}

	var req SignRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Payload == "" {
		http.Error(w, "Name and payload are required", http.StatusBadRequest)
		return
	}

	rec, err := h.Storage.GetKeyRecord(req.Name)
	if err != nil {
		http.Error(w, "Key not found", http.StatusNotFound)
		return
	}

	passphrase, err := h.resolvePassphrase(req.Passphrase, req.PassphraseEncrypted)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if rec.Encrypted && passphrase == "" {
		http.Error(w, "Passphrase is required for encrypted key", http.StatusBadRequest)
		return
	}

	privateKey, err := keys.LoadPrivateKey(rec.PrivateKeyPath, passphrase)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load private key: %v", err), http.StatusBadRequest)
		return
	}

	payload := []byte(req.Payload)
	signature, err := signer.Sign(payload, privateKey)
	if err != nil {
		http.Error(w, "Failed to sign payload", http.StatusInternalServerError)
		return
	}

	sigRec := storage.SignatureRecord{
		KeyName:   req.Name,
		Digest:    hex.EncodeToString(signer.Digest(payload)),
		Signature: base64.StdEncoding.EncodeToString(signature),
		SignedAt:  time.Now(),
	}
	if err := h.Storage.SaveSignatureRecord(sigRec); err != nil {
		http.Error(w, "Failed to record signature", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SignResponse{
		Name:      req.Name,
		Digest:    sigRec.Digest,
		Signature: sigRec.Signature,
	})
}

// HandleVerify - обработчик проверки подписи публичным ключом
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "Unsupported content type", http.StatusUnsupportedMediaType)
		return
	}

	var req VerifyRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Payload == "" || req.Signature == "" {
		http.Error(w, "Name, payload and signature are required", http.StatusBadRequest)
		return
	}

	rec, err := h.Storage.GetKeyRecord(req.Name)
	if err != nil {
		http.Error(w, "Key not found", http.StatusNotFound)
		return
	}

	publicKey, err := keys.ParsePublicKey([]byte(rec.PublicKeyPEM))
	if err != nil {
		http.Error(w, "Stored public key is invalid", http.StatusInternalServerError)
		return
	}

	signature, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		http.Error(w, "Invalid signature encoding", http.StatusBadRequest)
		return
	}

	valid := signer.Verify([]byte(req.Payload), signature, publicKey)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(VerifyResponse{Valid: valid})
}

// HandlePing - обработчик проверки соединения с базой данных
func (h *Handler) HandlePing(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, "Database connection is not initialized", http.StatusInternalServerError)
		return
	}

	// Проверка соединения с базой данных
	err := h.DB.PingContext(r.Context())
	if err != nil {
		http.Error(w, "Failed to connect to the database", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// StatusResponse - ответ обработчика /status
type StatusResponse struct {
	KeyCount  int               `json:"key_count"`
	BuildInfo string            `json:"build_info"`
	Host      *sysinfo.Snapshot `json:"host,omitempty"`
}

// HandleStatus - обработчик состояния сервиса: число ключей, сборка, хост
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		KeyCount:  len(h.Storage.GetAllKeyRecords()),
		BuildInfo: buildinfo.String(),
	}

	snapshot, err := sysinfo.Collect()
	if err == nil {
		resp.Host = snapshot
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) CloseDB() {
	if h.DB != nil {
		h.DB.Close()
	}
}

// resolvePassphrase расшифровывает парольную фразу, если она пришла
// зашифрованной публичным ключом сервера
func (h *Handler) resolvePassphrase(passphrase string, encrypted bool) (string, error) {
	if !encrypted || passphrase == "" {
		return passphrase, nil
	}
	if h.ServerKey == nil {
		return "", fmt.Errorf("server has no private key configured for encrypted passphrases")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(passphrase)
	if err != nil {
		return "", fmt.Errorf("invalid encrypted passphrase encoding")
	}
	plain, err := keys.DecryptWithPrivateKey(ciphertext, h.ServerKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt passphrase")
	}
	return string(plain), nil
}
