package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// MemStorage - хранилище записей в памяти с выгрузкой в JSON-файл
type MemStorage struct {
	sync.Mutex
	filePath   string
	keys       map[string]KeyRecord
	signatures map[string][]SignatureRecord
}

// memStorageData - структура для сериализации хранилища
type memStorageData struct {
	Keys       map[string]KeyRecord         `json:"keys"`
	Signatures map[string][]SignatureRecord `json:"signatures"`
}

// NewMemStorage - конструктор для MemStorage.
// Пустой путь к файлу отключает сохранение на диск.
func NewMemStorage(filePath string) *MemStorage {
	return &MemStorage{
		filePath:   filePath,
		keys:       make(map[string]KeyRecord),
		signatures: make(map[string][]SignatureRecord),
	}
}

// SaveKeyRecord - сохраняет запись о выпущенной паре ключей
func (s *MemStorage) SaveKeyRecord(rec KeyRecord) error {
	s.Lock()
	defer s.Unlock()
	if _, exists := s.keys[rec.Name]; exists {
		return fmt.Errorf("key %q already exists", rec.Name)
	}
	s.keys[rec.Name] = rec
	return nil
}

// GetKeyRecord - возвращает запись о ключе по имени
func (s *MemStorage) GetKeyRecord(name string) (KeyRecord, error) {
	s.Lock()
	defer s.Unlock()
	rec, exists := s.keys[name]
	if !exists {
		return KeyRecord{}, fmt.Errorf("key not found")
	}
	return rec, nil
}

// GetAllKeyRecords - возвращает все записи о ключах
func (s *MemStorage) GetAllKeyRecords() map[string]KeyRecord {
	s.Lock()
	defer s.Unlock()

	all := make(map[string]KeyRecord, len(s.keys))
	for name, rec := range s.keys {
		all[name] = rec
	}
	return all
}

// DeleteKeyRecord - удаляет запись о ключе
func (s *MemStorage) DeleteKeyRecord(name string) error {
	s.Lock()
	defer s.Unlock()
	if _, exists := s.keys[name]; !exists {
		return fmt.Errorf("key not found")
	}
	delete(s.keys, name)
	delete(s.signatures, name)
	return nil
}

// SaveKeyRecordsBatch - сохраняет несколько записей одновременно
func (s *MemStorage) SaveKeyRecordsBatch(recs []KeyRecord) error {
	s.Lock()
	defer s.Unlock()
	for _, rec := range recs {
		if rec.Name == "" {
			continue
		}
		s.keys[rec.Name] = rec
	}
	return nil
}

// SaveSignatureRecord - сохраняет запись о выполненной подписи
func (s *MemStorage) SaveSignatureRecord(rec SignatureRecord) error {
	s.Lock()
	defer s.Unlock()
	if _, exists := s.keys[rec.KeyName]; !exists {
		return fmt.Errorf("key not found")
	}
	s.signatures[rec.KeyName] = append(s.signatures[rec.KeyName], rec)
	return nil
}

// GetSignatureRecords - возвращает записи о подписях указанного ключа
func (s *MemStorage) GetSignatureRecords(keyName string) ([]SignatureRecord, error) {
	s.Lock()
	defer s.Unlock()
	if _, exists := s.keys[keyName]; !exists {
		return nil, fmt.Errorf("key not found")
	}
	return append([]SignatureRecord(nil), s.signatures[keyName]...), nil
}

// Flush - сохраняет записи в файл
func (s *MemStorage) Flush() error {
	s.Lock()
	defer s.Unlock()

	if s.filePath == "" {
		// Если путь к файлу не задан, пропускаем сохранение
		return nil
	}

	data := memStorageData{
		Keys:       s.keys,
		Signatures: s.signatures,
	}

	file, err := os.Create(s.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	if err := encoder.Encode(data); err != nil {
		return err
	}

	return nil
}

// Load - загружает записи из файла
func (s *MemStorage) Load() error {
	s.Lock()
	defer s.Unlock()

	if s.filePath == "" {
		// Если путь к файлу не задан, пропускаем загрузку
		return nil
	}

	file, err := os.Open(s.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	data := memStorageData{}
	if err := decoder.Decode(&data); err != nil {
		return err
	}

	if data.Keys != nil {
		s.keys = data.Keys
	}
	if data.Signatures != nil {
		s.signatures = data.Signatures
	}

	return nil
}

// RunPeriodicSave - запускает периодическое сохранение записей в файл
func RunPeriodicSave(s *MemStorage, storeInterval time.Duration) {
	ticker := time.NewTicker(storeInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := s.Flush(); err != nil {
			log.Printf("Error saving key records to file: %v", err)
		}
	}
}
