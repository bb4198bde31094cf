package config

import (
	"encoding/json"
	"os"
	"strconv"
)

// ServerConfig - конфигурация сервера выпуска ключей из JSON-файла
type ServerConfig struct {
	Address       string `json:"address"`
	KeyDir        string `json:"key_dir"`
	Restore       bool   `json:"restore"`
	StoreInterval int    `json:"store_interval"`
	StoreFile     string `json:"store_file"`
	DatabaseDSN   string `json:"database_dsn"`
	CryptoKey     string `json:"crypto_key"`
	Key           string `json:"key"`
	TrustedSubnet string `json:"trusted_subnet"`
}

// LoadServerConfig читает конфигурацию из файла поверх значений по умолчанию
func LoadServerConfig(filePath string) (*ServerConfig, error) {
	config := &ServerConfig{
		Address:       "localhost:8080",
		KeyDir:        "keys",
		Restore:       true,
		StoreInterval: 300,
		StoreFile:     "/tmp/keypair-db.json",
	}

	if filePath != "" {
		file, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}

		err = json.Unmarshal(file, config)
		if err != nil {
			return nil, err
		}
	}

	return config, nil
}

// GetBoolFromString преобразует строковое значение в bool
func GetBoolFromString(value string) (bool, error) {
	return strconv.ParseBool(value)
}
