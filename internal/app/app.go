package app

import (
	"bytes"
	"crypto/rsa"
	"database/sql"
	"encoding/hex"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/25x8/keypair-issuer/internal/config"
	"github.com/25x8/keypair-issuer/internal/handler"
	"github.com/25x8/keypair-issuer/internal/issuer"
	"github.com/25x8/keypair-issuer/internal/keys"
	"github.com/25x8/keypair-issuer/internal/logger"
	"github.com/25x8/keypair-issuer/internal/middleware"
	"github.com/25x8/keypair-issuer/internal/storage"
	"github.com/25x8/keypair-issuer/internal/utils"
)

// Options - параметры запуска сервера, собранные из флагов и окружения
type Options struct {
	Addr          string
	HashKey       string
	TrustedSubnet string
}

// MiddlewareWithHash добавляет проверку хеша входящего запроса и генерацию хеша ответа
func MiddlewareWithHash(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !isValidSHA256(key) {
				next.ServeHTTP(w, r)
				return
			}

			// Проверяем заголовок HashSHA256
			hashHeader := r.Header.Get("HashSHA256")
			if hashHeader == "" {
				http.Error(w, "Missing HashSHA256 header", http.StatusBadRequest)
				return
			}

			// Считываем тело запроса
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "Error reading request body", http.StatusInternalServerError)
				return
			}
			defer r.Body.Close()

			// Вычисляем ожидаемый хеш
			expectedHash := utils.CalculateHash(body, key)
			if hashHeader != expectedHash {
				http.Error(w, "Invalid hash", http.StatusBadRequest)
				return
			}

			// Возвращаем прочитанное тело обработчику
			r.Body = io.NopCloser(bytes.NewReader(body))

			// Устанавливаем заголовок ответа с хешем
			w.Header().Set("HashSHA256", expectedHash)

			// Передаём управление следующему обработчику
			next.ServeHTTP(w, r)
		})
	}
}

// InitializeApp - собирает конфигурацию из флагов и переменных окружения,
// выбирает хранилище и создает обработчик
func InitializeApp() (*handler.Handler, *Options) {
	// Определение флагов
	configFlag := flag.String("c", "", "Path to JSON config file")
	addrFlag := flag.String("a", "localhost:8080", "HTTP server address")
	storeIntervalFlag := flag.Int("i", 300, "Store interval in seconds (0 for synchronous saving)")
	fileStoragePathFlag := flag.String("f", "/tmp/keypair-db.json", "File storage path")
	restoreFlag := flag.Bool("r", true, "Restore key records from file at startup")
	databaseDSNFlag := flag.String("d", "", "Database connection string")
	keyFlag := flag.String("k", "", "Secret key for request hashing")
	keyDirFlag := flag.String("o", "keys", "Directory for issued key files")
	trustedSubnetFlag := flag.String("t", "", "Trusted subnet in CIDR notation")
	cryptoKeyFlag := flag.String("crypto-key", "", "Path to server private key for encrypted passphrases")

	// Парсинг флагов
	flag.Parse()

	// Конфигурационный файл задает значения по умолчанию,
	// флаги и переменные окружения имеют приоритет
	configPath := *configFlag
	if envConfig := os.Getenv("CONFIG"); envConfig != "" {
		configPath = envConfig
	}
	cfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}

	// Чтение переменных окружения с приоритетом
	addr := *addrFlag
	if envAddr := os.Getenv("ADDRESS"); envAddr != "" {
		addr = envAddr
	} else if addr == "localhost:8080" && cfg.Address != "" {
		addr = cfg.Address
	}

	var storeInterval time.Duration
	if envStoreInterval := os.Getenv("STORE_INTERVAL"); envStoreInterval != "" {
		intervalSec, err := strconv.Atoi(envStoreInterval)
		if err != nil {
			log.Fatalf("Invalid STORE_INTERVAL: %v", err)
		}
		storeInterval = time.Duration(intervalSec) * time.Second
	} else if storeIntervalFlag != nil {
		storeInterval = time.Duration(*storeIntervalFlag) * time.Second
	} else {
		storeInterval = time.Duration(cfg.StoreInterval) * time.Second
	}

	fileStoragePath := *fileStoragePathFlag
	if envFileStoragePath := os.Getenv("FILE_STORAGE_PATH"); envFileStoragePath != "" {
		fileStoragePath = envFileStoragePath
	}

	restore := *restoreFlag
	if envRestore := os.Getenv("RESTORE"); envRestore != "" {
		restore, err = config.GetBoolFromString(envRestore)
		if err != nil {
			log.Fatalf("Invalid RESTORE value: %v", err)
		}
	}

	// Обработка databaseDSN
	databaseDSN := *databaseDSNFlag
	if envDatabaseDSN := os.Getenv("DATABASE_DSN"); envDatabaseDSN != "" {
		databaseDSN = envDatabaseDSN
	} else if databaseDSN == "" && cfg.DatabaseDSN != "" {
		databaseDSN = cfg.DatabaseDSN
	}

	key := *keyFlag
	if envKey := os.Getenv("KEY"); envKey != "" {
		key = envKey
	}

	keyDir := *keyDirFlag
	if envKeyDir := os.Getenv("KEY_DIR"); envKeyDir != "" {
		keyDir = envKeyDir
	} else if keyDir == "keys" && cfg.KeyDir != "" {
		keyDir = cfg.KeyDir
	}

	trustedSubnet := *trustedSubnetFlag
	if envTrustedSubnet := os.Getenv("TRUSTED_SUBNET"); envTrustedSubnet != "" {
		trustedSubnet = envTrustedSubnet
	} else if trustedSubnet == "" && cfg.TrustedSubnet != "" {
		trustedSubnet = cfg.TrustedSubnet
	}

	cryptoKeyPath := *cryptoKeyFlag
	if envCryptoKey := os.Getenv("CRYPTO_KEY"); envCryptoKey != "" {
		cryptoKeyPath = envCryptoKey
	} else if cryptoKeyPath == "" && cfg.CryptoKey != "" {
		cryptoKeyPath = cfg.CryptoKey
	}

	// Инициализация логгера
	if err := logger.Initialize("info"); err != nil {
		panic(err)
	}

	var storageEngine storage.Storage
	var dbConnection *sql.DB

	// Выбор хранилища
	if databaseDSN != "" {
		db, errOpenDB := sql.Open("pgx", databaseDSN)
		if errOpenDB != nil {
			log.Fatalf("failed to open database: %v", errOpenDB)
		}

		dbStorage, err := storage.NewDBStorage(db)
		if err != nil {
			log.Fatalf("Failed to initialize database storage: %v", err)
		}
		storageEngine = dbStorage
		dbConnection = dbStorage.DB()
		log.Println("Using PostgreSQL storage")

	} else {
		memStorage := storage.NewMemStorage(fileStoragePath)
		storageEngine = memStorage
		if restore {
			if err := memStorage.Load(); err != nil {
				log.Printf("Error loading key records from file: %v", err)
			}
		}
		if storeInterval > 0 {
			go storage.RunPeriodicSave(memStorage, storeInterval)
		}
		log.Println("Using file or in-memory storage")
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-c
			if err := memStorage.Flush(); err != nil {
				log.Printf("Error during flush: %v", err)
			}
			os.Exit(0)
		}()
	}

	// Загрузка серверного ключа для расшифровки парольных фраз
	var serverKey *rsa.PrivateKey
	if cryptoKeyPath != "" {
		serverKey, err = keys.LoadPrivateKey(cryptoKeyPath, "")
		if err != nil {
			log.Fatalf("Failed to load server private key: %v", err)
		}
	}

	// Создаем обработчик с выбранным хранилищем
	h := handler.Handler{
		Storage:   storageEngine,
		DB:        dbConnection,
		Issuer:    issuer.New(),
		KeyDir:    keyDir,
		ServerKey: serverKey,
	}

	return &h, &Options{
		Addr:          addr,
		HashKey:       key,
		TrustedSubnet: trustedSubnet,
	}
}

// InitializeRouter - настраивает маршруты и цепочку middleware
func InitializeRouter(h *handler.Handler, opts *Options) *mux.Router {
	r := mux.NewRouter()

	// Проверяем, передан ли ключ хеширования, и определяем middleware
	var wrapWithHash func(http.Handler) http.Handler
	if opts.HashKey != "" {
		wrapWithHash = MiddlewareWithHash(opts.HashKey)
	} else {
		wrapWithHash = func(next http.Handler) http.Handler {
			return next
		}
	}

	subnetMiddleware := middleware.TrustedSubnetMiddleware(opts.TrustedSubnet)

	// Функция для обертки обработчиков
	wrapHandler := func(handler http.Handler) http.Handler {
		return subnetMiddleware(
			middleware.GzipMiddleware(
				logger.RequestLogger(
					wrapWithHash(handler),
				),
			),
		)
	}

	// Маршруты для выпуска ключей и получения их публичной части
	r.Handle("/issue/{name}/{bits}", wrapHandler(http.HandlerFunc(h.HandleIssueKey))).Methods(http.MethodPost)
	r.Handle("/key/{name}", wrapHandler(http.HandlerFunc(h.HandleGetKey))).Methods(http.MethodGet)
	r.Handle("/", wrapHandler(http.HandlerFunc(h.HandleListKeys))).Methods(http.MethodGet)

	// Маршруты для работы с JSON
	r.Handle("/issue/", wrapHandler(http.HandlerFunc(h.HandleIssueKeyJSON))).Methods(http.MethodPost)
	r.Handle("/key/", wrapHandler(http.HandlerFunc(h.HandleGetKeyJSON))).Methods(http.MethodPost)

	// Маршруты подписи и проверки подписи
	r.Handle("/sign/", wrapHandler(http.HandlerFunc(h.HandleSign))).Methods(http.MethodPost)
	r.Handle("/verify/", wrapHandler(http.HandlerFunc(h.HandleVerify))).Methods(http.MethodPost)

	// Служебные маршруты
	r.Handle("/ping", wrapHandler(http.HandlerFunc(h.HandlePing))).Methods(http.MethodGet)
	r.Handle("/status", wrapHandler(http.HandlerFunc(h.HandleStatus))).Methods(http.MethodGet)

	return r
}

func SyncLogger() {
	logger.Sync()
}

func isValidSHA256(key string) bool {
	// SHA-256 хэш всегда длиной 64 символа
	if len(key) != 64 {
		return false
	}

	// Проверяем, что строка состоит из шестнадцатеричных символов
	_, err := hex.DecodeString(key)
	return err == nil
}
