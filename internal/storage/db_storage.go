package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/pressly/goose/v3"
)

// DBStorage - хранилище записей о ключах и подписях в PostgreSQL
type DBStorage struct {
	db *sql.DB
}

func (s *DBStorage) DB() *sql.DB {
	return s.db
}

// gooseUp вынесена в переменную для подмены в тестах
var gooseUp = goose.Up

// NewDBStorage - конструктор для DBStorage.
// Проверяет соединение и применяет миграции goose из каталога migrations.
func NewDBStorage(db *sql.DB) (*DBStorage, error) {
	ctx := context.Background()

	// Используем retryOperation для проверки соединения
	err := retryOperation(ctx, func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("database connection check failed: %w", err)
	}

	storage := &DBStorage{db: db}

	// Настраиваем goose
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	goose.SetTableName("goose_db_version")

	// Применяем миграции с использованием retryOperation
	log.Println("Applying database migrations...")
	err = retryOperation(ctx, func() error {
		return gooseUp(db, "migrations")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	log.Println("Database migrations applied successfully.")

	return storage, nil
}

// SaveKeyRecord - сохраняет запись о выпущенной паре ключей
func (s *DBStorage) SaveKeyRecord(rec KeyRecord) error {
	query := `INSERT INTO keys (name, bits, fingerprint, encrypted, public_key, private_key_path, public_key_path, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
              ON CONFLICT (name) DO NOTHING;`

	ctx := context.Background()

	return retryOperation(ctx, func() error {
		res, err := s.db.Exec(query, rec.Name, rec.Bits, rec.Fingerprint, rec.Encrypted,
			rec.PublicKeyPEM, rec.PrivateKeyPath, rec.PublicKeyPath, rec.CreatedAt)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("key %q already exists", rec.Name)
		}
		return nil
	})
}

// GetKeyRecord - возвращает запись о ключе по имени
func (s *DBStorage) GetKeyRecord(name string) (KeyRecord, error) {
	var rec KeyRecord
	query := `SELECT name, bits, fingerprint, encrypted, public_key, private_key_path, public_key_path, created_at
              FROM keys WHERE name = $1`

	ctx := context.Background()

	err := retryOperation(ctx, func() error {
		return s.db.QueryRow(query, name).Scan(&rec.Name, &rec.Bits, &rec.Fingerprint, &rec.Encrypted,
			&rec.PublicKeyPEM, &rec.PrivateKeyPath, &rec.PublicKeyPath, &rec.CreatedAt)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return KeyRecord{}, fmt.Errorf("key not found")
	}
	return rec, err
}

// GetAllKeyRecords - возвращает все записи о ключах
func (s *DBStorage) GetAllKeyRecords() map[string]KeyRecord {
	ctx := context.Background()
	all := make(map[string]KeyRecord)

	query := `SELECT name, bits, fingerprint, encrypted, public_key, private_key_path, public_key_path, created_at FROM keys`
	var rows *sql.Rows

	err := retryOperation(ctx, func() error {
		var err error
		rows, err = s.db.QueryContext(ctx, query)
		return err
	})
	if err != nil {
		log.Printf("Error fetching key records: %v", err)
		return all
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error closing key rows: %v", err)
		}
	}()

	for rows.Next() {
		var rec KeyRecord
		if err := rows.Scan(&rec.Name, &rec.Bits, &rec.Fingerprint, &rec.Encrypted,
			&rec.PublicKeyPEM, &rec.PrivateKeyPath, &rec.PublicKeyPath, &rec.CreatedAt); err != nil {
			log.Printf("Error scanning key record: %v", err)
			continue
		}
		all[rec.Name] = rec
	}

	// Проверка ошибок после итерации
	if err := rows.Err(); err != nil {
		log.Printf("Error iterating key rows: %v", err)
	}

	return all
}

// DeleteKeyRecord - удаляет запись о ключе
func (s *DBStorage) DeleteKeyRecord(name string) error {
	ctx := context.Background()

	return retryOperation(ctx, func() error {
		res, err := s.db.Exec(`DELETE FROM keys WHERE name = $1`, name)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("key not found")
		}
		return nil
	})
}

// SaveKeyRecordsBatch - сохраняет несколько записей в одной транзакции
func (s *DBStorage) SaveKeyRecordsBatch(recs []KeyRecord) error {
	ctx := context.Background()

	return retryOperation(ctx, func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			} else {
				err = tx.Commit()
			}
		}()

		for _, rec := range recs {
			if rec.Name == "" {
				continue
			}
			query := `INSERT INTO keys (name, bits, fingerprint, encrypted, public_key, private_key_path, public_key_path, created_at)
                      VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
                      ON CONFLICT (name) DO UPDATE SET
                          bits = EXCLUDED.bits,
                          fingerprint = EXCLUDED.fingerprint,
                          encrypted = EXCLUDED.encrypted,
                          public_key = EXCLUDED.public_key,
                          private_key_path = EXCLUDED.private_key_path,
                          public_key_path = EXCLUDED.public_key_path;`
			_, err = tx.Exec(query, rec.Name, rec.Bits, rec.Fingerprint, rec.Encrypted,
				rec.PublicKeyPEM, rec.PrivateKeyPath, rec.PublicKeyPath, rec.CreatedAt)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveSignatureRecord - сохраняет запись о выполненной подписи
func (s *DBStorage) SaveSignatureRecord(rec SignatureRecord) error {
	query := `INSERT INTO signatures (key_name, digest, signature, signed_at)
              VALUES ($1, $2, $3, $4);`

	ctx := context.Background()

	err := retryOperation(ctx, func() error {
		_, err := s.db.Exec(query, rec.KeyName, rec.Digest, rec.Signature, rec.SignedAt)
		return err
	})

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return fmt.Errorf("key not found")
	}
	return err
}

// GetSignatureRecords - возвращает записи о подписях указанного ключа
func (s *DBStorage) GetSignatureRecords(keyName string) ([]SignatureRecord, error) {
	ctx := context.Background()
	var records []SignatureRecord

	query := `SELECT key_name, digest, signature, signed_at FROM signatures WHERE key_name = $1 ORDER BY signed_at`
	var rows *sql.Rows

	err := retryOperation(ctx, func() error {
		var err error
		rows, err = s.db.QueryContext(ctx, query, keyName)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error closing signature rows: %v", err)
		}
	}()

	for rows.Next() {
		var rec SignatureRecord
		if err := rows.Scan(&rec.KeyName, &rec.Digest, &rec.Signature, &rec.SignedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// retryOperation повторяет запрос при retriable ошибках.
// Вынесена в переменную для подмены в тестах.
var retryOperation = func(ctx context.Context, operation func() error) error {
	maxRetries := 4
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if !isRetriableError(err) {
			return err
		}
		if i < len(delays) {
			select {
			case <-time.After(delays[i]):
				// Переход к следующей итерации
			case <-ctx.Done():
				// Если контекст отменён, возвращаем его ошибку
				return ctx.Err()
			}
		}
	}
	return err
}

// isRetriableError проверяет, является ли ошибка временной и стоит ли повторить попытку
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}

	// Проверка ошибок PostgreSQL
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure,
			pgerrcode.DeadlockDetected,
			pgerrcode.ConnectionException,
			pgerrcode.ConnectionDoesNotExist,
			pgerrcode.ConnectionFailure,
			pgerrcode.CrashShutdown,
			pgerrcode.CannotConnectNow,
			pgerrcode.IOError:
			return true
		default:
			return false
		}
	}

	// Проверка ошибок сети
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	// Ошибка sql драйвера
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}

	return false
}
