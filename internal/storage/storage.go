package storage

// Storage определяет интерфейс для хранения записей о выпущенных ключах
// и выполненных подписях. Реализации обеспечивают хранение в памяти
// (с выгрузкой в файл) или в базе данных.
type Storage interface {
	// SaveKeyRecord сохраняет запись о выпущенной паре ключей.
	// Возвращает ошибку, если запись с таким именем уже существует.
	SaveKeyRecord(rec KeyRecord) error

	// GetKeyRecord возвращает запись о ключе с указанным именем.
	// Если запись не найдена, возвращается ошибка.
	GetKeyRecord(name string) (KeyRecord, error)

	// GetAllKeyRecords возвращает все записи о ключах в виде карты,
	// где ключ карты - имя пары ключей.
	GetAllKeyRecords() map[string]KeyRecord

	// DeleteKeyRecord удаляет запись о ключе.
	// Если запись не найдена, возвращается ошибка.
	DeleteKeyRecord(name string) error

	// SaveKeyRecordsBatch сохраняет несколько записей одновременно.
	// Реализация для базы данных выполняет операцию в одной транзакции.
	SaveKeyRecordsBatch(recs []KeyRecord) error

	// SaveSignatureRecord сохраняет запись о выполненной подписи.
	SaveSignatureRecord(rec SignatureRecord) error

	// GetSignatureRecords возвращает записи о подписях указанного ключа.
	GetSignatureRecords(keyName string) ([]SignatureRecord, error)
}
