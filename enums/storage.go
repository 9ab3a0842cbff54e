package enums

// Storage drivers for the persisted session record.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)
