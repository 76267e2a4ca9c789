package models

import "time"

// KVEntry is one row of the key-value table backing the complaint blob.
// A single key holds the whole serialized collection.
type KVEntry struct {
	// Key is the logical storage key, e.g. "grievance_complaints".
	Key string `gorm:"column:storage_key;primaryKey;type:varchar(191)"`
	// Value is the serialized payload stored under Key.
	Value string `gorm:"type:text;not null"`
	// UpdatedAt is maintained by GORM on every save.
	UpdatedAt time.Time
}

// TableName pins the table name independently of GORM's pluralization.
func (KVEntry) TableName() string {
	return "kv_entries"
}
