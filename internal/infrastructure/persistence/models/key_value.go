package models

import "time"

// KeyValue is one entry of the storefront's client-side state (cart payload,
// session user, session token)
type KeyValue struct {
	Key       string    `gorm:"column:storage_key;primaryKey;size:191"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for GORM
func (KeyValue) TableName() string {
	return "storefront_kv"
}
