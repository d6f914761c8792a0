package models

import (
	"time"
)

// SessionValue is one key/value entry of a visitor's session storage
type SessionValue struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	SessionID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_session_values_session_key" json:"session_id"`
	Key       string `gorm:"column:storage_key;type:varchar(128);not null;uniqueIndex:idx_session_values_session_key" json:"key"`
	Value     string `gorm:"type:text;not null" json:"-"`
}

// TableName specifies the table name for SessionValue model
func (SessionValue) TableName() string {
	return "session_values"
}
