package models

import (
	"time"

	"gorm.io/gorm"
)

type Device struct {
	gorm.Model
	Token      string `gorm:"not null;uniqueIndex:idx_token_user" json:"token"`
	UserID     uint   `gorm:"not null;index;uniqueIndex:idx_token_user" json:"userId"`
	DeviceType string `gorm:"type:varchar(50)" json:"deviceType"`
	DeviceName string `gorm:"type:varchar(100)" json:"deviceName,omitempty"`
}

type NotificationHistory struct {
	gorm.Model
	UserID uint      `gorm:"index" json:"userId"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Data   string    `gorm:"type:text" json:"data,omitempty"`
	Status string    `gorm:"type:varchar(20)" json:"status"` // sent, failed
	SentAt time.Time `json:"sentAt"`
}
