package models

import "time"

type ActivityLog struct {
	ID       string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Datetime time.Time `gorm:"column:datetime;not null;index" json:"datetime"`
	Action   string    `gorm:"type:text;not null" json:"action"`
	Outcome  string    `gorm:"type:text;not null" json:"outcome"`
	Message  *string   `gorm:"type:text" json:"message,omitempty"`
}
