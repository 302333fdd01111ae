package model

import "time"

// TurnRecord is the audit-trail row written for every turn appended to a session.
type TurnRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:36;not null;index" json:"session_id"`
	Mode      string    `gorm:"size:32;not null" json:"mode"`
	Role      string    `gorm:"size:16;not null;index" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
