package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type User struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	Name   string       `gorm:"not null" json:"name"`
	Active bool         `gorm:"not null;default:true" json:"active"`

	// ReferrerID is set at most once, at referral time, and never reassigned.
	ReferrerID *snowflake.ID `gorm:"index" json:"referrer_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
