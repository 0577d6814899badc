package models

import (
	"time"

	"gorm.io/datatypes"
)

// User is the internal user record. AuthID is the opaque identity assigned by
// the external auth provider; rows are only created through the explicit
// registration flow, never implicitly on lookup.
type User struct {
	ID                string                      `gorm:"type:char(36);primaryKey" json:"id"`
	AuthID            string                      `gorm:"size:255;uniqueIndex;not null" json:"-"`
	Name              string                      `gorm:"size:255" json:"name"`
	Email             string                      `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Affiliation       string                      `gorm:"size:255" json:"affiliation,omitempty"`
	ResearchInterests datatypes.JSONSlice[string] `json:"research_interests"`
	PictureURL        string                      `gorm:"size:512" json:"picture_url,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
