package models

import "time"

// Membership roles. The creator row is written in the same transaction that
// creates the library and is never changed afterwards.
const (
	RoleCreator      = "creator"
	RoleCollaborator = "collaborator"
)

// Library is a user-defined collection of papers. PaperCount is denormalized
// and maintained by the library-paper service on save/remove.
type Library struct {
	ID          string    `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerID     string    `gorm:"type:char(36);not null;index" json:"owner_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"size:1024" json:"description,omitempty"`
	IsPublic    bool      `gorm:"not null;default:false" json:"is_public"`
	PaperCount  int64     `gorm:"not null;default:0" json:"paper_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LibraryMembership links a user to a library with a role. At most one row
// per (library, user) pair.
type LibraryMembership struct {
	LibraryID string    `gorm:"type:char(36);primaryKey" json:"library_id"`
	UserID    string    `gorm:"type:char(36);primaryKey" json:"user_id"`
	Role      string    `gorm:"size:32;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the table name for Library
func (Library) TableName() string {
	return "libraries"
}

// TableName overrides the table name for LibraryMembership
func (LibraryMembership) TableName() string {
	return "user_libraries"
}
