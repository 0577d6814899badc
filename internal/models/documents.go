package models

import "time"

// Document-store models. These live in the document pool, a separate
// connection from the relational pool; nothing joins across the two.

// PaperContent holds the large per-paper text (abstract, BibTeX). The upsert
// key is SourceID rather than the internal PaperID: the external id is the
// stable cross-reference, so two code paths registering the same upstream
// paper concurrently converge on one row. Content is shared by every library
// that references the paper.
type PaperContent struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	PaperID   uint64    `gorm:"uniqueIndex;not null" json:"paper_id"`
	SourceID  string    `gorm:"column:s2_paper_id;size:128;uniqueIndex;not null" json:"s2_paper_id"`
	Abstract  string    `gorm:"type:text" json:"abstract"`
	Bibtex    string    `gorm:"type:text" json:"bibtex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LibraryPaperNote is the free-text note scoped to (user, library, paper).
// The same paper saved in two libraries has two independent notes.
type LibraryPaperNote struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    string    `gorm:"type:char(36);not null;uniqueIndex:idx_user_library_paper" json:"user_id"`
	LibraryID string    `gorm:"type:char(36);not null;uniqueIndex:idx_user_library_paper" json:"library_id"`
	PaperID   uint64    `gorm:"not null;uniqueIndex:idx_user_library_paper" json:"paper_id"`
	UserNote  string    `gorm:"type:text" json:"user_note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name for PaperContent
func (PaperContent) TableName() string {
	return "paper_contents"
}

// TableName overrides the table name for LibraryPaperNote
func (LibraryPaperNote) TableName() string {
	return "library_paper_notes"
}
