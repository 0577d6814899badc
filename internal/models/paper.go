package models

import (
	"time"

	"gorm.io/datatypes"
)

// Reading statuses attached to a (library, paper) pair.
const (
	StatusUnread  = "unread"
	StatusReading = "reading"
	StatusRead    = "read"
)

// ValidReadingStatus reports whether s is one of the accepted reading statuses.
func ValidReadingStatus(s string) bool {
	return s == StatusUnread || s == StatusReading || s == StatusRead
}

// Paper holds canonical paper metadata, treated as a cache of upstream truth.
// SourceID is the stable identifier from the scholarly-paper source and the
// only upsert key, so duplicate rows for the same upstream paper cannot exist.
type Paper struct {
	ID            uint64                      `gorm:"primaryKey;autoIncrement" json:"id"`
	SourceID      string                      `gorm:"column:s2_paper_id;size:128;uniqueIndex;not null" json:"s2_paper_id"`
	Title         string                      `gorm:"size:1024;not null" json:"title"`
	Venue         string                      `gorm:"size:512" json:"venue,omitempty"`
	Year          int                         `json:"published_year,omitempty"`
	CitationCount int                         `json:"citation_count"`
	FieldsOfStudy datatypes.JSONSlice[string] `json:"fields_of_study"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// Author identity key is the exact name; affiliation is last-non-null-wins.
type Author struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:512;not null;index" json:"name"`
	Affiliation *string   `gorm:"size:512" json:"affiliation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuthorPaper is the many-to-many edge between authors and papers.
type AuthorPaper struct {
	AuthorID uint64 `gorm:"primaryKey;autoIncrement:false" json:"author_id"`
	PaperID  uint64 `gorm:"primaryKey;autoIncrement:false" json:"paper_id"`
}

// LibraryPaper is the ownership edge between a library and a paper. The
// (library, paper) pair is a hard uniqueness constraint: a library's paper
// list must not contain the same paper twice.
type LibraryPaper struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement" json:"-"`
	LibraryID     string     `gorm:"type:char(36);not null;uniqueIndex:idx_library_paper" json:"library_id"`
	PaperID       uint64     `gorm:"not null;uniqueIndex:idx_library_paper;index" json:"paper_id"`
	AddedBy       string     `gorm:"type:char(36);not null" json:"added_by"`
	ReadingStatus string     `gorm:"size:16;not null;default:unread" json:"reading_status"`
	AddedAt       time.Time  `gorm:"not null;index" json:"added_at"`
	LastReadAt    *time.Time `json:"last_read_at,omitempty"`
}

// TableName overrides the table name for Paper
func (Paper) TableName() string {
	return "papers"
}

// TableName overrides the table name for Author
func (Author) TableName() string {
	return "authors"
}

// TableName overrides the table name for AuthorPaper
func (AuthorPaper) TableName() string {
	return "author_papers"
}

// TableName overrides the table name for LibraryPaper
func (LibraryPaper) TableName() string {
	return "library_papers"
}
