package services

import (
	"github.com/papershelf/papershelf/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveNote upserts the free-text note keyed by (user, library, paper).
func SaveNote(docDB *gorm.DB, userID, libraryID string, paperID uint64, text string) (*models.LibraryPaperNote, error) {
	note := models.LibraryPaperNote{
		UserID:    userID,
		LibraryID: libraryID,
		PaperID:   paperID,
		UserNote:  text,
	}

	err := docDB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "library_id"}, {Name: "paper_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_note", "updated_at"}),
	}).Create(&note).Error
	if err != nil {
		return nil, err
	}

	var out models.LibraryPaperNote
	if err := docDB.Where("user_id = ? AND library_id = ? AND paper_id = ?", userID, libraryID, paperID).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteNote removes exactly the (user, library, paper) note. Absence is not
// an error.
func DeleteNote(docDB *gorm.DB, userID, libraryID string, paperID uint64) error {
	return docDB.Where("user_id = ? AND library_id = ? AND paper_id = ?", userID, libraryID, paperID).
		Delete(&models.LibraryPaperNote{}).Error
}

// DeleteLibraryNotes removes every note the user holds for a library. Used
// when a library is deleted.
func DeleteLibraryNotes(docDB *gorm.DB, userID, libraryID string) error {
	return docDB.Where("user_id = ? AND library_id = ?", userID, libraryID).
		Delete(&models.LibraryPaperNote{}).Error
}

// GetNotesForPapers batch-reads the user's notes for a set of papers within
// one library. Partial map; a missing key reads as an empty note.
func GetNotesForPapers(docDB *gorm.DB, userID, libraryID string, paperIDs []uint64) (map[uint64]models.LibraryPaperNote, error) {
	result := make(map[uint64]models.LibraryPaperNote)
	if len(paperIDs) == 0 {
		return result, nil
	}

	var notes []models.LibraryPaperNote
	if err := docDB.Where("user_id = ? AND library_id = ? AND paper_id IN ?", userID, libraryID, paperIDs).
		Find(&notes).Error; err != nil {
		return nil, err
	}
	for _, n := range notes {
		result[n.PaperID] = n
	}
	return result, nil
}

// GetUserNotesForPapers batch-reads the user's notes for a set of papers
// across all libraries, grouped per paper.
func GetUserNotesForPapers(docDB *gorm.DB, userID string, paperIDs []uint64) (map[uint64][]models.LibraryPaperNote, error) {
	result := make(map[uint64][]models.LibraryPaperNote)
	if len(paperIDs) == 0 {
		return result, nil
	}

	var notes []models.LibraryPaperNote
	if err := docDB.Where("user_id = ? AND paper_id IN ?", userID, paperIDs).
		Order("library_id").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	for _, n := range notes {
		result[n.PaperID] = append(result[n.PaperID], n)
	}
	return result, nil
}
