package helpers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/papershelf/papershelf/internal/models"
	"gorm.io/gorm"
)

// CreateTestUser creates a registered user row
func CreateTestUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := models.User{
		ID:     uuid.New().String(),
		AuthID: uuid.New().String(),
		Name:   name,
		Email:  email,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return &user
}

// CreateTestLibrary creates a library with its creator membership
func CreateTestLibrary(t *testing.T, db *gorm.DB, ownerID, name string, isPublic bool) *models.Library {
	t.Helper()
	library := models.Library{
		ID:       uuid.New().String(),
		OwnerID:  ownerID,
		Name:     name,
		IsPublic: isPublic,
	}
	if err := db.Create(&library).Error; err != nil {
		t.Fatalf("Failed to create library: %v", err)
	}
	membership := models.LibraryMembership{
		LibraryID: library.ID,
		UserID:    ownerID,
		Role:      models.RoleCreator,
	}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("Failed to create creator membership: %v", err)
	}
	return &library
}

// CreateTestPaper creates a paper metadata row keyed by sourceID
func CreateTestPaper(t *testing.T, db *gorm.DB, sourceID, title string) *models.Paper {
	t.Helper()
	paper := models.Paper{
		SourceID: sourceID,
		Title:    title,
	}
	if err := db.Create(&paper).Error; err != nil {
		t.Fatalf("Failed to create paper: %v", err)
	}
	return &paper
}

// LinkTestPaper links an existing paper into a library
func LinkTestPaper(t *testing.T, db *gorm.DB, libraryID string, paperID uint64, addedBy, status string) *models.LibraryPaper {
	t.Helper()
	link := models.LibraryPaper{
		LibraryID:     libraryID,
		PaperID:       paperID,
		AddedBy:       addedBy,
		ReadingStatus: status,
		AddedAt:       time.Now().UTC(),
	}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("Failed to link paper: %v", err)
	}
	return &link
}
