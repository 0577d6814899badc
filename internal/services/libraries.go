package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/papershelf/papershelf/internal/models"
	"github.com/papershelf/papershelf/internal/types"
	"gorm.io/gorm"
)

// CreateLibrary creates a library and its creator membership in one
// transaction. Exactly one creator per library, set here and never changed.
func CreateLibrary(db *gorm.DB, ownerID, name, description string, isPublic bool) (*models.Library, error) {
	if name == "" {
		return nil, types.NewError(types.KindInvalidInput, "library name is required")
	}

	library := models.Library{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		IsPublic:    isPublic,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&library).Error; err != nil {
			return err
		}
		membership := models.LibraryMembership{
			LibraryID: library.ID,
			UserID:    ownerID,
			Role:      models.RoleCreator,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, err
	}
	return &library, nil
}

// GetLibrary returns a library the user may read (member or public).
func GetLibrary(db *gorm.DB, userID, libraryID string) (*models.Library, error) {
	access, err := VerifyReadAccess(db, libraryID, userID)
	if err != nil {
		return nil, err
	}
	return access.Library, nil
}

// ListUserLibraries returns every library the user owns or collaborates on.
func ListUserLibraries(db *gorm.DB, userID string) ([]models.Library, error) {
	ids, err := AccessibleLibraryIDs(db, userID)
	if err != nil {
		return nil, err
	}
	libraries := []models.Library{}
	if len(ids) == 0 {
		return libraries, nil
	}
	if err := db.Where("id IN ?", ids).Order("created_at").Find(&libraries).Error; err != nil {
		return nil, err
	}
	return libraries, nil
}

// LibraryUpdate carries the mutable library fields; nil means unchanged.
type LibraryUpdate struct {
	Name        *string
	Description *string
	IsPublic    *bool
}

// UpdateLibrary applies a partial update. Creator only.
func UpdateLibrary(db *gorm.DB, userID, libraryID string, upd LibraryUpdate) (*models.Library, error) {
	access, err := VerifyAccess(db, libraryID, userID)
	if err != nil {
		return nil, err
	}
	if access.Role != models.RoleCreator {
		return nil, types.NewError(types.KindAccessDenied, "only the creator can update a library")
	}

	updates := map[string]interface{}{}
	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, types.NewError(types.KindInvalidInput, "library name is required")
		}
		updates["name"] = *upd.Name
	}
	if upd.Description != nil {
		updates["description"] = *upd.Description
	}
	if upd.IsPublic != nil {
		updates["is_public"] = *upd.IsPublic
	}
	if len(updates) == 0 {
		return access.Library, nil
	}

	if err := db.Model(&models.Library{}).Where("id = ?", libraryID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return findLibrary(db, libraryID)
}

// DeleteLibrary removes the library, its memberships and its paper links,
// then prunes content rows that no remaining library references and the
// owner's notes for the library. Creator only.
func DeleteLibrary(db, docDB *gorm.DB, userID, libraryID string) error {
	access, err := VerifyAccess(db, libraryID, userID)
	if err != nil {
		return err
	}
	if access.Role != models.RoleCreator {
		return types.NewError(types.KindAccessDenied, "only the creator can delete a library")
	}

	var paperIDs []uint64
	if err := db.Model(&models.LibraryPaper{}).
		Where("library_id = ?", libraryID).
		Pluck("paper_id", &paperIDs).Error; err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("library_id = ?", libraryID).Delete(&models.LibraryPaper{}).Error; err != nil {
			return err
		}
		if err := tx.Where("library_id = ?", libraryID).Delete(&models.LibraryMembership{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", libraryID).Delete(&models.Library{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return types.NewError(types.KindDeleteFailed, "library delete affected no rows")
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Approximate refcount sweep over the papers that were in the library.
	for _, paperID := range paperIDs {
		var remaining int64
		if err := db.Model(&models.LibraryPaper{}).
			Where("paper_id = ?", paperID).
			Count(&remaining).Error; err != nil {
			log.Printf("delete library %s: refcount check for paper %d failed (continuing): %v", libraryID, paperID, err)
			continue
		}
		if remaining == 0 {
			if err := DeleteContent(docDB, paperID); err != nil {
				log.Printf("delete library %s: content prune for paper %d failed (continuing): %v", libraryID, paperID, err)
			}
		}
	}

	if err := DeleteLibraryNotes(docDB, userID, libraryID); err != nil {
		log.Printf("delete library %s: note prune failed (continuing): %v", libraryID, err)
	}
	return nil
}

// AddCollaborator grants collaborator access. Creator only; adding an
// existing member is a duplicate.
func AddCollaborator(db *gorm.DB, userID, libraryID, collaboratorID string) (*models.LibraryMembership, error) {
	access, err := VerifyAccess(db, libraryID, userID)
	if err != nil {
		return nil, err
	}
	if access.Role != models.RoleCreator {
		return nil, types.NewError(types.KindAccessDenied, "only the creator can add collaborators")
	}
	if collaboratorID == access.Library.OwnerID {
		return nil, types.NewError(types.KindDuplicate, "user already owns this library")
	}
	if _, err := GetProfile(db, collaboratorID); err != nil {
		return nil, err
	}

	membership := models.LibraryMembership{
		LibraryID: libraryID,
		UserID:    collaboratorID,
		Role:      models.RoleCollaborator,
	}
	if err := db.Create(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, types.NewError(types.KindDuplicate, "user is already a member")
		}
		return nil, err
	}
	return &membership, nil
}

// RemoveCollaborator revokes collaborator access. Creator only; the creator
// membership itself cannot be removed.
func RemoveCollaborator(db *gorm.DB, userID, libraryID, collaboratorID string) error {
	access, err := VerifyAccess(db, libraryID, userID)
	if err != nil {
		return err
	}
	if access.Role != models.RoleCreator {
		return types.NewError(types.KindAccessDenied, "only the creator can remove collaborators")
	}

	result := db.Where("library_id = ? AND user_id = ? AND role = ?",
		libraryID, collaboratorID, models.RoleCollaborator).
		Delete(&models.LibraryMembership{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.NewError(types.KindNotFound, "collaborator not found")
	}
	return nil
}
