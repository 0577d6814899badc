package services

import (
	"errors"

	"github.com/papershelf/papershelf/internal/models"
	"github.com/papershelf/papershelf/internal/types"
	"gorm.io/gorm"
)

// Access is the result of an access check: the library row and the role the
// user holds on it. Role is empty only for public read access.
type Access struct {
	Library *models.Library
	Role    string
}

// VerifyAccess grants write-level access: the user must be the creator or a
// collaborator. Called fresh on every mutating request; access decisions are
// never cached because staleness is unacceptable.
func VerifyAccess(db *gorm.DB, libraryID, userID string) (*Access, error) {
	library, err := findLibrary(db, libraryID)
	if err != nil {
		return nil, err
	}

	if library.OwnerID == userID {
		return &Access{Library: library, Role: models.RoleCreator}, nil
	}

	var membership models.LibraryMembership
	err = db.Where("library_id = ? AND user_id = ?", libraryID, userID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(types.KindAccessDenied, "not a member of this library")
		}
		return nil, err
	}

	return &Access{Library: library, Role: membership.Role}, nil
}

// VerifyReadAccess is VerifyAccess plus the public-library short circuit: a
// public library is readable by anyone, with no role attached.
func VerifyReadAccess(db *gorm.DB, libraryID, userID string) (*Access, error) {
	access, err := VerifyAccess(db, libraryID, userID)
	if err == nil {
		return access, nil
	}
	if types.KindOf(err) != types.KindAccessDenied {
		return nil, err
	}

	library, ferr := findLibrary(db, libraryID)
	if ferr != nil {
		return nil, ferr
	}
	if library.IsPublic {
		return &Access{Library: library, Role: ""}, nil
	}
	return nil, err
}

func findLibrary(db *gorm.DB, libraryID string) (*models.Library, error) {
	var library models.Library
	err := db.First(&library, "id = ?", libraryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(types.KindLibraryNotFound, "library not found")
		}
		return nil, err
	}
	return &library, nil
}

// AccessibleLibraryIDs returns the ids of every library the user owns or
// collaborates on, owned first.
func AccessibleLibraryIDs(db *gorm.DB, userID string) ([]string, error) {
	var owned []string
	if err := db.Model(&models.Library{}).
		Where("owner_id = ?", userID).
		Order("created_at").
		Pluck("id", &owned).Error; err != nil {
		return nil, err
	}

	var collaborated []string
	if err := db.Model(&models.LibraryMembership{}).
		Where("user_id = ? AND role = ?", userID, models.RoleCollaborator).
		Order("created_at").
		Pluck("library_id", &collaborated).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(owned)+len(collaborated))
	ids := make([]string, 0, len(owned)+len(collaborated))
	for _, id := range append(owned, collaborated...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
