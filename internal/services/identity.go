package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/papershelf/papershelf/internal/models"
	"github.com/papershelf/papershelf/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ResolveUser maps the opaque auth identity to the internal user record.
// It never creates a user: registration is a separate, explicit flow.
func ResolveUser(db *gorm.DB, authID string) (*models.User, error) {
	var user models.User
	err := db.Where("auth_id = ?", authID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(types.KindUserNotFound, "user not registered")
		}
		return nil, err
	}
	return &user, nil
}

// RegisterUser creates the internal user row for a confirmed auth identity.
// Idempotent: registering an already-known identity returns the existing row.
func RegisterUser(db *gorm.DB, authID, email, name string) (*models.User, error) {
	var user models.User
	err := db.Where("auth_id = ?", authID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		ID:     uuid.New().String(),
		AuthID: authID,
		Email:  email,
		Name:   name,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a registration race; the winner's row is the user.
			if ferr := db.Where("auth_id = ?", authID).First(&user).Error; ferr == nil {
				return &user, nil
			}
		}
		return nil, err
	}
	return &user, nil
}

// GetProfile returns the user's profile by internal id.
func GetProfile(db *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(types.KindUserNotFound, "user not found")
		}
		return nil, err
	}
	return &user, nil
}

// ProfileUpdate carries the mutable profile fields. Nil pointers are left
// unchanged.
type ProfileUpdate struct {
	Name              *string
	Affiliation       *string
	ResearchInterests []string
	PictureURL        *string
}

// UpdateProfile applies a partial profile update and returns the fresh row.
func UpdateProfile(db *gorm.DB, userID string, upd ProfileUpdate) (*models.User, error) {
	user, err := GetProfile(db, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if upd.Name != nil {
		updates["name"] = *upd.Name
	}
	if upd.Affiliation != nil {
		updates["affiliation"] = *upd.Affiliation
	}
	if upd.ResearchInterests != nil {
		updates["research_interests"] = datatypes.NewJSONSlice(upd.ResearchInterests)
	}
	if upd.PictureURL != nil {
		updates["picture_url"] = *upd.PictureURL
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := db.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return GetProfile(db, userID)
}
