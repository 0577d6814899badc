package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/papershelf/papershelf/internal/services"
	"github.com/papershelf/papershelf/internal/types"
	"github.com/papershelf/papershelf/internal/utils"
	"gorm.io/gorm"
)

// LibraryHandler handles library CRUD and collaborator routes
type LibraryHandler struct {
	DB    *gorm.DB
	DocDB *gorm.DB
}

type createLibraryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

type updateLibraryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

type collaboratorRequest struct {
	UserID string `json:"user_id"`
}

// Create handles POST /api/libraries
// @Summary Create a library
// @Description The caller becomes the library's creator.
// @Tags Libraries
// @Accept json
// @Produce json
// @Param body body createLibraryRequest true "Library attributes"
// @Success 201 {object} models.Library
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /libraries [post]
func (h *LibraryHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	var req createLibraryRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid request body", fiber.StatusBadRequest, "createLibrary")
	}

	library, err := services.CreateLibrary(h.DB, user.ID, req.Name, req.Description, req.IsPublic)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, library, fiber.StatusCreated)
}

// List handles GET /api/libraries
// @Summary List the user's libraries
// @Description Returns libraries the user owns or collaborates on.
// @Tags Libraries
// @Produce json
// @Success 200 {array} models.Library
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /libraries [get]
func (h *LibraryHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	libraries, err := services.ListUserLibraries(h.DB, user.ID)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.Map{
		"libraries": libraries,
		"total":     len(libraries),
	}, fiber.StatusOK)
}

// Get handles GET /api/libraries/:library_id
// @Summary Get one library
// @Description Members always see the library; non-members only if it is public.
// @Tags Libraries
// @Produce json
// @Param library_id path string true "Library ID"
// @Success 200 {object} models.Library
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /libraries/{library_id} [get]
func (h *LibraryHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	library, err := services.GetLibrary(h.DB, user.ID, c.Params("library_id"))
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, library, fiber.StatusOK)
}

// Update handles PATCH /api/libraries/:library_id
// @Summary Update a library
// @Description Partial update of name, description and visibility. Creator only.
// @Tags Libraries
// @Accept json
// @Produce json
// @Param library_id path string true "Library ID"
// @Param body body updateLibraryRequest true "Fields to update"
// @Success 200 {object} models.Library
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /libraries/{library_id} [patch]
func (h *LibraryHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	var req updateLibraryRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid request body", fiber.StatusBadRequest, "updateLibrary")
	}

	library, err := services.UpdateLibrary(h.DB, user.ID, c.Params("library_id"), services.LibraryUpdate{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, library, fiber.StatusOK)
}

// Delete handles DELETE /api/libraries/:library_id
// @Summary Delete a library
// @Description Removes the library, its memberships and paper links; shared paper content is pruned when no other library references it. Creator only.
// @Tags Libraries
// @Produce json
// @Param library_id path string true "Library ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /libraries/{library_id} [delete]
func (h *LibraryHandler) Delete(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	if err := services.DeleteLibrary(h.DB, h.DocDB, user.ID, c.Params("library_id")); err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.DeletedResponse(c, 1)
}

// AddCollaborator handles POST /api/libraries/:library_id/collaborators
// @Summary Add a collaborator
// @Description Grants another registered user write access. Creator only.
// @Tags Libraries
// @Accept json
// @Produce json
// @Param library_id path string true "Library ID"
// @Param body body collaboratorRequest true "Collaborator's user id"
// @Success 201 {object} models.LibraryMembership
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /libraries/{library_id}/collaborators [post]
func (h *LibraryHandler) AddCollaborator(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	var req collaboratorRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid request body", fiber.StatusBadRequest, "addCollaborator")
	}
	if req.UserID == "" {
		return utils.DomainErrorResponse(c,
			types.NewError(types.KindInvalidInput, "user_id is required"))
	}

	membership, err := services.AddCollaborator(h.DB, user.ID, c.Params("library_id"), req.UserID)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, membership, fiber.StatusCreated)
}

// RemoveCollaborator handles DELETE /api/libraries/:library_id/collaborators/:user_id
// @Summary Remove a collaborator
// @Description Revokes a collaborator's access. Creator only; the creator cannot be removed.
// @Tags Libraries
// @Produce json
// @Param library_id path string true "Library ID"
// @Param user_id path string true "Collaborator's user id"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /libraries/{library_id}/collaborators/{user_id} [delete]
func (h *LibraryHandler) RemoveCollaborator(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	if err := services.RemoveCollaborator(h.DB, user.ID, c.Params("library_id"), c.Params("user_id")); err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.DeletedResponse(c, 1)
}
