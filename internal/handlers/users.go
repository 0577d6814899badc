package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/papershelf/papershelf/internal/services"
	"github.com/papershelf/papershelf/internal/types"
	"github.com/papershelf/papershelf/internal/utils"
	"gorm.io/gorm"
)

// UserHandler handles user registration, profile and cross-library routes
type UserHandler struct {
	DB    *gorm.DB
	DocDB *gorm.DB
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type profileUpdateRequest struct {
	Name              *string  `json:"name"`
	Affiliation       *string  `json:"affiliation"`
	ResearchInterests []string `json:"research_interests"`
	PictureURL        *string  `json:"picture_url"`
}

// Register handles POST /api/user/register
// @Summary Register the authenticated identity
// @Description Create the internal user record for the current session. Idempotent.
// @Tags User
// @Accept json
// @Produce json
// @Param body body registerRequest false "Optional name/email overrides"
// @Success 201 {object} models.User
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /user/register [post]
func (h *UserHandler) Register(c *fiber.Ctx) error {
	authID, sessionEmail, err := authIdentity(c)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	var req registerRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.ErrorResponse(c, "invalid request body", fiber.StatusBadRequest, "register")
		}
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = sessionEmail
	}
	if email == "" {
		return utils.DomainErrorResponse(c,
			types.NewError(types.KindInvalidInput, "email is required"))
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = email
	}

	user, err := services.RegisterUser(h.DB, authID, email, name)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, user, fiber.StatusCreated)
}

// GetProfile handles GET /api/user/profile
// @Summary Get the current user's profile
// @Tags User
// @Produce json
// @Success 200 {object} models.User
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /user/profile [get]
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, user, fiber.StatusOK)
}

// UpdateProfile handles PATCH /api/user/profile
// @Summary Update the current user's profile
// @Description Partial update; omitted fields are left unchanged.
// @Tags User
// @Accept json
// @Produce json
// @Param body body profileUpdateRequest true "Fields to update"
// @Success 200 {object} models.User
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /user/profile [patch]
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	var req profileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid request body", fiber.StatusBadRequest, "updateProfile")
	}

	updated, err := services.UpdateProfile(h.DB, user.ID, services.ProfileUpdate{
		Name:              req.Name,
		Affiliation:       req.Affiliation,
		ResearchInterests: req.ResearchInterests,
		PictureURL:        req.PictureURL,
	})
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, updated, fiber.StatusOK)
}

// ListAllPapers handles GET /api/user/papers
// @Summary List every paper across the user's accessible libraries
// @Description Papers appearing in several libraries are merged into one entry.
// @Tags User
// @Produce json
// @Success 200 {array} services.UserPaperView
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /user/papers [get]
func (h *UserHandler) ListAllPapers(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	papers, err := services.ListAllUserPapers(h.DB, h.DocDB, user.ID)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.Map{
		"papers": papers,
		"total":  len(papers),
	}, fiber.StatusOK)
}
