package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/papershelf/papershelf/internal/models"
	"github.com/papershelf/papershelf/internal/services"
	"github.com/papershelf/papershelf/internal/types"
	"github.com/papershelf/papershelf/internal/utils"
	"gorm.io/gorm"
)

// LibraryPaperHandler handles the paper routes scoped to one library
type LibraryPaperHandler struct {
	DB    *gorm.DB
	DocDB *gorm.DB
}

type savePaperRequest struct {
	paperRequest
	UserNote      string `json:"user_note"`
	ReadingStatus string `json:"reading_status"`
}

type readingStatusRequest struct {
	ReadingStatus string `json:"reading_status"`
}

type noteRequest struct {
	UserNote string `json:"user_note"`
}

// Save handles POST /api/libraries/:library_id/papers
// @Summary Save a paper to a library
// @Description Upserts paper metadata, authors and content, then links the paper to the library. A paper already in the library is a conflict.
// @Tags LibraryPapers
// @Accept json
// @Produce json
// @Param library_id path string true "Library ID"
// @Param body body savePaperRequest true "Paper payload"
// @Success 201 {object} services.LibraryPaperView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /libraries/{library_id}/papers [post]
func (h *LibraryPaperHandler) Save(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	var req savePaperRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid request body", fiber.StatusBadRequest, "savePaper")
	}
	in, err := req.normalize()
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	view, err := services.SavePaperToLibrary(h.DB, h.DocDB, user.ID, c.Params("library_id"),
		in, req.UserNote, req.ReadingStatus)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, view, fiber.StatusCreated)
}

// List handles GET /api/libraries/:library_id/papers
// @Summary List a library's papers
// @Description Returns the library's papers newest-first with authors, content and the caller's notes.
// @Tags LibraryPapers
// @Produce json
// @Param library_id path string true "Library ID"
// @Success 200 {array} services.LibraryPaperView
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /libraries/{library_id}/papers [get]
func (h *LibraryPaperHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	papers, err := services.ListLibraryPapers(h.DB, h.DocDB, user.ID, c.Params("library_id"))
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.Map{
		"papers": papers,
		"total":  len(papers),
	}, fiber.StatusOK)
}

// Remove handles DELETE /api/libraries/:library_id/papers/:paper_id
// @Summary Remove a paper from a library
// @Description Deletes the link and the caller's note; shared content is pruned when no library references the paper anymore.
// @Tags LibraryPapers
// @Produce json
// @Param library_id path string true "Library ID"
// @Param paper_id path integer true "Paper ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /libraries/{library_id}/papers/{paper_id} [delete]
func (h *LibraryPaperHandler) Remove(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	paperID, err := paperIDParam(c)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	if err := services.RemovePaperFromLibrary(h.DB, h.DocDB, user.ID, c.Params("library_id"), paperID); err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.DeletedResponse(c, 1)
}

// UpdateStatus handles PATCH /api/libraries/:library_id/papers/:paper_id/status
// @Summary Update a paper's reading status
// @Description Sets the reading status on the library's link; moving to read records the read time.
// @Tags LibraryPapers
// @Accept json
// @Produce json
// @Param library_id path string true "Library ID"
// @Param paper_id path integer true "Paper ID"
// @Param body body readingStatusRequest true "New reading status"
// @Success 200 {object} models.LibraryPaper
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /libraries/{library_id}/papers/{paper_id}/status [patch]
func (h *LibraryPaperHandler) UpdateStatus(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	paperID, err := paperIDParam(c)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	var req readingStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid request body", fiber.StatusBadRequest, "updateReadingStatus")
	}
	if !models.ValidReadingStatus(req.ReadingStatus) {
		return utils.DomainErrorResponse(c,
			types.NewError(types.KindInvalidInput, "reading_status must be unread, reading or read"))
	}

	link, err := services.UpdateReadingStatus(h.DB, user.ID, c.Params("library_id"), paperID, req.ReadingStatus)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, link, fiber.StatusOK)
}

// UpdateNote handles PATCH /api/libraries/:library_id/papers/:paper_id/note
// @Summary Update the caller's note on a paper
// @Description Upserts the caller's note for the paper within this library.
// @Tags LibraryPapers
// @Accept json
// @Produce json
// @Param library_id path string true "Library ID"
// @Param paper_id path integer true "Paper ID"
// @Param body body noteRequest true "Note text"
// @Success 200 {object} models.LibraryPaperNote
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /libraries/{library_id}/papers/{paper_id}/note [patch]
func (h *LibraryPaperHandler) UpdateNote(c *fiber.Ctx) error {
	user, err := currentUser(c, h.DB)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	paperID, err := paperIDParam(c)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}

	var req noteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid request body", fiber.StatusBadRequest, "updateNote")
	}

	note, err := services.UpdatePaperNote(h.DB, h.DocDB, user.ID, c.Params("library_id"), paperID, req.UserNote)
	if err != nil {
		return utils.DomainErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, note, fiber.StatusOK)
}
