package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/papershelf/papershelf/internal/database"
	"github.com/papershelf/papershelf/internal/handlers"
	"github.com/papershelf/papershelf/internal/models"
	"github.com/papershelf/papershelf/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testApp wires the handlers onto a Fiber app with a stub auth middleware
// that injects the given identity, the way the session middleware would.
func testApp(t *testing.T, authID string) (*fiber.App, *gorm.DB, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	docDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateDocuments(docDB))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("authUser", map[string]interface{}{
			"id":    authID,
			"email": authID + "@example.com",
		})
		return c.Next()
	})

	userHandler := &handlers.UserHandler{DB: db, DocDB: docDB}
	libraryHandler := &handlers.LibraryHandler{DB: db, DocDB: docDB}
	libraryPaperHandler := &handlers.LibraryPaperHandler{DB: db, DocDB: docDB}

	app.Post("/api/user/register", userHandler.Register)
	app.Get("/api/user/profile", userHandler.GetProfile)
	app.Patch("/api/user/profile", userHandler.UpdateProfile)
	app.Get("/api/user/papers", userHandler.ListAllPapers)
	app.Post("/api/libraries", libraryHandler.Create)
	app.Get("/api/libraries", libraryHandler.List)
	app.Get("/api/libraries/:library_id", libraryHandler.Get)
	app.Patch("/api/libraries/:library_id", libraryHandler.Update)
	app.Delete("/api/libraries/:library_id", libraryHandler.Delete)
	app.Post("/api/libraries/:library_id/collaborators", libraryHandler.AddCollaborator)
	app.Delete("/api/libraries/:library_id/collaborators/:user_id", libraryHandler.RemoveCollaborator)
	app.Post("/api/libraries/:library_id/papers", libraryPaperHandler.Save)
	app.Get("/api/libraries/:library_id/papers", libraryPaperHandler.List)
	app.Delete("/api/libraries/:library_id/papers/:paper_id", libraryPaperHandler.Remove)
	app.Patch("/api/libraries/:library_id/papers/:paper_id/status", libraryPaperHandler.UpdateStatus)
	app.Patch("/api/libraries/:library_id/papers/:paper_id/note", libraryPaperHandler.UpdateNote)

	return app, db, docDB
}

func doJSON(t *testing.T, app *fiber.App, method, url string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func registerAndCreateLibrary(t *testing.T, app *fiber.App) (userID, libraryID string) {
	t.Helper()
	resp := doJSON(t, app, "POST", "/api/user/register", fiber.Map{"name": "Ada"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var user models.User
	decode(t, resp, &user)

	resp = doJSON(t, app, "POST", "/api/libraries", fiber.Map{"name": "ml papers"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var library models.Library
	decode(t, resp, &library)

	return user.ID, library.ID
}

func TestRegisterAndProfileFlow(t *testing.T) {
	app, _, _ := testApp(t, "auth-1")

	// Profile before registration is a 404
	resp := doJSON(t, app, "GET", "/api/user/profile", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/api/user/register", fiber.Map{"name": "Ada"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// Registration is idempotent
	resp = doJSON(t, app, "POST", "/api/user/register", fiber.Map{"name": "Ada"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/user/profile", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "PATCH", "/api/user/profile", fiber.Map{
		"affiliation":        "Analytical Engine Lab",
		"research_interests": []string{"computing"},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var user models.User
	decode(t, resp, &user)
	assert.Equal(t, "Analytical Engine Lab", user.Affiliation)
}

func TestSavePaperStatusCodes(t *testing.T) {
	app, _, _ := testApp(t, "auth-1")
	_, libraryID := registerAndCreateLibrary(t, app)

	payload := fiber.Map{
		"s2_paper_id": "s2-1",
		"title":       "Attention Is All You Need",
		"year":        2017,
		"authors":     []interface{}{"Ashish Vaswani", fiber.Map{"name": "Noam Shazeer"}},
		"abstract":    "An abstract.",
		"user_note":   "seminal",
	}

	resp := doJSON(t, app, "POST", "/api/libraries/"+libraryID+"/papers", payload)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var view services.LibraryPaperView
	decode(t, resp, &view)
	assert.Equal(t, "unread", view.ReadingStatus)
	assert.Len(t, view.Authors, 2, "string and object author shapes both land")

	// Same paper again: conflict
	resp = doJSON(t, app, "POST", "/api/libraries/"+libraryID+"/papers", payload)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// Missing title: bad request
	resp = doJSON(t, app, "POST", "/api/libraries/"+libraryID+"/papers", fiber.Map{"s2_paper_id": "s2-2"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// paperId alias works
	resp = doJSON(t, app, "POST", "/api/libraries/"+libraryID+"/papers", fiber.Map{
		"paperId": "s2-3",
		"title":   "BERT",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// Unknown library: 404
	resp = doJSON(t, app, "POST", "/api/libraries/no-such/papers", payload)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSaveToForeignLibraryForbidden(t *testing.T) {
	app, db, _ := testApp(t, "auth-1")
	registerAndCreateLibrary(t, app)

	// A different user's public library
	other, err := services.RegisterUser(db, "auth-2", "other@example.com", "Other")
	require.NoError(t, err)
	foreign, err := services.CreateLibrary(db, other.ID, "public shelf", "", true)
	require.NoError(t, err)

	resp := doJSON(t, app, "POST", "/api/libraries/"+foreign.ID+"/papers", fiber.Map{
		"s2_paper_id": "s2-1",
		"title":       "Attention",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// But reading it is fine
	resp = doJSON(t, app, "GET", "/api/libraries/"+foreign.ID+"/papers", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestReadingStatusRoute(t *testing.T) {
	app, _, _ := testApp(t, "auth-1")
	_, libraryID := registerAndCreateLibrary(t, app)

	resp := doJSON(t, app, "POST", "/api/libraries/"+libraryID+"/papers", fiber.Map{
		"s2_paper_id": "s2-1",
		"title":       "Attention",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var view services.LibraryPaperView
	decode(t, resp, &view)

	base := fmt.Sprintf("/api/libraries/%s/papers/%d", libraryID, view.Paper.ID)

	resp = doJSON(t, app, "PATCH", base+"/status", fiber.Map{"reading_status": "skimmed"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, "PATCH", base+"/status", fiber.Map{"reading_status": "read"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var link models.LibraryPaper
	decode(t, resp, &link)
	assert.NotNil(t, link.LastReadAt)

	// Bad paper id in the path
	resp = doJSON(t, app, "PATCH", "/api/libraries/"+libraryID+"/papers/abc/status", fiber.Map{"reading_status": "read"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Unknown link
	resp = doJSON(t, app, "PATCH", base+"999/status", fiber.Map{"reading_status": "read"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNoteRoute(t *testing.T) {
	app, _, _ := testApp(t, "auth-1")
	_, libraryID := registerAndCreateLibrary(t, app)

	resp := doJSON(t, app, "POST", "/api/libraries/"+libraryID+"/papers", fiber.Map{
		"s2_paper_id": "s2-1",
		"title":       "Attention",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var view services.LibraryPaperView
	decode(t, resp, &view)

	base := fmt.Sprintf("/api/libraries/%s/papers/%d", libraryID, view.Paper.ID)

	resp = doJSON(t, app, "PATCH", base+"/note", fiber.Map{"user_note": "revisit section 3"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var note models.LibraryPaperNote
	decode(t, resp, &note)
	assert.Equal(t, "revisit section 3", note.UserNote)

	// Note on a paper not in the library
	resp = doJSON(t, app, "PATCH", base+"999/note", fiber.Map{"user_note": "x"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRemovePaperRoute(t *testing.T) {
	app, _, docDB := testApp(t, "auth-1")
	_, libraryID := registerAndCreateLibrary(t, app)

	resp := doJSON(t, app, "POST", "/api/libraries/"+libraryID+"/papers", fiber.Map{
		"s2_paper_id": "s2-1",
		"title":       "Attention",
		"abstract":    "An abstract.",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var view services.LibraryPaperView
	decode(t, resp, &view)

	base := fmt.Sprintf("/api/libraries/%s/papers/%d", libraryID, view.Paper.ID)

	resp = doJSON(t, app, "DELETE", base, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var contents int64
	require.NoError(t, docDB.Model(&models.PaperContent{}).Count(&contents).Error)
	assert.Equal(t, int64(0), contents, "last reference removal prunes the content")

	resp = doJSON(t, app, "DELETE", base, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestLibraryRoutes(t *testing.T) {
	app, db, _ := testApp(t, "auth-1")
	userID, libraryID := registerAndCreateLibrary(t, app)

	resp := doJSON(t, app, "GET", "/api/libraries", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/libraries/"+libraryID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "PATCH", "/api/libraries/"+libraryID, fiber.Map{"is_public": true})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var library models.Library
	decode(t, resp, &library)
	assert.True(t, library.IsPublic)
	assert.Equal(t, userID, library.OwnerID)

	// Collaborator routes
	other, err := services.RegisterUser(db, "auth-2", "other@example.com", "Other")
	require.NoError(t, err)

	resp = doJSON(t, app, "POST", "/api/libraries/"+libraryID+"/collaborators", fiber.Map{"user_id": other.ID})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp = doJSON(t, app, "POST", "/api/libraries/"+libraryID+"/collaborators", fiber.Map{"user_id": other.ID})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	resp = doJSON(t, app, "POST", "/api/libraries/"+libraryID+"/collaborators", fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, "DELETE", "/api/libraries/"+libraryID+"/collaborators/"+other.ID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "DELETE", "/api/libraries/"+libraryID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, "GET", "/api/libraries/"+libraryID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUserPapersAggregation(t *testing.T) {
	app, _, _ := testApp(t, "auth-1")
	_, lib1 := registerAndCreateLibrary(t, app)

	resp := doJSON(t, app, "POST", "/api/libraries", fiber.Map{"name": "second shelf"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var lib2 models.Library
	decode(t, resp, &lib2)

	for _, libID := range []string{lib1, lib2.ID} {
		resp = doJSON(t, app, "POST", "/api/libraries/"+libID+"/papers", fiber.Map{
			"s2_paper_id": "s2-1",
			"title":       "Attention",
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp = doJSON(t, app, "GET", "/api/user/papers", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result struct {
		Papers []services.UserPaperView `json:"papers"`
		Total  int                      `json:"total"`
	}
	decode(t, resp, &result)
	require.Equal(t, 1, result.Total, "shared paper is merged into one entry")
	assert.Len(t, result.Papers[0].LibraryIDs, 2)
}
