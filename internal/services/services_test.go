package services_test

import (
	"testing"

	"github.com/papershelf/papershelf/internal/database"
	"github.com/papershelf/papershelf/internal/models"
	"github.com/papershelf/papershelf/internal/services"
	"github.com/papershelf/papershelf/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupStores creates two in-memory SQLite pools, one per store, mirroring
// the dual-pool production layout.
func setupStores(t *testing.T) (*gorm.DB, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "relational store open")
	require.NoError(t, database.AutoMigrate(db), "relational migrations")

	docDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "document store open")
	require.NoError(t, database.AutoMigrateDocuments(docDB), "document migrations")

	return db, docDB
}

func registerUser(t *testing.T, db *gorm.DB, authID, email string) *models.User {
	t.Helper()
	user, err := services.RegisterUser(db, authID, email, email)
	require.NoError(t, err)
	return user
}

func createLibrary(t *testing.T, db *gorm.DB, ownerID, name string, isPublic bool) *models.Library {
	t.Helper()
	library, err := services.CreateLibrary(db, ownerID, name, "", isPublic)
	require.NoError(t, err)
	return library
}

func paperInput(sourceID, title string) services.PaperInput {
	return services.PaperInput{
		SourceID: sourceID,
		Title:    title,
		Venue:    "NeurIPS",
		Year:     2023,
		Authors: []services.AuthorInput{
			{Name: "Ada Lovelace"},
			{Name: "Alan Turing"},
		},
		Abstract: "An abstract.",
		Bibtex:   "@article{x}",
	}
}

func TestRegisterUserIdempotent(t *testing.T) {
	db, _ := setupStores(t)

	first := registerUser(t, db, "auth-1", "ada@example.com")
	second := registerUser(t, db, "auth-1", "ada@example.com")
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestResolveUserUnregistered(t *testing.T) {
	db, _ := setupStores(t)

	_, err := services.ResolveUser(db, "nobody")
	assert.Equal(t, types.KindUserNotFound, types.KindOf(err))
}

func TestUpdateProfilePartial(t *testing.T) {
	db, _ := setupStores(t)
	user := registerUser(t, db, "auth-1", "ada@example.com")

	affiliation := "Analytical Engine Lab"
	updated, err := services.UpdateProfile(db, user.ID, services.ProfileUpdate{
		Affiliation:       &affiliation,
		ResearchInterests: []string{"computing", "mathematics"},
	})
	require.NoError(t, err)
	assert.Equal(t, affiliation, updated.Affiliation)
	assert.Equal(t, user.Name, updated.Name, "omitted fields stay unchanged")
	assert.Len(t, updated.ResearchInterests, 2)
}

func TestVerifyAccessRoles(t *testing.T) {
	db, _ := setupStores(t)
	owner := registerUser(t, db, "auth-owner", "owner@example.com")
	collab := registerUser(t, db, "auth-collab", "collab@example.com")
	outsider := registerUser(t, db, "auth-out", "out@example.com")
	library := createLibrary(t, db, owner.ID, "ml papers", false)

	_, err := services.AddCollaborator(db, owner.ID, library.ID, collab.ID)
	require.NoError(t, err)

	access, err := services.VerifyAccess(db, library.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCreator, access.Role)

	access, err = services.VerifyAccess(db, library.ID, collab.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCollaborator, access.Role)

	_, err = services.VerifyAccess(db, library.ID, outsider.ID)
	assert.Equal(t, types.KindAccessDenied, types.KindOf(err))

	_, err = services.VerifyAccess(db, "no-such-library", owner.ID)
	assert.Equal(t, types.KindLibraryNotFound, types.KindOf(err))
}

func TestPublicLibraryReadAccess(t *testing.T) {
	db, _ := setupStores(t)
	owner := registerUser(t, db, "auth-owner", "owner@example.com")
	outsider := registerUser(t, db, "auth-out", "out@example.com")
	public := createLibrary(t, db, owner.ID, "open shelf", true)
	private := createLibrary(t, db, owner.ID, "closed shelf", false)

	access, err := services.VerifyReadAccess(db, public.ID, outsider.ID)
	require.NoError(t, err)
	assert.Empty(t, access.Role, "public read carries no role")

	// Read access never grants write
	_, err = services.VerifyAccess(db, public.ID, outsider.ID)
	assert.Equal(t, types.KindAccessDenied, types.KindOf(err))

	_, err = services.VerifyReadAccess(db, private.ID, outsider.ID)
	assert.Equal(t, types.KindAccessDenied, types.KindOf(err))
}

func TestSavePaperDuplicate(t *testing.T) {
	db, docDB := setupStores(t)
	owner := registerUser(t, db, "auth-owner", "owner@example.com")
	library := createLibrary(t, db, owner.ID, "ml papers", false)

	view, err := services.SavePaperToLibrary(db, docDB, owner.ID, library.ID, paperInput("s2-1", "Attention"), "great read", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnread, view.ReadingStatus)
	assert.Equal(t, "great read", view.UserNote)

	_, err = services.SavePaperToLibrary(db, docDB, owner.ID, library.ID, paperInput("s2-1", "Attention"), "", "")
	assert.Equal(t, types.KindDuplicate, types.KindOf(err))

	var links int64
	require.NoError(t, db.Model(&models.LibraryPaper{}).Count(&links).Error)
	assert.Equal(t, int64(1), links, "duplicate save must not create a second link")

	var lib models.Library
	require.NoError(t, db.First(&lib, "id = ?", library.ID).Error)
	assert.Equal(t, int64(1), lib.PaperCount)
}

func TestSavePaperSharedMetadata(t *testing.T) {
	db, docDB := setupStores(t)
	owner := registerUser(t, db, "auth-owner", "owner@example.com")
	lib1 := createLibrary(t, db, owner.ID, "first", false)
	lib2 := createLibrary(t, db, owner.ID, "second", false)

	_, err := services.SavePaperToLibrary(db, docDB, owner.ID, lib1.ID, paperInput("s2-1", "Attention"), "", "")
	require.NoError(t, err)

	// Re-save into another library with fresher metadata: the shared row is
	// refreshed, not duplicated.
	in := paperInput("s2-1", "Attention Is All You Need")
	in.CitationCount = 90000
	_, err = services.SavePaperToLibrary(db, docDB, owner.ID, lib2.ID, in, "", "")
	require.NoError(t, err)

	var papers []models.Paper
	require.NoError(t, db.Find(&papers).Error)
	require.Len(t, papers, 1)
	assert.Equal(t, "Attention Is All You Need", papers[0].Title)
	assert.Equal(t, 90000, papers[0].CitationCount)

	var contents int64
	require.NoError(t, docDB.Model(&models.PaperContent{}).Count(&contents).Error)
	assert.Equal(t, int64(1), contents, "content is shared, one row per paper")
}

func TestSavePaperAccessDenied(t *testing.T) {
	db, docDB := setupStores(t)
	owner := registerUser(t, db, "auth-owner", "owner@example.com")
	outsider := registerUser(t, db, "auth-out", "out@example.com")
	public := createLibrary(t, db, owner.ID, "open shelf", true)

	_, err := services.SavePaperToLibrary(db, docDB, outsider.ID, public.ID, paperInput("s2-1", "Attention"), "", "")
	assert.Equal(t, types.KindAccessDenied, types.KindOf(err), "public visibility never grants write")
}

func TestLinkAuthorsIdempotent(t *testing.T) {
	db, _ := setupStores(t)

	paper, err := services.UpsertPaper(db, paperInput("s2-1", "Attention"))
	require.NoError(t, err)

	authors := []services.AuthorInput{{Name: "Ada Lovelace"}, {Name: "Alan Turing"}}
	require.NoError(t, services.LinkAuthors(db, paper.ID, authors))
	require.NoError(t, services.LinkAuthors(db, paper.ID, authors))

	var authorCount, linkCount int64
	require.NoError(t, db.Model(&models.Author{}).Count(&authorCount).Error)
	require.NoError(t, db.Model(&models.AuthorPaper{}).Count(&linkCount).Error)
	assert.Equal(t, int64(2), authorCount)
	assert.Equal(t, int64(2), linkCount)
}

func TestRemovePaperRefcountedContent(t *testing.T) {
	db, docDB := setupStores(t)
	owner := registerUser(t, db, "auth-owner", "owner@example.com")
	lib1 := createLibrary(t, db, owner.ID, "first", false)
	lib2 := createLibrary(t, db, owner.ID, "second", false)

	view, err := services.SavePaperToLibrary(db, docDB, owner.ID, lib1.ID, paperInput("s2-1", "Attention"), "note one", "")
	require.NoError(t, err)
	paperID := view.Paper.ID
	_, err = services.SavePaperToLibrary(db, docDB, owner.ID, lib2.ID, paperInput("s2-1", "Attention"), "note two", "")
	require.NoError(t, err)

	// First removal: another library still references the paper
	require.NoError(t, services.RemovePaperFromLibrary(db, docDB, owner.ID, lib1.ID, paperID))

	var contents int64
	require.NoError(t, docDB.Model(&models.PaperContent{}).Count(&contents).Error)
	assert.Equal(t, int64(1), contents, "content survives while a reference remains")

	var notes int64
	require.NoError(t, docDB.Model(&models.LibraryPaperNote{}).Count(&notes).Error)
	assert.Equal(t, int64(1), notes, "only the removed library's note goes")

	// Last removal: content is pruned
	require.NoError(t, services.RemovePaperFromLibrary(db, docDB, owner.ID, lib2.ID, paperID))
	require.NoError(t, docDB.Model(&models.PaperContent{}).Count(&contents).Error)
	assert.Equal(t, int64(0), contents)

	// Removing again reports not found
	err = services.RemovePaperFromLibrary(db, docDB, owner.ID, lib2.ID, paperID)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestNoteScopedPerLibrary(t *testing.T) {
	db, docDB := setupStores(t)
	owner := registerUser(t, db, "auth-owner", "owner@example.com")
	lib1 := createLibrary(t, db, owner.ID, "first", false)
	lib2 := createLibrary(t, db, owner.ID, "second", false)

	view, err := services.SavePaperToLibrary(db, docDB, owner.ID, lib1.ID, paperInput("s2-1", "Attention"), "note one", "")
	require.NoError(t, err)
	_, err = services.SavePaperToLibrary(db, docDB, owner.ID, lib2.ID, paperInput("s2-1", "Attention"), "note two", "")
	require.NoError(t, err)

	list1, err := services.ListLibraryPapers(db, docDB, owner.ID, lib1.ID)
	require.NoError(t, err)
	require.Len(t, list1, 1)
	assert.Equal(t, "note one", list1[0].UserNote)

	list2, err := services.ListLibraryPapers(db, docDB, owner.ID, lib2.ID)
	require.NoError(t, err)
	require.Len(t, list2, 1)
	assert.Equal(t, "note two", list2[0].UserNote)

	// Updating one note leaves the other untouched
	_, err = services.UpdatePaperNote(db, docDB, owner.ID, lib1.ID, view.Paper.ID, "revised")
	require.NoError(t, err)

	list2, err = services.ListLibraryPapers(db, docDB, owner.ID, lib2.ID)
	require.NoError(t, err)
	assert.Equal(t, "note two", list2[0].UserNote)
}

func TestUpdateReadingStatus(t *testing.T) {
	db, docDB := setupStores(t)
	owner := registerUser(t, db, "auth-owner", "owner@example.com")
	library := createLibrary(t, db, owner.ID, "ml papers", false)

	view, err := services.SavePaperToLibrary(db, docDB, owner.ID, library.ID, paperInput("s2-1", "Attention"), "", "")
	require.NoError(t, err)
	paperID := view.Paper.ID

	_, err = services.UpdateReadingStatus(db, owner.ID, library.ID, paperID, "skimmed")
	assert.Equal(t, types.KindInvalidInput, types.KindOf(err))

	link, err := services.UpdateReadingStatus(db, owner.ID, library.ID, paperID, models.StatusReading)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReading, link.ReadingStatus)
	assert.Nil(t, link.LastReadAt)

	link, err = services.UpdateReadingStatus(db, owner.ID, library.ID, paperID, models.StatusRead)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, link.ReadingStatus)
	require.NotNil(t, link.LastReadAt, "read status records the read time")

	_, err = services.UpdateReadingStatus(db, owner.ID, library.ID, paperID+100, models.StatusRead)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestListAllUserPapersMerge(t *testing.T) {
	db, docDB := setupStores(t)
	owner := registerUser(t, db, "auth-owner", "owner@example.com")
	lib1 := createLibrary(t, db, owner.ID, "first", false)
	lib2 := createLibrary(t, db, owner.ID, "second", false)

	view, err := services.SavePaperToLibrary(db, docDB, owner.ID, lib1.ID, paperInput("s2-1", "Attention"), "note one", "")
	require.NoError(t, err)
	paperID := view.Paper.ID

	_, err = services.SavePaperToLibrary(db, docDB, owner.ID, lib2.ID, paperInput("s2-1", "Attention"), "note two", "")
	require.NoError(t, err)
	_, err = services.SavePaperToLibrary(db, docDB, owner.ID, lib2.ID, paperInput("s2-2", "BERT"), "", "")
	require.NoError(t, err)

	// Mark the second library's copy read
	_, err = services.UpdateReadingStatus(db, owner.ID, lib2.ID, paperID, models.StatusRead)
	require.NoError(t, err)

	papers, err := services.ListAllUserPapers(db, docDB, owner.ID)
	require.NoError(t, err)
	require.Len(t, papers, 2, "the shared paper is deduplicated")

	var merged *services.UserPaperView
	for i := range papers {
		if papers[i].Paper.ID == paperID {
			merged = &papers[i]
		}
	}
	require.NotNil(t, merged)

	assert.ElementsMatch(t, []string{lib1.ID, lib2.ID}, merged.LibraryIDs)
	assert.ElementsMatch(t, []string{models.StatusUnread, models.StatusRead}, merged.ReadingStatuses)
	require.NotNil(t, merged.LastReadAt, "a real read time wins over null")
	assert.False(t, merged.FirstAddedAt.After(*merged.LastReadAt))
	require.Len(t, merged.Notes, 2, "one note per library")
}

func TestListLibraryPapersReadAccess(t *testing.T) {
	db, docDB := setupStores(t)
	owner := registerUser(t, db, "auth-owner", "owner@example.com")
	outsider := registerUser(t, db, "auth-out", "out@example.com")
	public := createLibrary(t, db, owner.ID, "open shelf", true)

	_, err := services.SavePaperToLibrary(db, docDB, owner.ID, public.ID, paperInput("s2-1", "Attention"), "owner note", "")
	require.NoError(t, err)

	papers, err := services.ListLibraryPapers(db, docDB, outsider.ID, public.ID)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Empty(t, papers[0].UserNote, "notes are per-user, the outsider sees none")
	assert.Equal(t, "An abstract.", papers[0].Abstract)
}

func TestLibraryLifecycle(t *testing.T) {
	db, docDB := setupStores(t)
	owner := registerUser(t, db, "auth-owner", "owner@example.com")
	collab := registerUser(t, db, "auth-collab", "collab@example.com")
	library := createLibrary(t, db, owner.ID, "ml papers", false)

	_, err := services.AddCollaborator(db, owner.ID, library.ID, collab.ID)
	require.NoError(t, err)

	// Collaborators cannot update or delete
	name := "renamed"
	_, err = services.UpdateLibrary(db, collab.ID, library.ID, services.LibraryUpdate{Name: &name})
	assert.Equal(t, types.KindAccessDenied, types.KindOf(err))
	err = services.DeleteLibrary(db, docDB, collab.ID, library.ID)
	assert.Equal(t, types.KindAccessDenied, types.KindOf(err))

	updated, err := services.UpdateLibrary(db, owner.ID, library.ID, services.LibraryUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	view, err := services.SavePaperToLibrary(db, docDB, owner.ID, library.ID, paperInput("s2-1", "Attention"), "note", "")
	require.NoError(t, err)

	require.NoError(t, services.DeleteLibrary(db, docDB, owner.ID, library.ID))

	_, err = services.GetLibrary(db, owner.ID, library.ID)
	assert.Equal(t, types.KindLibraryNotFound, types.KindOf(err))

	var links, memberships int64
	require.NoError(t, db.Model(&models.LibraryPaper{}).Count(&links).Error)
	require.NoError(t, db.Model(&models.LibraryMembership{}).Count(&memberships).Error)
	assert.Equal(t, int64(0), links)
	assert.Equal(t, int64(0), memberships)

	// No library references the paper anymore: content and notes are pruned
	var contents int64
	require.NoError(t, docDB.Model(&models.PaperContent{}).Where("paper_id = ?", view.Paper.ID).Count(&contents).Error)
	assert.Equal(t, int64(0), contents)
}

func TestCollaboratorManagement(t *testing.T) {
	db, _ := setupStores(t)
	owner := registerUser(t, db, "auth-owner", "owner@example.com")
	collab := registerUser(t, db, "auth-collab", "collab@example.com")
	library := createLibrary(t, db, owner.ID, "ml papers", false)

	_, err := services.AddCollaborator(db, owner.ID, library.ID, collab.ID)
	require.NoError(t, err)

	_, err = services.AddCollaborator(db, owner.ID, library.ID, collab.ID)
	assert.Equal(t, types.KindDuplicate, types.KindOf(err))

	_, err = services.AddCollaborator(db, owner.ID, library.ID, owner.ID)
	assert.Equal(t, types.KindDuplicate, types.KindOf(err), "the creator cannot be re-added")

	_, err = services.AddCollaborator(db, owner.ID, library.ID, "no-such-user")
	assert.Equal(t, types.KindUserNotFound, types.KindOf(err))

	// Collaborators cannot manage membership
	_, err = services.AddCollaborator(db, collab.ID, library.ID, owner.ID)
	assert.Equal(t, types.KindAccessDenied, types.KindOf(err))

	require.NoError(t, services.RemoveCollaborator(db, owner.ID, library.ID, collab.ID))
	err = services.RemoveCollaborator(db, owner.ID, library.ID, collab.ID)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	// The creator membership is not removable through this path
	err = services.RemoveCollaborator(db, owner.ID, library.ID, owner.ID)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}
