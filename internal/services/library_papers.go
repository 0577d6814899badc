package services

import (
	"errors"
	"log"
	"slices"
	"time"

	"github.com/papershelf/papershelf/internal/models"
	"github.com/papershelf/papershelf/internal/types"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// LibraryPaperView is one composed entry of a library's paper list.
type LibraryPaperView struct {
	Paper         models.Paper    `json:"paper"`
	Authors       []models.Author `json:"authors"`
	LibraryID     string          `json:"library_id"`
	AddedBy       string          `json:"added_by"`
	ReadingStatus string          `json:"reading_status"`
	AddedAt       time.Time       `json:"added_at"`
	LastReadAt    *time.Time      `json:"last_read_at,omitempty"`
	Abstract      string          `json:"abstract"`
	Bibtex        string          `json:"bibtex"`
	UserNote      string          `json:"user_note"`
}

// PaperNoteView is one library-scoped note attached to a deduplicated paper.
type PaperNoteView struct {
	LibraryID string `json:"library_id"`
	NoteText  string `json:"note_text"`
}

// UserPaperView is one deduplicated entry of the cross-library paper list.
type UserPaperView struct {
	Paper           models.Paper    `json:"paper"`
	Authors         []models.Author `json:"authors"`
	LibraryIDs      []string        `json:"library_ids"`
	ReadingStatuses []string        `json:"reading_statuses"`
	FirstAddedAt    time.Time       `json:"first_added_at"`
	LastReadAt      *time.Time      `json:"last_read_at,omitempty"`
	Abstract        string          `json:"abstract"`
	Bibtex          string          `json:"bibtex"`
	Notes           []PaperNoteView `json:"notes"`
}

// SavePaperToLibrary runs the cross-store save sequence: access check,
// metadata upsert, best-effort author linking and content upsert, then the
// uniqueness-guarded link row and the note upsert.
//
// The metadata/author/content steps are idempotent upserts keyed by the
// stable external id, so they are applied before the link row on purpose: if
// the link creation loses the uniqueness race the already-applied upserts are
// harmless and a retried save converges. There is no cross-store transaction.
func SavePaperToLibrary(db, docDB *gorm.DB, userID, libraryID string, in PaperInput, userNote, readingStatus string) (*LibraryPaperView, error) {
	if _, err := VerifyAccess(db, libraryID, userID); err != nil {
		return nil, err
	}

	paper, err := UpsertPaper(db, in)
	if err != nil {
		return nil, err
	}

	// Author metadata is best-effort: a failure here must not sink the save.
	if err := LinkAuthors(db, paper.ID, in.Authors); err != nil {
		log.Printf("save paper %s: author linking failed (continuing): %v", in.SourceID, err)
	}

	// Content is likewise refreshed best-effort; readers treat missing
	// content as empty, not as an error.
	if _, err := SaveContent(docDB, paper.ID, in.SourceID, in.Abstract, in.Bibtex); err != nil {
		log.Printf("save paper %s: content upsert failed (continuing): %v", in.SourceID, err)
	}

	if readingStatus == "" {
		readingStatus = models.StatusUnread
	}
	if !models.ValidReadingStatus(readingStatus) {
		return nil, types.NewError(types.KindInvalidInput, "invalid reading status")
	}

	link := models.LibraryPaper{
		LibraryID:     libraryID,
		PaperID:       paper.ID,
		AddedBy:       userID,
		ReadingStatus: readingStatus,
		AddedAt:       time.Now().UTC(),
	}
	if err := db.Create(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, types.NewError(types.KindDuplicate, "paper already in library")
		}
		return nil, err
	}

	if err := db.Model(&models.Library{}).Where("id = ?", libraryID).
		UpdateColumn("paper_count", gorm.Expr("paper_count + 1")).Error; err != nil {
		log.Printf("save paper %s: paper_count bump failed (continuing): %v", in.SourceID, err)
	}

	if _, err := SaveNote(docDB, userID, libraryID, paper.ID, userNote); err != nil {
		log.Printf("save paper %s: note upsert failed (continuing): %v", in.SourceID, err)
	}

	authors, err := AuthorsForPapers(db, []uint64{paper.ID})
	if err != nil {
		log.Printf("save paper %s: author fetch failed (continuing): %v", in.SourceID, err)
		authors = map[uint64][]models.Author{}
	}

	return &LibraryPaperView{
		Paper:         *paper,
		Authors:       authorsOrEmpty(authors[paper.ID]),
		LibraryID:     libraryID,
		AddedBy:       userID,
		ReadingStatus: link.ReadingStatus,
		AddedAt:       link.AddedAt,
		Abstract:      in.Abstract,
		Bibtex:        in.Bibtex,
		UserNote:      userNote,
	}, nil
}

// ListLibraryPapers returns the library's papers newest-first, zipped with
// content, notes and authors. A failed sub-lookup degrades that facet to
// empty for every entry instead of aborting the list.
func ListLibraryPapers(db, docDB *gorm.DB, userID, libraryID string) ([]LibraryPaperView, error) {
	if _, err := VerifyReadAccess(db, libraryID, userID); err != nil {
		return nil, err
	}

	q := db.Where("library_id = ?", libraryID).Order("added_at DESC")
	if db.Dialector.Name() == "mysql" {
		q = q.Clauses(hints.UseIndex("idx_library_paper"))
	}
	var links []models.LibraryPaper
	if err := q.Find(&links).Error; err != nil {
		return nil, err
	}

	paperIDs := make([]uint64, 0, len(links))
	for _, l := range links {
		paperIDs = append(paperIDs, l.PaperID)
	}

	var papers []models.Paper
	if err := db.Where("id IN ?", paperIDs).Find(&papers).Error; err != nil {
		return nil, err
	}
	paperByID := make(map[uint64]models.Paper, len(papers))
	for _, p := range papers {
		paperByID[p.ID] = p
	}

	contents, err := GetContentsForPapers(docDB, paperIDs)
	if err != nil {
		log.Printf("list library %s: content fetch failed (degrading to empty): %v", libraryID, err)
		contents = map[uint64]models.PaperContent{}
	}
	notes, err := GetNotesForPapers(docDB, userID, libraryID, paperIDs)
	if err != nil {
		log.Printf("list library %s: note fetch failed (degrading to empty): %v", libraryID, err)
		notes = map[uint64]models.LibraryPaperNote{}
	}
	authors, err := AuthorsForPapers(db, paperIDs)
	if err != nil {
		log.Printf("list library %s: author fetch failed (degrading to empty): %v", libraryID, err)
		authors = map[uint64][]models.Author{}
	}

	views := make([]LibraryPaperView, 0, len(links))
	for _, l := range links {
		paper, ok := paperByID[l.PaperID]
		if !ok {
			// Link to a vanished paper row; skip rather than fail the list.
			continue
		}
		views = append(views, LibraryPaperView{
			Paper:         paper,
			Authors:       authorsOrEmpty(authors[l.PaperID]),
			LibraryID:     l.LibraryID,
			AddedBy:       l.AddedBy,
			ReadingStatus: l.ReadingStatus,
			AddedAt:       l.AddedAt,
			LastReadAt:    l.LastReadAt,
			Abstract:      contents[l.PaperID].Abstract,
			Bibtex:        contents[l.PaperID].Bibtex,
			UserNote:      notes[l.PaperID].UserNote,
		})
	}
	return views, nil
}

// ListAllUserPapers returns every paper across the user's accessible
// libraries, deduplicated by paper id. The merge is a streaming reduce over
// the links in added-time order:
//
//   - library_ids: union, first-seen order
//   - reading_statuses: union, first-seen order, duplicates suppressed
//   - first_added_at: minimum
//   - last_read_at: maximum, null never wins over a real timestamp
func ListAllUserPapers(db, docDB *gorm.DB, userID string) ([]UserPaperView, error) {
	libraryIDs, err := AccessibleLibraryIDs(db, userID)
	if err != nil {
		return nil, err
	}
	if len(libraryIDs) == 0 {
		return []UserPaperView{}, nil
	}

	var links []models.LibraryPaper
	if err := db.Where("library_id IN ?", libraryIDs).
		Order("added_at ASC, id ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}

	type aggregate struct {
		libraryIDs      []string
		readingStatuses []string
		firstAddedAt    time.Time
		lastReadAt      *time.Time
	}
	order := make([]uint64, 0, len(links))
	agg := make(map[uint64]*aggregate, len(links))

	for _, l := range links {
		a, ok := agg[l.PaperID]
		if !ok {
			a = &aggregate{firstAddedAt: l.AddedAt}
			agg[l.PaperID] = a
			order = append(order, l.PaperID)
		}
		if !slices.Contains(a.libraryIDs, l.LibraryID) {
			a.libraryIDs = append(a.libraryIDs, l.LibraryID)
		}
		if !slices.Contains(a.readingStatuses, l.ReadingStatus) {
			a.readingStatuses = append(a.readingStatuses, l.ReadingStatus)
		}
		if l.AddedAt.Before(a.firstAddedAt) {
			a.firstAddedAt = l.AddedAt
		}
		if l.LastReadAt != nil && (a.lastReadAt == nil || l.LastReadAt.After(*a.lastReadAt)) {
			t := *l.LastReadAt
			a.lastReadAt = &t
		}
	}

	var papers []models.Paper
	if err := db.Where("id IN ?", order).Find(&papers).Error; err != nil {
		return nil, err
	}
	paperByID := make(map[uint64]models.Paper, len(papers))
	for _, p := range papers {
		paperByID[p.ID] = p
	}

	contents, err := GetContentsForPapers(docDB, order)
	if err != nil {
		log.Printf("list user papers %s: content fetch failed (degrading to empty): %v", userID, err)
		contents = map[uint64]models.PaperContent{}
	}
	notes, err := GetUserNotesForPapers(docDB, userID, order)
	if err != nil {
		log.Printf("list user papers %s: note fetch failed (degrading to empty): %v", userID, err)
		notes = map[uint64][]models.LibraryPaperNote{}
	}
	authors, err := AuthorsForPapers(db, order)
	if err != nil {
		log.Printf("list user papers %s: author fetch failed (degrading to empty): %v", userID, err)
		authors = map[uint64][]models.Author{}
	}

	views := make([]UserPaperView, 0, len(order))
	for _, paperID := range order {
		paper, ok := paperByID[paperID]
		if !ok {
			continue
		}
		a := agg[paperID]

		noteViews := make([]PaperNoteView, 0, len(notes[paperID]))
		for _, n := range notes[paperID] {
			noteViews = append(noteViews, PaperNoteView{LibraryID: n.LibraryID, NoteText: n.UserNote})
		}

		views = append(views, UserPaperView{
			Paper:           paper,
			Authors:         authorsOrEmpty(authors[paperID]),
			LibraryIDs:      a.libraryIDs,
			ReadingStatuses: a.readingStatuses,
			FirstAddedAt:    a.firstAddedAt,
			LastReadAt:      a.lastReadAt,
			Abstract:        contents[paperID].Abstract,
			Bibtex:          contents[paperID].Bibtex,
			Notes:           noteViews,
		})
	}
	return views, nil
}

// RemovePaperFromLibrary deletes the library-paper link, then deletes the
// shared content only if no other library anywhere still references the
// paper (approximate reference count, computed fresh), and always deletes
// the library-scoped note.
func RemovePaperFromLibrary(db, docDB *gorm.DB, userID, libraryID string, paperID uint64) error {
	if _, err := VerifyAccess(db, libraryID, userID); err != nil {
		return err
	}

	result := db.Where("library_id = ? AND paper_id = ?", libraryID, paperID).
		Delete(&models.LibraryPaper{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.NewError(types.KindNotFound, "paper not in library")
	}

	if err := db.Model(&models.Library{}).Where("id = ? AND paper_count > 0", libraryID).
		UpdateColumn("paper_count", gorm.Expr("paper_count - 1")).Error; err != nil {
		log.Printf("remove paper %d: paper_count decrement failed (continuing): %v", paperID, err)
	}

	var remaining int64
	if err := db.Model(&models.LibraryPaper{}).
		Where("paper_id = ?", paperID).
		Count(&remaining).Error; err != nil {
		return err
	}
	if remaining == 0 {
		if err := DeleteContent(docDB, paperID); err != nil {
			return types.WrapError(types.KindDeleteFailed, "content delete failed", err)
		}
	}

	// The note is scoped to this (user, library) pair and has no other
	// referents, so it goes regardless of the content decision.
	if err := DeleteNote(docDB, userID, libraryID, paperID); err != nil {
		return types.WrapError(types.KindDeleteFailed, "note delete failed", err)
	}
	return nil
}

// UpdateReadingStatus sets the reading status on a (library, paper) link.
// Write access is re-verified here the same way the save path does it.
func UpdateReadingStatus(db *gorm.DB, userID, libraryID string, paperID uint64, status string) (*models.LibraryPaper, error) {
	if !models.ValidReadingStatus(status) {
		return nil, types.NewError(types.KindInvalidInput, "invalid reading status")
	}
	if _, err := VerifyAccess(db, libraryID, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"reading_status": status}
	if status == models.StatusRead {
		updates["last_read_at"] = time.Now().UTC()
	}

	result := db.Model(&models.LibraryPaper{}).
		Where("library_id = ? AND paper_id = ?", libraryID, paperID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, types.NewError(types.KindNotFound, "paper not in library")
	}

	var link models.LibraryPaper
	if err := db.Where("library_id = ? AND paper_id = ?", libraryID, paperID).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// UpdatePaperNote upserts the user's note for a paper in a library. Write
// access is re-verified, same policy as UpdateReadingStatus.
func UpdatePaperNote(db, docDB *gorm.DB, userID, libraryID string, paperID uint64, text string) (*models.LibraryPaperNote, error) {
	if _, err := VerifyAccess(db, libraryID, userID); err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&models.LibraryPaper{}).
		Where("library_id = ? AND paper_id = ?", libraryID, paperID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, types.NewError(types.KindNotFound, "paper not in library")
	}

	return SaveNote(docDB, userID, libraryID, paperID, text)
}

func authorsOrEmpty(authors []models.Author) []models.Author {
	if authors == nil {
		return []models.Author{}
	}
	return authors
}
