package services

import (
	"errors"

	"github.com/papershelf/papershelf/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaperInput is the canonical, normalized paper payload. Wire-shape tolerance
// (id aliases, string-or-object authors) lives at the handler boundary; by the
// time it reaches here there is exactly one shape.
type PaperInput struct {
	SourceID      string
	Title         string
	Venue         string
	Year          int
	CitationCount int
	FieldsOfStudy []string
	Authors       []AuthorInput
	Abstract      string
	Bibtex        string
}

// AuthorInput is one normalized author entry.
type AuthorInput struct {
	Name        string
	Affiliation *string
}

// UpsertPaper writes paper metadata keyed by the external source id. An
// existing row is overwritten unconditionally: metadata is a cache of
// upstream truth, so last-writer-wins is the intended conflict policy.
func UpsertPaper(db *gorm.DB, in PaperInput) (*models.Paper, error) {
	paper := models.Paper{
		SourceID:      in.SourceID,
		Title:         in.Title,
		Venue:         in.Venue,
		Year:          in.Year,
		CitationCount: in.CitationCount,
		FieldsOfStudy: datatypes.NewJSONSlice(in.FieldsOfStudy),
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "s2_paper_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "venue", "year", "citation_count", "fields_of_study", "updated_at"}),
	}).Create(&paper).Error
	if err != nil {
		return nil, err
	}

	// Re-read to get the surrogate id on the conflict path (the insert id is
	// not populated when the upsert turned into an update).
	var out models.Paper
	if err := db.Where("s2_paper_id = ?", in.SourceID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// LinkAuthors upserts author rows by exact name and attaches them to the
// paper. Linking is idempotent: only the complement of the already-linked set
// is inserted, so a repeated call with the same list is a no-op. Callers in
// the save orchestration treat a returned error as recoverable and log it;
// richer metadata is best-effort, the core save is not.
func LinkAuthors(db *gorm.DB, paperID uint64, authors []AuthorInput) error {
	if len(authors) == 0 {
		return nil
	}

	var existing []uint64
	if err := db.Model(&models.AuthorPaper{}).
		Where("paper_id = ?", paperID).
		Pluck("author_id", &existing).Error; err != nil {
		return err
	}
	linked := make(map[uint64]struct{}, len(existing))
	for _, id := range existing {
		linked[id] = struct{}{}
	}

	for _, in := range authors {
		if in.Name == "" {
			continue
		}

		author, err := upsertAuthor(db, in)
		if err != nil {
			return err
		}

		if _, ok := linked[author.ID]; ok {
			continue
		}
		link := models.AuthorPaper{AuthorID: author.ID, PaperID: paperID}
		if err := db.Create(&link).Error; err != nil {
			// Concurrent save linked the same author first.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return err
		}
		linked[author.ID] = struct{}{}
	}
	return nil
}

// upsertAuthor finds an author by exact name, creating the row if absent.
// A newer non-null affiliation replaces the stored one (last-non-null-wins).
func upsertAuthor(db *gorm.DB, in AuthorInput) (*models.Author, error) {
	var author models.Author
	err := db.Where("name = ?", in.Name).First(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		author = models.Author{Name: in.Name, Affiliation: in.Affiliation}
		if cerr := db.Create(&author).Error; cerr != nil {
			return nil, cerr
		}
		return &author, nil
	}
	if err != nil {
		return nil, err
	}

	if in.Affiliation != nil && (author.Affiliation == nil || *author.Affiliation != *in.Affiliation) {
		if uerr := db.Model(&author).Update("affiliation", in.Affiliation).Error; uerr != nil {
			return nil, uerr
		}
		author.Affiliation = in.Affiliation
	}
	return &author, nil
}

// AuthorsForPapers batch-fetches authors for a set of papers, returned as a
// partial map keyed by paper id. A missing key means no linked authors.
func AuthorsForPapers(db *gorm.DB, paperIDs []uint64) (map[uint64][]models.Author, error) {
	result := make(map[uint64][]models.Author)
	if len(paperIDs) == 0 {
		return result, nil
	}

	var links []models.AuthorPaper
	if err := db.Where("paper_id IN ?", paperIDs).Find(&links).Error; err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return result, nil
	}

	authorIDs := make([]uint64, 0, len(links))
	for _, l := range links {
		authorIDs = append(authorIDs, l.AuthorID)
	}

	var authors []models.Author
	if err := db.Where("id IN ?", authorIDs).Find(&authors).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint64]models.Author, len(authors))
	for _, a := range authors {
		byID[a.ID] = a
	}

	for _, l := range links {
		if a, ok := byID[l.AuthorID]; ok {
			result[l.PaperID] = append(result[l.PaperID], a)
		}
	}
	return result, nil
}
