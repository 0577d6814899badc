package services

import (
	"github.com/papershelf/papershelf/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveContent upserts the document-store content row for a paper. The upsert
// key is the external source id, not the internal paper id: the external id
// is the stable cross-reference, so two code paths registering the same
// upstream paper concurrently converge on a single row.
func SaveContent(docDB *gorm.DB, paperID uint64, sourceID, abstract, bibtex string) (*models.PaperContent, error) {
	content := models.PaperContent{
		PaperID:  paperID,
		SourceID: sourceID,
		Abstract: abstract,
		Bibtex:   bibtex,
	}

	err := docDB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "s2_paper_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"paper_id", "abstract", "bibtex", "updated_at"}),
	}).Create(&content).Error
	if err != nil {
		return nil, err
	}

	var out models.PaperContent
	if err := docDB.Where("s2_paper_id = ?", sourceID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// GetContentsForPapers batch-reads content for a set of papers. The map is
// partial: a missing key means "no content yet" (empty abstract/bibtex),
// never an error.
func GetContentsForPapers(docDB *gorm.DB, paperIDs []uint64) (map[uint64]models.PaperContent, error) {
	result := make(map[uint64]models.PaperContent)
	if len(paperIDs) == 0 {
		return result, nil
	}

	var contents []models.PaperContent
	if err := docDB.Where("paper_id IN ?", paperIDs).Find(&contents).Error; err != nil {
		return nil, err
	}
	for _, c := range contents {
		result[c.PaperID] = c
	}
	return result, nil
}

// DeleteContent removes the content row for a paper. Missing rows are not an
// error; the reference-counted delete in the orchestrator may race a
// concurrent removal.
func DeleteContent(docDB *gorm.DB, paperID uint64) error {
	return docDB.Where("paper_id = ?", paperID).Delete(&models.PaperContent{}).Error
}
