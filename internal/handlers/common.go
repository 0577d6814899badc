package handlers

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/papershelf/papershelf/internal/models"
	"github.com/papershelf/papershelf/internal/services"
	"github.com/papershelf/papershelf/internal/types"
	"gorm.io/gorm"
)

// authIdentity extracts the auth provider's user id and email from the
// request context (set by the auth middleware after session validation).
func authIdentity(c *fiber.Ctx) (authID, email string, err error) {
	user, ok := c.Locals("authUser").(map[string]interface{})
	if !ok {
		return "", "", types.NewError(types.KindAccessDenied, "no authenticated user in request context")
	}
	authID, _ = user["id"].(string)
	if authID == "" {
		return "", "", types.NewError(types.KindAccessDenied, "no authenticated user in request context")
	}
	email, _ = user["email"].(string)
	return authID, email, nil
}

// currentUser resolves the authenticated session to the internal user row.
// Unregistered identities surface as user_not_found, never auto-created.
func currentUser(c *fiber.Ctx, db *gorm.DB) (*models.User, error) {
	authID, _, err := authIdentity(c)
	if err != nil {
		return nil, err
	}
	return services.ResolveUser(db, authID)
}

// paperIDParam parses the numeric paper id path parameter.
func paperIDParam(c *fiber.Ctx) (uint64, error) {
	raw := c.Params("paper_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, types.NewError(types.KindInvalidInput, "invalid paper id")
	}
	return id, nil
}

// paperRequest is the tolerant wire shape for a paper save. Clients send the
// external id as either s2_paper_id or paperId, and authors as plain strings
// or {name, affiliation} objects. Normalization to the single canonical shape
// happens here, never in the services.
type paperRequest struct {
	S2PaperID     string            `json:"s2_paper_id"`
	PaperIDAlias  string            `json:"paperId"`
	Title         string            `json:"title"`
	Venue         string            `json:"venue"`
	Year          int               `json:"year"`
	PublishedYear int               `json:"published_year"`
	CitationCount int               `json:"citation_count"`
	FieldsOfStudy []string          `json:"fields_of_study"`
	Authors       []json.RawMessage `json:"authors"`
	Abstract      string            `json:"abstract"`
	Bibtex        string            `json:"bibtex"`
}

// normalize folds the alias fields and mixed-shape authors into the canonical
// input, validating the required fields.
func (r *paperRequest) normalize() (services.PaperInput, error) {
	in := services.PaperInput{
		SourceID:      strings.TrimSpace(r.S2PaperID),
		Title:         strings.TrimSpace(r.Title),
		Venue:         r.Venue,
		Year:          r.Year,
		CitationCount: r.CitationCount,
		FieldsOfStudy: r.FieldsOfStudy,
		Abstract:      r.Abstract,
		Bibtex:        r.Bibtex,
	}
	if in.SourceID == "" {
		in.SourceID = strings.TrimSpace(r.PaperIDAlias)
	}
	if in.Year == 0 {
		in.Year = r.PublishedYear
	}

	if in.SourceID == "" {
		return in, types.NewError(types.KindInvalidInput, "s2_paper_id is required")
	}
	if in.Title == "" {
		return in, types.NewError(types.KindInvalidInput, "title is required")
	}

	for _, raw := range r.Authors {
		author, err := normalizeAuthor(raw)
		if err != nil {
			return in, err
		}
		if author.Name != "" {
			in.Authors = append(in.Authors, author)
		}
	}
	return in, nil
}

// normalizeAuthor accepts either a JSON string or a {name, affiliation}
// object for one author entry.
func normalizeAuthor(raw json.RawMessage) (services.AuthorInput, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return services.AuthorInput{Name: strings.TrimSpace(name)}, nil
	}

	var obj struct {
		Name        string  `json:"name"`
		Affiliation *string `json:"affiliation"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return services.AuthorInput{}, types.NewError(types.KindInvalidInput, "author entries must be strings or objects with a name")
	}
	return services.AuthorInput{
		Name:        strings.TrimSpace(obj.Name),
		Affiliation: obj.Affiliation,
	}, nil
}
