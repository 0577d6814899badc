package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/papershelf/papershelf/internal/scholar"
	"github.com/papershelf/papershelf/internal/utils"
	"github.com/sony/gobreaker"
)

// PaperHandler proxies paper discovery routes to the upstream scholarly API
type PaperHandler struct {
	Scholar *scholar.Client
}

// Search handles GET /api/papers/search
// @Summary Search papers by keyword
// @Tags Papers
// @Produce json
// @Param query query string true "Search keyword"
// @Param offset query integer false "Result offset"
// @Param limit query integer false "Result limit (default 20)"
// @Success 200 {object} scholar.SearchResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 429 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Router /papers/search [get]
func (h *PaperHandler) Search(c *fiber.Ctx) error {
	keyword := strings.TrimSpace(c.Query("query"))
	if keyword == "" {
		keyword = strings.TrimSpace(c.Query("q"))
	}
	if keyword == "" {
		return utils.ErrorResponse(c, "query is required", fiber.StatusBadRequest, "searchPapers")
	}

	result, err := h.Scholar.SearchPapers(c.Context(), keyword,
		c.QueryInt("offset", 0), c.QueryInt("limit", 20))
	if err != nil {
		return upstreamErrorResponse(c, err, "searchPapers")
	}
	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// Citations handles GET /api/papers/:paper_id/citations
// @Summary List papers citing a paper
// @Description Walks the upstream citation pages, then filters, sorts and pages the merged result.
// @Tags Papers
// @Produce json
// @Param paper_id path string true "External paper ID"
// @Param year_from query integer false "Minimum publication year"
// @Param year_to query integer false "Maximum publication year"
// @Param venue query string false "Venue substring filter"
// @Param min_citations query integer false "Minimum citation count"
// @Param sort_by query string false "citationCount (default), year or title"
// @Param order query string false "asc or desc (default desc)"
// @Param offset query integer false "Result offset"
// @Param limit query integer false "Result limit"
// @Success 200 {object} scholar.RelationResult
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 429 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Router /papers/{paper_id}/citations [get]
func (h *PaperHandler) Citations(c *fiber.Ctx) error {
	result, err := h.Scholar.Citations(c.Context(), c.Params("paper_id"), relationOptions(c))
	if err != nil {
		return upstreamErrorResponse(c, err, "paperCitations")
	}
	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// References handles GET /api/papers/:paper_id/references
// @Summary List papers a paper cites
// @Description Same pipeline as citations, over the reference edges.
// @Tags Papers
// @Produce json
// @Param paper_id path string true "External paper ID"
// @Param year_from query integer false "Minimum publication year"
// @Param year_to query integer false "Maximum publication year"
// @Param venue query string false "Venue substring filter"
// @Param min_citations query integer false "Minimum citation count"
// @Param sort_by query string false "citationCount (default), year or title"
// @Param order query string false "asc or desc (default desc)"
// @Param offset query integer false "Result offset"
// @Param limit query integer false "Result limit"
// @Success 200 {object} scholar.RelationResult
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 429 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Router /papers/{paper_id}/references [get]
func (h *PaperHandler) References(c *fiber.Ctx) error {
	result, err := h.Scholar.References(c.Context(), c.Params("paper_id"), relationOptions(c))
	if err != nil {
		return upstreamErrorResponse(c, err, "paperReferences")
	}
	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// relationOptions reads the filter/sort/page query parameters.
func relationOptions(c *fiber.Ctx) scholar.RelationOptions {
	return scholar.RelationOptions{
		YearFrom:     c.QueryInt("year_from", 0),
		YearTo:       c.QueryInt("year_to", 0),
		Venue:        c.Query("venue"),
		MinCitations: c.QueryInt("min_citations", 0),
		SortBy:       c.Query("sort_by", "citationCount"),
		SortAsc:      c.Query("order", "desc") == "asc",
		Offset:       c.QueryInt("offset", 0),
		Limit:        c.QueryInt("limit", 0),
	}
}

// upstreamErrorResponse maps upstream client failures to transport statuses.
func upstreamErrorResponse(c *fiber.Ctx, err error, errorType string) error {
	switch {
	case errors.Is(err, scholar.ErrNotFound):
		return utils.NotFoundResponse(c, "paper not found upstream")
	case errors.Is(err, scholar.ErrRateLimited):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusTooManyRequests, errorType)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return utils.ErrorResponse(c, "upstream temporarily unavailable", fiber.StatusServiceUnavailable, errorType)
	case errors.Is(err, scholar.ErrAuthError), errors.Is(err, scholar.ErrNetworkError), errors.Is(err, scholar.ErrInvalidResponse):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadGateway, errorType)
	default:
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadGateway, errorType)
	}
}
