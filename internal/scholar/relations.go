package scholar

import (
	"context"
	"sort"
	"strings"
)

// RelationOptions controls the filter/sort/page pipeline applied to the
// citation graph after it is fetched from the upstream.
type RelationOptions struct {
	// Filters; zero values mean "no filter".
	YearFrom     int
	YearTo       int
	Venue        string // case-insensitive substring match
	MinCitations int

	// Sort field: one of "citationCount" (default), "year", "title".
	// Order is descending unless SortAsc is set.
	SortBy  string
	SortAsc bool

	// Paging applied after filtering and sorting.
	Offset int
	Limit  int
}

// RelationResult is the aggregated, filtered slice of the citation graph.
type RelationResult struct {
	PaperID string  `json:"paper_id"`
	Total   int     `json:"total"`
	Offset  int     `json:"offset"`
	Papers  []Paper `json:"papers"`
}

type pageFetch func(ctx context.Context, offset, limit int) (*relationPage, error)

// Citations returns papers citing paperID through the relation pipeline.
func (c *Client) Citations(ctx context.Context, paperID string, opts RelationOptions) (*RelationResult, error) {
	return c.aggregateRelations(ctx, paperID, opts, func(ctx context.Context, offset, limit int) (*relationPage, error) {
		return c.citationsPage(ctx, paperID, offset, limit)
	})
}

// References returns papers cited by paperID through the relation pipeline.
func (c *Client) References(ctx context.Context, paperID string, opts RelationOptions) (*RelationResult, error) {
	return c.aggregateRelations(ctx, paperID, opts, func(ctx context.Context, offset, limit int) (*relationPage, error) {
		return c.referencesPage(ctx, paperID, offset, limit)
	})
}

// aggregateRelations walks the upstream pages (bounded by relationFetchCap),
// flattens the nested edge entries, then filters, sorts and pages the result.
func (c *Client) aggregateRelations(ctx context.Context, paperID string, opts RelationOptions, fetch pageFetch) (*RelationResult, error) {
	var papers []Paper

	offset := 0
	for offset < relationFetchCap {
		page, err := fetch(ctx, offset, relationPageSize)
		if err != nil {
			return nil, err
		}

		for _, entry := range page.Data {
			switch {
			case entry.CitingPaper != nil:
				papers = append(papers, *entry.CitingPaper)
			case entry.CitedPaper != nil:
				papers = append(papers, *entry.CitedPaper)
			}
		}

		if page.Next == 0 || len(page.Data) == 0 {
			break
		}
		offset = page.Next
	}

	filtered := filterRelations(papers, opts)
	sortRelations(filtered, opts)

	total := len(filtered)
	start := opts.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	return &RelationResult{
		PaperID: paperID,
		Total:   total,
		Offset:  start,
		Papers:  filtered[start:end],
	}, nil
}

func filterRelations(papers []Paper, opts RelationOptions) []Paper {
	out := make([]Paper, 0, len(papers))
	venue := strings.ToLower(opts.Venue)
	for _, p := range papers {
		if opts.YearFrom != 0 && p.Year < opts.YearFrom {
			continue
		}
		if opts.YearTo != 0 && p.Year > opts.YearTo {
			continue
		}
		if venue != "" && !strings.Contains(strings.ToLower(p.Venue), venue) {
			continue
		}
		if p.CitationCount < opts.MinCitations {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sortRelations(papers []Paper, opts RelationOptions) {
	less := func(a, b Paper) bool { return a.CitationCount < b.CitationCount }
	switch opts.SortBy {
	case "year":
		less = func(a, b Paper) bool { return a.Year < b.Year }
	case "title":
		less = func(a, b Paper) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	}

	sort.SliceStable(papers, func(i, j int) bool {
		if opts.SortAsc {
			return less(papers[i], papers[j])
		}
		return less(papers[j], papers[i])
	})
}
