package scholar

// Paper is one paper record from the upstream scholarly-paper API.
type Paper struct {
	PaperID        string         `json:"paperId"`
	Title          string         `json:"title"`
	Abstract       string         `json:"abstract,omitempty"`
	Venue          string         `json:"venue,omitempty"`
	Year           int            `json:"year,omitempty"`
	CitationCount  int            `json:"citationCount"`
	FieldsOfStudy  []string       `json:"fieldsOfStudy,omitempty"`
	Authors        []Author       `json:"authors,omitempty"`
	CitationStyles CitationStyles `json:"citationStyles,omitempty"`
}

// Author is one upstream author entry.
type Author struct {
	AuthorID     string   `json:"authorId"`
	Name         string   `json:"name"`
	Affiliations []string `json:"affiliations,omitempty"`
}

// CitationStyles carries the formatted citation text the upstream provides.
type CitationStyles struct {
	Bibtex string `json:"bibtex,omitempty"`
}

// SearchResponse is one page of keyword search results.
type SearchResponse struct {
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Next   int     `json:"next,omitempty"`
	Data   []Paper `json:"data"`
}

// relationEntry is one edge of the citation graph as the upstream returns
// it: the related paper is nested under citingPaper or citedPaper depending
// on direction.
type relationEntry struct {
	CitingPaper *Paper `json:"citingPaper,omitempty"`
	CitedPaper  *Paper `json:"citedPaper,omitempty"`
}

// relationPage is one page of citation/reference results.
type relationPage struct {
	Offset int             `json:"offset"`
	Next   int             `json:"next,omitempty"`
	Data   []relationEntry `json:"data"`
}
