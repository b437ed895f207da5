package lookup

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
)

// SemanticScholarURL is the base URL of the public Semantic Scholar API.
const SemanticScholarURL = "https://api.semanticscholar.org"

// SemanticScholar counts the papers matching a taxon name.
type SemanticScholar struct {
	Client
	BaseURL string
}

// NewSemanticScholar returns a SemanticScholar client for the public API.
func NewSemanticScholar() *SemanticScholar {
	return &SemanticScholar{
		Client:  NewClient(),
		BaseURL: SemanticScholarURL,
	}
}

type paperSearch struct {
	Total int64 `json:"total"`
}

// Lookup returns the total number of search results for name. A response
// without a total counts as zero.
func (s *SemanticScholar) Lookup(ctx context.Context, name string) (int64, error) {
	q := url.Values{}
	q.Set("query", name)
	q.Set("limit", "1")
	q.Set("fields", "total")
	var res paperSearch
	err := s.getJSON(ctx, s.BaseURL+"/graph/v1/paper/search?"+q.Encode(), nil, &res)
	if err != nil {
		return 0, errors.Wrap(err, "searching semantic scholar")
	}
	if res.Total < 0 {
		return 0, errors.Errorf("negative total %d", res.Total)
	}
	return res.Total, nil
}
