package lookup

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// PubMedURL is the base URL of the NCBI E-utilities.
const PubMedURL = "https://eutils.ncbi.nlm.nih.gov"

// PubMed counts the PubMed records matching a taxon name using esearch.
type PubMed struct {
	Client
	BaseURL string

	// APIKey is optional; NCBI allows a higher request rate with one.
	APIKey string
}

// NewPubMed returns a PubMed client for the public E-utilities.
func NewPubMed() *PubMed {
	return &PubMed{
		Client:  NewClient(),
		BaseURL: PubMedURL,
	}
}

type esearch struct {
	Result struct {
		Count string `json:"count"`
		Error string `json:"ERROR"`
	} `json:"esearchresult"`
}

// Lookup returns the esearch result count for name. A response without a
// count counts as zero.
func (p *PubMed) Lookup(ctx context.Context, name string) (int64, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("term", name)
	q.Set("retmode", "json")
	if p.APIKey != "" {
		q.Set("api_key", p.APIKey)
	}
	var res esearch
	err := p.getJSON(ctx, p.BaseURL+"/entrez/eutils/esearch.fcgi?"+q.Encode(), nil, &res)
	if err != nil {
		return 0, errors.Wrap(err, "searching pubmed")
	}
	if res.Result.Error != "" {
		return 0, errors.Errorf("esearch error: %s", res.Result.Error)
	}
	if res.Result.Count == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(res.Result.Count, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.Errorf("invalid esearch count '%s'", res.Result.Count)
	}
	return n, nil
}
