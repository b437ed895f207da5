package lookup

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/globi-tools/tdk"
	"github.com/pkg/errors"
)

// WikidataURL is the public Wikidata SPARQL endpoint.
const WikidataURL = "https://query.wikidata.org/sparql"

// DefaultRateLimitPause is how long Wikidata waits after a 429 response.
const DefaultRateLimitPause = 60 * time.Second

// Wikidata finds the year a taxon was first described (its inception, P571).
type Wikidata struct {
	Client
	Endpoint string

	// RateLimitPause is slept, using Sleep, when the endpoint answers 429
	// before the lookup fails with tdk.ErrRateLimited. The pause is not
	// cut short by cancellation of the lookup context.
	RateLimitPause time.Duration
	Sleep          func(time.Duration)
}

// NewWikidata returns a Wikidata client for the public endpoint.
func NewWikidata() *Wikidata {
	return &Wikidata{
		Client:         NewClient(),
		Endpoint:       WikidataURL,
		RateLimitPause: DefaultRateLimitPause,
		Sleep:          time.Sleep,
	}
}

// yearQuery matches the taxon by scientific name (P225), or by English label
// when the item is a taxon (P31/P279* Q16521) or has a taxon rank (P105).
const yearQuery = `SELECT ?item ?itemLabel ?inception WHERE {
  {
    ?item wdt:P225 "%[1]s".
  } UNION {
    ?item rdfs:label "%[1]s"@en.
    ?item wdt:P31/wdt:P279* wd:Q16521.
  } UNION {
    ?item rdfs:label "%[1]s"@en.
    ?item wdt:P105 ?taxonRank.
  }
  OPTIONAL {
    ?item wdt:P571 ?inception.
  }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
}
LIMIT 1`

// YearQuery returns the SPARQL query used to look up name.
func YearQuery(name string) string {
	return strings.Replace(yearQuery, "%[1]s", sparqlEscape(name), -1)
}

var sparqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)

func sparqlEscape(s string) string {
	return sparqlEscaper.Replace(s)
}

type sparqlResults struct {
	Results struct {
		Bindings []map[string]struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

// Lookup returns the inception year of the first item matching name. It
// returns tdk.ErrNotFound when no item matches or the item has no parsable
// inception year.
func (w *Wikidata) Lookup(ctx context.Context, name string) (int64, error) {
	q := url.Values{}
	q.Set("query", YearQuery(name))
	q.Set("format", "json")
	header := http.Header{}
	header.Set("Accept", "application/json")
	var res sparqlResults
	err := w.getJSON(ctx, w.Endpoint+"?"+q.Encode(), header, &res)
	if StatusCode(err) == http.StatusTooManyRequests {
		if w.Sleep != nil && w.RateLimitPause > 0 {
			w.Sleep(w.RateLimitPause)
		}
		return 0, errors.Wrapf(tdk.ErrRateLimited, "querying wikidata: %v", err)
	} else if err != nil {
		return 0, errors.Wrap(err, "querying wikidata")
	}
	if len(res.Results.Bindings) == 0 {
		return 0, errors.Wrap(tdk.ErrNotFound, "no wikidata entity")
	}
	inception, ok := res.Results.Bindings[0]["inception"]
	if !ok {
		return 0, errors.Wrap(tdk.ErrNotFound, "no inception date")
	}
	year, ok := ParseYear(inception.Value)
	if !ok {
		return 0, errors.Wrapf(tdk.ErrNotFound, "unparsable inception date '%s'", inception.Value)
	}
	return year, nil
}

// ParseYear extracts the year from a date such as "1758", "1758-01-01" or
// "+1758-01-01T00:00:00Z". Dates before the common era are not parsed.
func ParseYear(date string) (int64, bool) {
	date = strings.TrimPrefix(date, "+")
	if i := strings.Index(date, "-"); i >= 0 {
		date = date[:i]
	}
	if date == "" {
		return 0, false
	}
	for _, r := range date {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	y, err := strconv.ParseInt(date, 10, 64)
	if err != nil {
		return 0, false
	}
	return y, true
}
