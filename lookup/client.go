// Package lookup implements tdk.Lookuper for the external sources used to
// enrich taxa: Semantic Scholar and PubMed for literature attention, and the
// Wikidata SPARQL endpoint for the year a taxon was first described.
//
// Every client turns transport failures, non-2xx responses and undecodable
// bodies into errors; deciding what an error means for the table is left to
// the caller.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// DefaultUserAgent identifies requests to the public APIs.
const DefaultUserAgent = "Research Project - Taxon Analysis"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// StatusError is returned when a source answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// StatusCode returns the HTTP status of err if it is (or wraps) a
// StatusError, and 0 otherwise.
func StatusCode(err error) int {
	if se, ok := errors.Cause(err).(*StatusError); ok {
		return se.Code
	}
	return 0
}

// Client holds what the source clients share: the HTTP client and the user
// agent sent with each request.
type Client struct {
	HTTP      *http.Client
	UserAgent string
}

// NewClient returns a Client with DefaultTimeout and DefaultUserAgent.
func NewClient() Client {
	return Client{
		HTTP:      &http.Client{Timeout: DefaultTimeout},
		UserAgent: DefaultUserAgent,
	}
}

// maxErrorBody bounds how much of an error response ends up in a StatusError.
const maxErrorBody = 512

// getJSON issues a GET request for url and decodes the JSON response into v.
func (c Client) getJSON(ctx context.Context, url string, header http.Header, v interface{}) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req = req.WithContext(ctx)
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return errors.Wrap(err, "doing request")
	}
	defer func() {
		_, _ = io.Copy(ioutil.Discard, resp.Body)
		resp.Body.Close()
	}()
	if resp.StatusCode/100 != 2 {
		body, _ := ioutil.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}
