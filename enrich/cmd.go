// Package enrich holds the command which adds literature attention and year
// of first description to a degree table.
package enrich

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/globi-tools/tdk"
	"github.com/globi-tools/tdk/boltdb"
	"github.com/globi-tools/tdk/lookup"
	"github.com/globi-tools/tdk/termstat"
	"github.com/pkg/errors"
)

// ManifestName is the file name of the checkpoint manifest inside the
// checkpoint directory.
const ManifestName = "manifest.db"

// Main holds the options for enriching a degree table.
type Main struct {
	Input              string  `help:"Degree table (or enriched table) to enrich."`
	Output             string  `help:"Path of the enriched table to write."`
	CheckpointDir      string  `help:"Directory for checkpoints. Empty means 'checkpoints' next to the output."`
	BatchSize          int     `help:"Number of rows between checkpoints."`
	MaxRows            int     `help:"Stop after looking up this many rows. 0 means no limit."`
	FieldPause         float64 `help:"Seconds to pause after each attention lookup."`
	RowPause           float64 `help:"Seconds to pause after each looked up row."`
	RateLimitPause     float64 `help:"Seconds to wait after Wikidata answers 429."`
	Timeout            float64 `help:"Seconds before a single request is abandoned."`
	ZeroOnFailure      bool    `help:"Record failed attention lookups as 0 instead of NA."`
	NoManifest         bool    `help:"Do not keep a manifest of checkpoints; rely on file names only."`
	UserAgent          string  `help:"User-Agent sent to the APIs."`
	PubMedAPIKey       string  `help:"NCBI API key for a higher PubMed rate limit."`
	SemanticScholarURL string  `help:"Base URL of the Semantic Scholar API."`
	PubMedURL          string  `help:"Base URL of the NCBI E-utilities."`
	WikidataURL        string  `help:"Wikidata SPARQL endpoint."`
	LogPath            string  `help:"Log file to write to. Empty means stderr."`
	Verbose            bool    `help:"Enable verbose logging."`
	Progress           bool    `help:"Print running counts to stderr."`

	// Sleep replaces time.Sleep for pauses, if set.
	Sleep func(time.Duration) `flag:"-"`

	// Result holds the summary of the last Run.
	Result tdk.Result `flag:"-"`
}

// NewMain returns a Main with the paths and pacing used for the GloBI taxa.
func NewMain() *Main {
	return &Main{
		Input:              "data/final_01_degree.csv",
		Output:             "exports/final_01_attention.csv",
		BatchSize:          50,
		FieldPause:         0.5,
		RowPause:           1,
		RateLimitPause:     60,
		Timeout:            30,
		UserAgent:          lookup.DefaultUserAgent,
		SemanticScholarURL: lookup.SemanticScholarURL,
		PubMedURL:          lookup.PubMedURL,
		WikidataURL:        lookup.WikidataURL,
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Run enriches Input until done, writing Output at the end.
func (m *Main) Run() error {
	return m.RunContext(context.Background())
}

// RunContext is Run with a context; when ctx is done the run stops after the
// current row with a checkpoint.
func (m *Main) RunContext(ctx context.Context) error {
	if m.BatchSize <= 0 {
		return errors.Errorf("batch size must be positive, got %d", m.BatchSize)
	}
	log, closeLog, err := tdk.OpenLogger(m.LogPath, m.Verbose)
	if err != nil {
		return errors.Wrap(err, "setting up logging")
	}
	defer closeLog()
	var stats tdk.Statter = tdk.NopStatter{}
	if m.Progress {
		ts := termstat.NewCollector(os.Stderr, 2*time.Second)
		defer ts.Close()
		stats = ts
	}
	sleep := m.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	cpDir := m.CheckpointDir
	if cpDir == "" {
		cpDir = filepath.Join(filepath.Dir(m.Output), "checkpoints")
	}
	cps, err := tdk.NewCheckpoints(cpDir, nil)
	if err != nil {
		return errors.Wrap(err, "setting up checkpoints")
	}
	cps.Log = log
	if !m.NoManifest {
		manifest, err := boltdb.NewManifest(filepath.Join(cpDir, ManifestName))
		if err != nil {
			return errors.Wrap(err, "opening checkpoint manifest")
		}
		defer manifest.Close()
		cps.Manifest = manifest
	}

	client := lookup.Client{
		HTTP:      &http.Client{Timeout: seconds(m.Timeout)},
		UserAgent: m.UserAgent,
	}
	ss := &lookup.SemanticScholar{Client: client, BaseURL: m.SemanticScholarURL}
	pm := &lookup.PubMed{Client: client, BaseURL: m.PubMedURL, APIKey: m.PubMedAPIKey}
	wd := &lookup.Wikidata{
		Client:         client,
		Endpoint:       m.WikidataURL,
		RateLimitPause: seconds(m.RateLimitPause),
		Sleep:          sleep,
	}

	e := tdk.NewEnricher(ss, pm, wd, cps)
	e.BatchSize = m.BatchSize
	e.MaxRows = m.MaxRows
	e.FieldPause = seconds(m.FieldPause)
	e.RowPause = seconds(m.RowPause)
	e.ZeroOnFailure = m.ZeroOnFailure
	e.Sleep = sleep
	e.Log = log
	e.Stats = stats

	m.Result, err = e.Enrich(ctx, m.Input, m.Output)
	return errors.Wrap(err, "enriching")
}
