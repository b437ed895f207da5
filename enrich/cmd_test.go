package enrich_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/globi-tools/tdk"
	"github.com/globi-tools/tdk/enrich"
	"github.com/globi-tools/tdk/test"
	"github.com/pkg/errors"
)

type apis struct {
	mu      sync.Mutex
	queries map[string]int
}

func (a *apis) count(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queries[path]
}

func (a *apis) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.queries[r.URL.Path]++
	a.mu.Unlock()
	q := r.URL.Query()
	switch r.URL.Path {
	case "/graph/v1/paper/search":
		if q.Get("query") == "Mus musculus" {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"total":42}`))
	case "/entrez/eutils/esearch.fcgi":
		w.Write([]byte(`{"esearchresult":{"count":"7"}}`))
	case "/sparql":
		if strings.Contains(q.Get("query"), `"Mus musculus"`) {
			w.Write([]byte(`{"results":{"bindings":[]}}`))
			return
		}
		w.Write([]byte(`{"results":{"bindings":[{"inception":{"type":"literal","value":"+1758-01-01T00:00:00Z"}}]}}`))
	default:
		http.NotFound(w, r)
	}
}

func newMain(t *testing.T, url string) *enrich.Main {
	dir := test.MustTempDir(t)
	entries := []tdk.DegreeEntry{{Name: "Felis catus", Degree: 2}, {Name: "Mus musculus", Degree: 2}, {Name: "Rattus", Degree: 1}}
	m := enrich.NewMain()
	m.Input = filepath.Join(dir, "data", "final_01_degree.csv")
	test.ErrNil(t, tdk.WriteDegreeFile(m.Input, entries), "writing input")
	m.Output = filepath.Join(dir, "exports", "final_01_attention.csv")
	m.LogPath = filepath.Join(dir, "enrich.log")
	m.BatchSize = 2
	m.SemanticScholarURL = url
	m.PubMedURL = url
	m.WikidataURL = url + "/sparql"
	sleeper := &test.Sleeper{}
	m.Sleep = sleeper.Sleep
	return m
}

func TestRun(t *testing.T) {
	a := &apis{queries: make(map[string]int)}
	ts := httptest.NewServer(a)
	defer ts.Close()
	m := newMain(t, ts.URL)

	test.ErrNil(t, m.Run(), "Run")
	test.MustBe(t, tdk.Result{Processed: 3, Checkpoints: 2, Done: true}, m.Result)
	exp := "taxon_name,degree,attention_ss,attention_pm,year_ofd\n" +
		"Felis catus,2,42,7,1758\n" +
		"Mus musculus,2,NA,7,NA\n" +
		"Rattus,1,42,7,1758\n"
	test.MustBe(t, exp, test.MustReadFile(t, m.Output))

	cps, err := filepath.Glob(filepath.Join(filepath.Dir(m.Output), "checkpoints", "checkpoint_*.csv"))
	test.ErrNil(t, err, "globbing checkpoints")
	if len(cps) != 2 {
		t.Fatalf("expected 2 checkpoints, got %v", cps)
	}

	// a second run resumes from the last checkpoint and queries nothing
	ssQueries := a.count("/graph/v1/paper/search")
	test.ErrNil(t, m.Run(), "second Run")
	test.MustBe(t, tdk.Result{Skipped: 3, Done: true}, m.Result)
	test.MustBe(t, ssQueries, a.count("/graph/v1/paper/search"))
	test.MustBe(t, exp, test.MustReadFile(t, m.Output))
}

func TestRunZeroOnFailure(t *testing.T) {
	ts := httptest.NewServer(&apis{queries: make(map[string]int)})
	defer ts.Close()
	m := newMain(t, ts.URL)
	m.ZeroOnFailure = true
	m.NoManifest = true
	test.ErrNil(t, m.Run(), "Run")
	if out := test.MustReadFile(t, m.Output); !strings.Contains(out, "Mus musculus,2,0,7,NA\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRunCanceled(t *testing.T) {
	ts := httptest.NewServer(&apis{queries: make(map[string]int)})
	defer ts.Close()
	m := newMain(t, ts.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.RunContext(ctx)
	if errors.Cause(err) != tdk.ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	test.MustBe(t, 0, m.Result.Processed)
}

func TestRunInvalidBatchSize(t *testing.T) {
	m := enrich.NewMain()
	m.BatchSize = 0
	if err := m.Run(); err == nil {
		t.Fatalf("expected error for batch size 0")
	}
}

func TestRunInterruptedDuringRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := &apis{queries: make(map[string]int)}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/graph/v1/paper/search" {
			cancel()
		}
		a.ServeHTTP(w, r)
	}))
	defer ts.Close()
	m := newMain(t, ts.URL)

	err := m.RunContext(ctx)
	if errors.Cause(err) != tdk.ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	test.MustBe(t, 1, m.Result.Processed)

	// the resumed run completes the table without NA for the first taxon
	test.ErrNil(t, m.Run(), "resumed Run")
	if out := test.MustReadFile(t, m.Output); !strings.HasPrefix(out,
		"taxon_name,degree,attention_ss,attention_pm,year_ofd\nFelis catus,2,42,7,1758\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	test.MustBe(t, 3, a.count("/graph/v1/paper/search"), "one query per taxon")
}
