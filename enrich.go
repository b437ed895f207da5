package tdk

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by a Lookuper when the source answered but
	// holds no value for the name.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited is returned by a Lookuper when the source refused the
	// request because of its rate limit.
	ErrRateLimited = errors.New("rate limited")

	// ErrStopped is returned by Enricher.Run when its context is done
	// before every row has been processed.
	ErrStopped = errors.New("enrichment stopped")
)

// Lookuper fetches a single number about a taxon from an external source.
// Implementations return ErrNotFound (possibly wrapped) when the source has no
// value for name.
type Lookuper interface {
	Lookup(ctx context.Context, name string) (int64, error)
}

// LookupFunc adapts a function to the Lookuper interface.
type LookupFunc func(ctx context.Context, name string) (int64, error)

// Lookup implements Lookuper.
func (f LookupFunc) Lookup(ctx context.Context, name string) (int64, error) {
	return f(ctx, name)
}

// Enricher fills the attention and year fields of a Table, one row at a time,
// and saves checkpoints as it goes.
type Enricher struct {
	SemanticScholar Lookuper
	PubMed          Lookuper
	Wikidata        Lookuper

	Checkpoints *Checkpoints

	// BatchSize is the number of rows between checkpoints. The last row
	// is always followed by one.
	BatchSize int

	// MaxRows bounds the number of rows looked up in one run. Zero means
	// no bound.
	MaxRows int

	// FieldPause is slept after each attention lookup, RowPause after each
	// row that needed lookups.
	FieldPause time.Duration
	RowPause   time.Duration

	// ZeroOnFailure records failed attention lookups as 0 rather than as
	// Unavailable.
	ZeroOnFailure bool

	Sleep func(time.Duration)
	Log   Logger
	Stats Statter
}

// NewEnricher returns an Enricher with the pacing used against the public
// APIs and a checkpoint every 50 rows.
func NewEnricher(ss, pm, wd Lookuper, cps *Checkpoints) *Enricher {
	return &Enricher{
		SemanticScholar: ss,
		PubMed:          pm,
		Wikidata:        wd,
		Checkpoints:     cps,
		BatchSize:       50,
		FieldPause:      500 * time.Millisecond,
		RowPause:        time.Second,
		Sleep:           time.Sleep,
		Log:             NopLogger{},
		Stats:           NopStatter{},
	}
}

// Result summarizes an enrichment run.
type Result struct {
	Processed   int
	Skipped     int
	Checkpoints int
	// Done is true when every row of the table has been visited.
	Done bool
}

// Load returns the table to enrich: the newest usable checkpoint if there is
// one, otherwise the table read from input. A checkpoint is only usable if it
// holds the taxa of input, in the same order.
func (e *Enricher) Load(input string) (Table, error) {
	e.Log.Printf("Loading taxon data from %s", input)
	in, err := ReadTableFile(input)
	if err != nil {
		return nil, errors.Wrap(err, "loading input table")
	}
	t, rec, err := e.Checkpoints.LatestMatching(in.sameTaxa)
	if err != nil {
		return nil, errors.Wrap(err, "finding latest checkpoint")
	}
	if t != nil {
		e.Log.Printf("Found checkpoint: %s (%d/%d rows complete)", rec.Name, t.Complete(), len(t))
		return t, nil
	}
	return in, nil
}

// sameTaxa returns an error unless other lists the same taxa as t in the
// same order.
func (t Table) sameTaxa(other Table) error {
	if len(other) != len(t) {
		return errors.Errorf("has %d rows, input has %d", len(other), len(t))
	}
	for i, tx := range t {
		if other[i].Name != tx.Name {
			return errors.Errorf("row %d is '%s', input has '%s'", i+1, other[i].Name, tx.Name)
		}
	}
	return nil
}

// Run enriches the incomplete rows of t in order. Complete rows are skipped
// without any lookup; for other rows each Absent field is looked up once.
// A checkpoint is saved after every BatchSize-th row and after the last row
// whenever the table changed since the previous checkpoint. ctx is only
// checked between rows: lookups run under their own context, so a row which
// has started is finished with real results. Once ctx is done Run saves a
// checkpoint at the current row and returns ErrStopped; if MaxRows is
// reached it does the same and returns a Result which is not Done.
func (e *Enricher) Run(ctx context.Context, t Table) (Result, error) {
	var res Result
	if e.BatchSize <= 0 {
		return res, errors.Errorf("invalid batch size %d", e.BatchSize)
	}
	total := len(t)
	e.Log.Printf("Processing %d taxa", total)
	dirty := false
	checkpoint := func(idx int) error {
		if !dirty {
			return nil
		}
		rec, err := e.Checkpoints.Save(idx+1, t)
		if err != nil {
			return errors.Wrapf(err, "saving checkpoint after row %d", idx+1)
		}
		dirty = false
		res.Checkpoints++
		e.Stats.Count(StatCheckpoints, 1, 1)
		e.Log.Printf("Saved checkpoint to %s", rec.Name)
		return nil
	}

	for idx, tx := range t {
		if err := ctx.Err(); err != nil {
			if cerr := checkpoint(idx - 1); cerr != nil {
				return res, cerr
			}
			return res, errors.Wrapf(ErrStopped, "before row %d: %v", idx+1, err)
		}
		looked := false
		if tx.Complete() {
			res.Skipped++
			e.Stats.Count(StatRowsSkipped, 1, 1)
		} else {
			e.Log.Printf("Processing %d/%d: %s", idx+1, total, tx.Name)
			e.enrichRow(context.Background(), tx)
			looked = true
			dirty = true
			res.Processed++
			e.Stats.Count(StatRows, 1, 1)
		}

		if (idx+1)%e.BatchSize == 0 || idx == total-1 {
			if err := checkpoint(idx); err != nil {
				return res, err
			}
		}
		if !looked {
			continue
		}
		if e.MaxRows > 0 && res.Processed >= e.MaxRows && idx < total-1 {
			if err := checkpoint(idx); err != nil {
				return res, err
			}
			e.Log.Printf("Stopping after %d rows looked up in this run", res.Processed)
			return res, nil
		}
		e.Sleep(e.RowPause)
	}
	res.Done = true
	e.Log.Printf("Enrichment complete: %d rows looked up, %d already complete", res.Processed, res.Skipped)
	return res, nil
}

func (e *Enricher) enrichRow(ctx context.Context, tx *Taxon) {
	if !tx.AttentionSS.Filled() {
		tx.AttentionSS = e.attention(ctx, e.SemanticScholar, "Semantic Scholar", tx.Name)
		e.Log.Printf("  Semantic Scholar attention: %s", tx.AttentionSS)
		e.Sleep(e.FieldPause)
	}
	if !tx.AttentionPM.Filled() {
		tx.AttentionPM = e.attention(ctx, e.PubMed, "PubMed", tx.Name)
		e.Log.Printf("  PubMed attention: %s", tx.AttentionPM)
		e.Sleep(e.FieldPause)
	}
	if !tx.YearOFD.Filled() {
		tx.YearOFD = e.year(ctx, tx.Name)
		e.Log.Printf("  Year of first description: %s", tx.YearOFD)
	}
}

// attention converts the outcome of an attention lookup into a field. Any
// failure is final for the row: the field becomes Unavailable, or 0 with
// ZeroOnFailure.
func (e *Enricher) attention(ctx context.Context, src Lookuper, label, name string) Field {
	e.Stats.Count(StatQueries, 1, 1)
	n, err := src.Lookup(ctx, name)
	if err == nil {
		return KnownField(n)
	}
	e.Stats.Count(StatQueryFailures, 1, 1)
	e.Log.Printf("Error with %s for %s: %v", label, name, err)
	if e.ZeroOnFailure {
		return KnownField(0)
	}
	return UnavailableField()
}

// year converts the outcome of a year lookup into a field. A source without a
// year for the name makes the field Unavailable; any other failure leaves it
// Absent so that the next run retries it.
func (e *Enricher) year(ctx context.Context, name string) Field {
	e.Stats.Count(StatQueries, 1, 1)
	y, err := e.Wikidata.Lookup(ctx, name)
	switch errors.Cause(err) {
	case nil:
		return KnownField(y)
	case ErrNotFound:
		e.Log.Debugf("  No year of first description for %s", name)
		return UnavailableField()
	case ErrRateLimited:
		e.Stats.Count(StatRateLimitWaits, 1, 1)
	}
	e.Stats.Count(StatQueryFailures, 1, 1)
	e.Log.Printf("Error with Wikidata for %s: %v", name, err)
	return Field{}
}

// Enrich loads the table (resuming from the latest checkpoint), runs the
// enrichment and, once every row has been visited, writes the table to
// output.
func (e *Enricher) Enrich(ctx context.Context, input, output string) (Result, error) {
	t, err := e.Load(input)
	if err != nil {
		return Result{}, err
	}
	res, err := e.Run(ctx, t)
	if err != nil {
		return res, err
	}
	if !res.Done {
		return res, nil
	}
	if err := t.WriteFile(output); err != nil {
		return res, errors.Wrap(err, "writing enriched table")
	}
	e.Log.Printf("Results saved to %s", output)
	return res, nil
}
