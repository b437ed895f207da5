// Package degree holds the command which computes the degree table of the
// interaction records.
package degree

import (
	"os"
	"strings"
	"time"

	"github.com/globi-tools/tdk"
	"github.com/globi-tools/tdk/leveldb"
	"github.com/globi-tools/tdk/termstat"
	"github.com/pkg/errors"
)

// Main holds the options for computing a degree table.
type Main struct {
	Inputs      []string `help:"Interaction CSVs to count: files, directories of chunks, http(s) URLs or s3:// URLs. Read in order."`
	Output      string   `help:"Path of the degree table to write."`
	SourceField string   `help:"Column holding the source taxon name."`
	TargetField string   `help:"Column holding the target taxon name."`
	Split       bool     `help:"Split each input into chunks of chunk-size rows in temp-dir before counting."`
	ChunkSize   int      `help:"Rows per chunk when splitting."`
	TempDir     string   `help:"Directory for chunks created by split."`
	KeepChunks  bool     `help:"Keep the chunks created by split."`
	Cleanup     bool     `help:"Remove input chunk files once they have been counted."`
	TallyDir    string   `help:"Keep the running counts in a leveldb database in this directory instead of in memory."`
	LogPath     string   `help:"Log file to write to. Empty means stderr."`
	Verbose     bool     `help:"Enable verbose logging."`
	Progress    bool     `help:"Print running counts to stderr."`

	// Entries holds the table computed by the last Run.
	Entries []tdk.DegreeEntry `flag:"-"`
}

// NewMain returns a Main set up for the chunked GloBI dump.
func NewMain() *Main {
	return &Main{
		Inputs:      []string{"temp"},
		Output:      "exports/final_01_degree.csv",
		SourceField: tdk.CamelNameFields.Source,
		TargetField: tdk.CamelNameFields.Target,
		ChunkSize:   5000,
		TempDir:     "temp",
	}
}

// Run counts the inputs and writes the degree table.
func (m *Main) Run() (err error) {
	start := time.Now()
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

	srcs, err := tdk.Resolve(m.Inputs...)
	if err != nil {
		return errors.Wrap(err, "resolving inputs")
	}
	if len(srcs) == 0 {
		return errors.Errorf("no input files found in %v", m.Inputs)
	}

	var created []string
	if m.Split {
		splitter := tdk.NewSplitter(m.TempDir, m.ChunkSize)
		splitter.Log, splitter.Stats = log, stats
		if !m.KeepChunks {
			// created grows below; chunks of an earlier input are removed
			// even when a later one fails to split.
			defer func() {
				if cerr := tdk.CleanupChunks(created, log); cerr != nil && err == nil {
					err = cerr
				}
			}()
		}
		chunks := make([]tdk.OpenStringer, 0)
		for _, src := range srcs {
			paths, err := splitter.Split(src)
			created = append(created, paths...)
			if err != nil {
				return errors.Wrapf(err, "splitting %s", src)
			}
			for _, p := range paths {
				chunks = append(chunks, tdk.URLOpener(p))
			}
		}
		srcs = chunks
	}

	agg := tdk.NewAggregator(tdk.NameFields{Source: m.SourceField, Target: m.TargetField})
	agg.Log, agg.Stats = log, stats
	if m.TallyDir != "" {
		tally, err := leveldb.NewTally(m.TallyDir)
		if err != nil {
			return errors.Wrap(err, "opening tally")
		}
		defer tally.Close()
		agg.Tally = tally
	}
	m.Entries, err = agg.Aggregate(srcs)
	if err != nil {
		return errors.Wrap(err, "aggregating")
	}
	if err := tdk.WriteDegreeFile(m.Output, m.Entries); err != nil {
		return errors.Wrap(err, "writing degree table")
	}
	log.Printf("Results saved to %s (%d taxa, %s)", m.Output, len(m.Entries), time.Since(start))

	if m.Cleanup && !m.Split {
		paths := make([]string, 0, len(srcs))
		for _, src := range srcs {
			if u, ok := src.(tdk.URLOpener); ok && !strings.HasPrefix(string(u), "http") {
				paths = append(paths, string(u))
			}
		}
		if err := tdk.CleanupChunks(paths, log); err != nil {
			return errors.Wrap(err, "cleaning up chunks")
		}
	}
	return nil
}
