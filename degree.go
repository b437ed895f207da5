package tdk

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// DegreeEntry is the number of times a taxon name occurs as source or target
// of an interaction.
type DegreeEntry struct {
	Name   string
	Degree uint64
}

// DegreeHeader is the header line of a degree table.
var DegreeHeader = []string{"taxon_name", "degree"}

// Tally accumulates name counts across chunks.
type Tally interface {
	// Merge adds counts to the running totals.
	Merge(counts map[string]uint64) error

	// Entries returns every name with its total, sorted with SortEntries.
	Entries() ([]DegreeEntry, error)
}

// MapTally is an in-memory Tally.
type MapTally map[string]uint64

// NewMapTally returns an empty MapTally.
func NewMapTally() MapTally {
	return make(MapTally)
}

// Merge implements Tally.
func (m MapTally) Merge(counts map[string]uint64) error {
	for name, n := range counts {
		m[name] += n
	}
	return nil
}

// Entries implements Tally.
func (m MapTally) Entries() ([]DegreeEntry, error) {
	ret := make([]DegreeEntry, 0, len(m))
	for name, n := range m {
		ret = append(ret, DegreeEntry{Name: name, Degree: n})
	}
	SortEntries(ret)
	return ret, nil
}

// SortEntries orders entries by descending degree. Equal degrees are ordered
// by ascending name so the result does not depend on the Tally used or on the
// order in which chunks were read.
func SortEntries(entries []DegreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Degree != entries[j].Degree {
			return entries[i].Degree > entries[j].Degree
		}
		return entries[i].Name < entries[j].Name
	})
}

// Aggregator computes the degree table of a set of interaction files.
type Aggregator struct {
	Fields NameFields
	Tally  Tally

	Log   Logger
	Stats Statter
}

// NewAggregator returns an Aggregator counting the given name fields in an
// in-memory tally.
func NewAggregator(fields NameFields) *Aggregator {
	return &Aggregator{
		Fields: fields,
		Tally:  NewMapTally(),
		Log:    NopLogger{},
		Stats:  NopStatter{},
	}
}

// Aggregate reads each source in order, one at a time, and returns the
// degree of every distinct non-empty name found in the source or target
// column. Counts of a source are merged into the Tally once the source is
// fully read, so only one source's distinct names are held besides the tally.
func (a *Aggregator) Aggregate(srcs []OpenStringer) ([]DegreeEntry, error) {
	a.Log.Printf("Processing %d sources and counting species occurrences...", len(srcs))
	for i, src := range srcs {
		a.Log.Printf("Processing chunk %d/%d: %s", i+1, len(srcs), src)
		counts, err := a.count(src)
		if err != nil {
			return nil, errors.Wrapf(err, "counting %s", src)
		}
		if err := a.Tally.Merge(counts); err != nil {
			return nil, errors.Wrapf(err, "merging counts of %s", src)
		}
		a.Stats.Count(StatChunks, 1, 1)
	}
	a.Log.Printf("Counting occurrences...")
	entries, err := a.Tally.Entries()
	if err != nil {
		return nil, errors.Wrap(err, "getting tally entries")
	}
	a.Stats.Gauge(StatDistinctNames, float64(len(entries)), 1)
	return entries, nil
}

func (a *Aggregator) count(src OpenStringer) (map[string]uint64, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening")
	}
	defer rc.Close()
	rr, err := NewRecordReader(rc)
	if err != nil {
		return nil, err
	}
	si, err := rr.Column(a.Fields.Source)
	if err != nil {
		return nil, errors.Wrap(err, "finding source name column")
	}
	ti, err := rr.Column(a.Fields.Target)
	if err != nil {
		return nil, errors.Wrap(err, "finding target name column")
	}
	counts := make(map[string]uint64)
	var names, empty int64
	for {
		row, err := rr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		for _, i := range []int{si, ti} {
			if row[i] == "" {
				empty++
				continue
			}
			counts[row[i]]++
			names++
		}
	}
	a.Stats.Count(StatNames, names, 1)
	a.Stats.Count(StatEmptyNames, empty, 1)
	return counts, nil
}

// WriteDegreeTable writes entries as CSV with a taxon_name,degree header.
func WriteDegreeTable(w io.Writer, entries []DegreeEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DegreeHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Name, strconv.FormatUint(e.Degree, 10)}); err != nil {
			return errors.Wrapf(err, "writing %s", e.Name)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing")
}

// WriteDegreeFile writes entries to the file at path, creating its directory.
func WriteDegreeFile(path string, entries []DegreeEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "making output directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating degree file")
	}
	if err := WriteDegreeTable(f, entries); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return errors.Wrap(f.Close(), "closing degree file")
}

// ReadDegreeTable reads a table written by WriteDegreeTable. Only the
// taxon_name and degree columns are read; others are ignored.
func ReadDegreeTable(r io.Reader) ([]DegreeEntry, error) {
	rr, err := NewRecordReader(r)
	if err != nil {
		return nil, err
	}
	ni, err := rr.Column("taxon_name")
	if err != nil {
		return nil, err
	}
	di, err := rr.Column("degree")
	if err != nil {
		return nil, err
	}
	ret := make([]DegreeEntry, 0)
	for line := 2; ; line++ {
		row, err := rr.Read()
		if err == io.EOF {
			return ret, nil
		} else if err != nil {
			return nil, err
		}
		d, err := strconv.ParseUint(row[di], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing degree on line %d", line)
		}
		ret = append(ret, DegreeEntry{Name: row[ni], Degree: d})
	}
}
