package tdk

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// FieldState tells whether an enrichment field has been filled.
type FieldState uint8

const (
	// Absent fields have never been looked up, or their last lookup failed
	// in a way that should be retried.
	Absent FieldState = iota
	// Known fields hold a value returned by a source.
	Known
	// Unavailable fields were looked up and the source could not provide a
	// value. They are not looked up again.
	Unavailable
)

// UnavailableText is how an Unavailable field is written to CSV.
const UnavailableText = "NA"

// Field is one enrichment value of a Taxon.
type Field struct {
	State FieldState
	Value int64
}

// KnownField returns a Known field holding v.
func KnownField(v int64) Field { return Field{State: Known, Value: v} }

// UnavailableField returns an Unavailable field.
func UnavailableField() Field { return Field{State: Unavailable} }

// Filled reports whether f needs no further lookup.
func (f Field) Filled() bool { return f.State != Absent }

// String returns the CSV form of f: empty when Absent, UnavailableText when
// Unavailable, and the decimal value otherwise.
func (f Field) String() string {
	switch f.State {
	case Known:
		return strconv.FormatInt(f.Value, 10)
	case Unavailable:
		return UnavailableText
	}
	return ""
}

// ParseField is the inverse of Field.String. It also accepts integral floats
// such as "1758.0", which is how tables with missing values have been written
// by other tools.
func ParseField(s string) (Field, error) {
	switch s {
	case "":
		return Field{}, nil
	case UnavailableText:
		return UnavailableField(), nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return KnownField(v), nil
	}
	fv, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(fv) {
		return Field{}, errors.Errorf("invalid field value '%s'", s)
	}
	if fv != math.Trunc(fv) {
		return Field{}, errors.Errorf("non-integral field value '%s'", s)
	}
	return KnownField(int64(fv)), nil
}

// Taxon is one row of the enriched table.
type Taxon struct {
	Name        string
	Degree      uint64
	AttentionSS Field
	AttentionPM Field
	YearOFD     Field
}

// Complete reports whether every enrichment field has been filled.
func (t *Taxon) Complete() bool {
	return t.AttentionSS.Filled() && t.AttentionPM.Filled() && t.YearOFD.Filled()
}

// Table is the enrichment table in processing order.
type Table []*Taxon

// TableHeader is the header line of an enriched table.
var TableHeader = []string{"taxon_name", "degree", "attention_ss", "attention_pm", "year_ofd"}

// NewTable returns a table with one unenriched row per degree entry.
func NewTable(entries []DegreeEntry) Table {
	t := make(Table, len(entries))
	for i, e := range entries {
		t[i] = &Taxon{Name: e.Name, Degree: e.Degree}
	}
	return t
}

// Complete returns the number of complete rows.
func (t Table) Complete() int {
	n := 0
	for _, tx := range t {
		if tx.Complete() {
			n++
		}
	}
	return n
}

// Write writes the table as CSV.
func (t Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TableHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	row := make([]string, len(TableHeader))
	for _, tx := range t {
		row[0] = tx.Name
		row[1] = strconv.FormatUint(tx.Degree, 10)
		row[2] = tx.AttentionSS.String()
		row[3] = tx.AttentionPM.String()
		row[4] = tx.YearOFD.String()
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "writing %s", tx.Name)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing")
}

// WriteFile writes the table to path, creating its directory.
func (t Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "making output directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating table file")
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return errors.Wrap(f.Close(), "closing table file")
}

// ReadTable reads an enriched table. A plain degree table is accepted too, in
// which case every enrichment field is Absent. Rows must have as many fields
// as the header.
func ReadTable(r io.Reader) (Table, error) {
	rr, err := NewRecordReader(r)
	if err != nil {
		return nil, err
	}
	rr.r.FieldsPerRecord = len(rr.Header())
	ni, err := rr.Column("taxon_name")
	if err != nil {
		return nil, err
	}
	di, err := rr.Column("degree")
	if err != nil {
		return nil, err
	}
	optional := func(name string) int {
		if i, err := rr.Column(name); err == nil {
			return i
		}
		return -1
	}
	ssi, pmi, yi := optional("attention_ss"), optional("attention_pm"), optional("year_ofd")

	t := make(Table, 0)
	for line := 2; ; line++ {
		row, err := rr.Read()
		if err == io.EOF {
			return t, nil
		} else if err != nil {
			return nil, err
		}
		tx := &Taxon{Name: row[ni]}
		if tx.Degree, err = strconv.ParseUint(row[di], 10, 64); err != nil {
			return nil, errors.Wrapf(err, "parsing degree on line %d", line)
		}
		for _, f := range []struct {
			idx int
			dst *Field
		}{{ssi, &tx.AttentionSS}, {pmi, &tx.AttentionPM}, {yi, &tx.YearOFD}} {
			if f.idx < 0 {
				continue
			}
			if *f.dst, err = ParseField(row[f.idx]); err != nil {
				return nil, errors.Wrapf(err, "line %d, column %s", line, rr.Header()[f.idx])
			}
		}
		t = append(t, tx)
	}
}

// ReadTableFile reads the table at path.
func ReadTableFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening table file")
	}
	defer f.Close()
	t, err := ReadTable(f)
	return t, errors.Wrapf(err, "reading %s", path)
}
