// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package tdk

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
)

// NameFields names the two columns of an interaction record which carry taxon
// names.
type NameFields struct {
	Source string
	Target string
}

var (
	// SnakeNameFields matches the column names of the GloBI interactions
	// export read as a whole.
	SnakeNameFields = NameFields{Source: "source_taxon_name", Target: "target_taxon_name"}

	// CamelNameFields matches the column names of the full GloBI
	// interactions dump which is usually processed in chunks.
	CamelNameFields = NameFields{Source: "sourceTaxonName", Target: "targetTaxonName"}
)

// RecordReader reads a CSV file with a header line and gives access to the
// fields of each row by column name.
type RecordReader struct {
	r      *csv.Reader
	header []string
	index  map[string]int
}

// NewRecordReader reads and validates the header line of r.
func NewRecordReader(r io.Reader) (*RecordReader, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty input, no header line")
	} else if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	header = append([]string(nil), header...)
	if err := validateHeader(header); err != nil {
		return nil, errors.Wrap(err, "validating header")
	}
	rr := &RecordReader{
		r:      cr,
		header: header,
		index:  make(map[string]int, len(header)),
	}
	for i, h := range header {
		rr.index[h] = i
	}
	return rr, nil
}

// Header returns the column names in file order.
func (rr *RecordReader) Header() []string {
	return rr.header
}

// Column returns the position of the named column.
func (rr *RecordReader) Column(name string) (int, error) {
	i, ok := rr.index[name]
	if !ok {
		return 0, errors.Errorf("column '%s' not in header %v", name, rr.header)
	}
	return i, nil
}

// Read returns the next row. The returned slice is reused by the next call.
// At the end of input it returns io.EOF.
func (rr *RecordReader) Read() ([]string, error) {
	row, err := rr.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	} else if err != nil {
		return nil, errors.Wrap(err, "reading row")
	}
	return row, nil
}

func validateHeader(header []string) error {
	fields := make(map[string]int)
	for i, h := range header {
		if h == "" {
			return errors.Errorf("header contains empty string at %d: %v", i, header)
		}
		if pos, exists := fields[h]; exists {
			return errors.Errorf("%s appeared at both %d and %d in header", h, pos, i)
		}
		fields[h] = i
	}
	return nil
}
