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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CheckpointRecord describes a checkpoint file. Run numbers grow with each
// enrichment run sharing a checkpoint directory, and Row is the 1-based index
// of the last table row the snapshot covers, so ordering by (Run, Row) is
// write order.
type CheckpointRecord struct {
	Run  int    `json:"run"`
	Row  int    `json:"row"`
	Name string `json:"name"`
	Rows int    `json:"rows"`
	Sum  string `json:"sha256"`
}

// Manifest keeps track of the checkpoints written to a directory so that they
// can be verified before being trusted.
type Manifest interface {
	Register(rec CheckpointRecord) error
	Records() ([]CheckpointRecord, error)
}

const checkpointPrefix = "checkpoint_"

// CheckpointName returns the file name of the checkpoint covering row in the
// given run. Both numbers are zero padded so that lexical order of names is
// (run, row) order. Run 0 is reserved for checkpoints written by older tools
// as "checkpoint_<row>.csv".
func CheckpointName(run, row int) string {
	return fmt.Sprintf("%sr%04d_%09d.csv", checkpointPrefix, run, row)
}

// ParseCheckpointName extracts run and row from a checkpoint file name. It
// understands the unpadded "checkpoint_<row>.csv" form, as run 0.
func ParseCheckpointName(name string) (run, row int, ok bool) {
	if !strings.HasPrefix(name, checkpointPrefix) || !strings.HasSuffix(name, ".csv") {
		return 0, 0, false
	}
	s := strings.TrimSuffix(strings.TrimPrefix(name, checkpointPrefix), ".csv")
	if strings.HasPrefix(s, "r") {
		parts := strings.SplitN(s[1:], "_", 2)
		if len(parts) != 2 {
			return 0, 0, false
		}
		var err error
		if run, err = strconv.Atoi(parts[0]); err != nil || run < 1 {
			return 0, 0, false
		}
		s = parts[1]
	}
	row, err := strconv.Atoi(s)
	if err != nil || row < 0 {
		return 0, 0, false
	}
	return run, row, true
}

// Checkpoints stores snapshots of an enrichment table in a directory. Files
// are never overwritten. Each is written to a temporary file and renamed into
// place before it is registered with the Manifest, if there is one.
type Checkpoints struct {
	Dir      string
	Manifest Manifest
	Log      Logger

	run int
}

// NewCheckpoints returns Checkpoints for dir, creating it if needed. m may be
// nil, in which case only the directory listing is used to find checkpoints.
func NewCheckpoints(dir string, m Manifest) (*Checkpoints, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "making checkpoint directory")
	}
	return &Checkpoints{
		Dir:      dir,
		Manifest: m,
		Log:      NopLogger{},
	}, nil
}

type candidate struct {
	run, row int
	name     string
	rec      *CheckpointRecord
}

// candidates returns every known checkpoint, newest first.
func (c *Checkpoints) candidates() ([]candidate, error) {
	infos, err := ioutil.ReadDir(c.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading checkpoint directory")
	}
	byName := make(map[string]*candidate)
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if run, row, ok := ParseCheckpointName(info.Name()); ok {
			byName[info.Name()] = &candidate{run: run, row: row, name: info.Name()}
		}
	}
	if c.Manifest != nil {
		recs, err := c.Manifest.Records()
		if err != nil {
			return nil, errors.Wrap(err, "reading manifest")
		}
		for i := range recs {
			rec := recs[i]
			cand, ok := byName[rec.Name]
			if !ok {
				c.Log.Printf("checkpoint %s is in the manifest but missing from %s", rec.Name, c.Dir)
				continue
			}
			cand.rec = &rec
		}
	}
	ret := make([]candidate, 0, len(byName))
	for _, cand := range byName {
		ret = append(ret, *cand)
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].run != ret[j].run {
			return ret[i].run > ret[j].run
		}
		return ret[i].row > ret[j].row
	})
	return ret, nil
}

// List returns the names of all checkpoint files, oldest first.
func (c *Checkpoints) List() ([]string, error) {
	cands, err := c.candidates()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cands))
	for i, cand := range cands {
		names[len(cands)-1-i] = cand.name
	}
	return names, nil
}

// Latest loads the newest checkpoint which passes verification. Checkpoints
// registered in the manifest must match its row count and checksum; others
// must parse completely. Checkpoints failing verification are logged and
// skipped in favor of older ones. If no usable checkpoint exists, Latest
// returns a nil Table and no error.
func (c *Checkpoints) Latest() (Table, CheckpointRecord, error) {
	return c.LatestMatching(nil)
}

// LatestMatching is Latest with an additional check of each loaded table.
// A checkpoint for which check returns an error is skipped like one failing
// verification. A nil check accepts every table.
func (c *Checkpoints) LatestMatching(check func(Table) error) (Table, CheckpointRecord, error) {
	cands, err := c.candidates()
	if err != nil {
		return nil, CheckpointRecord{}, err
	}
	for _, cand := range cands {
		t, sum, err := c.load(cand.name)
		if err == nil && cand.rec != nil {
			if cand.rec.Rows != len(t) {
				err = errors.Errorf("has %d rows, manifest says %d", len(t), cand.rec.Rows)
			} else if cand.rec.Sum != sum {
				err = errors.Errorf("checksum %s does not match manifest %s", sum, cand.rec.Sum)
			}
		}
		if err == nil && check != nil {
			err = check(t)
		}
		if err != nil {
			c.Log.Printf("Skipping checkpoint %s: %v", cand.name, err)
			continue
		}
		return t, CheckpointRecord{Run: cand.run, Row: cand.row, Name: cand.name, Rows: len(t), Sum: sum}, nil
	}
	return nil, CheckpointRecord{}, nil
}

func (c *Checkpoints) load(name string) (Table, string, error) {
	f, err := os.Open(filepath.Join(c.Dir, name))
	if err != nil {
		return nil, "", errors.Wrap(err, "opening")
	}
	defer f.Close()
	h := sha256.New()
	t, err := ReadTable(io.TeeReader(f, h))
	if err != nil {
		return nil, "", err
	}
	// drain anything the csv reader did not consume so the sum covers the file
	if _, err := io.Copy(h, f); err != nil {
		return nil, "", errors.Wrap(err, "reading")
	}
	return t, hex.EncodeToString(h.Sum(nil)), nil
}

// Save writes a snapshot of t covering rows up to and including row
// (1-based) and registers it.
func (c *Checkpoints) Save(row int, t Table) (CheckpointRecord, error) {
	if c.run == 0 {
		cands, err := c.candidates()
		if err != nil {
			return CheckpointRecord{}, err
		}
		c.run = 1
		if len(cands) > 0 {
			c.run = cands[0].run + 1
		}
	}
	rec := CheckpointRecord{Run: c.run, Row: row, Name: CheckpointName(c.run, row), Rows: len(t)}
	final := filepath.Join(c.Dir, rec.Name)
	if _, err := os.Stat(final); err == nil {
		return rec, errors.Errorf("checkpoint %s already exists", final)
	}

	tmp, err := ioutil.TempFile(c.Dir, ".checkpoint-")
	if err != nil {
		return rec, errors.Wrap(err, "creating temporary checkpoint")
	}
	h := sha256.New()
	err = t.Write(io.MultiWriter(tmp, h))
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return rec, errors.Wrap(err, "writing temporary checkpoint")
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return rec, errors.Wrap(err, "renaming checkpoint into place")
	}
	rec.Sum = hex.EncodeToString(h.Sum(nil))
	if c.Manifest != nil {
		if err := c.Manifest.Register(rec); err != nil {
			return rec, errors.Wrap(err, "registering checkpoint")
		}
	}
	return rec, nil
}
