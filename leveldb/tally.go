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

// Package leveldb provides a tdk.Tally kept on disk with goleveldb, for
// interaction dumps with more distinct taxon names than fit in memory.
package leveldb

import (
	"encoding/binary"
	"os"
	"strings"

	"github.com/globi-tools/tdk"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var _ tdk.Tally = &Tally{}

// Tally maps each taxon name to its running count. Keys are the raw name
// bytes and values are big endian uint64 counts.
type Tally struct {
	dirname string
	db      *leveldb.DB
}

type errorList []error

func (errs errorList) Error() string {
	errstrings := make([]string, len(errs))
	for i, err := range errs {
		errstrings[i] = err.Error()
	}
	return strings.Join(errstrings, "; ")
}

// NewTally opens (or creates) a tally in dirname. Counts already stored there
// are kept, so an existing tally can be extended.
func NewTally(dirname string) (*Tally, error) {
	err := os.MkdirAll(dirname, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	db, err := leveldb.OpenFile(dirname, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname)
	}
	return &Tally{dirname: dirname, db: db}, nil
}

// Merge implements tdk.Tally. All counts of one call are written in a single
// batch.
func (t *Tally) Merge(counts map[string]uint64) error {
	batch := new(leveldb.Batch)
	for name, n := range counts {
		key := []byte(name)
		cur, err := t.get(key)
		if err != nil {
			return errors.Wrapf(err, "reading count of '%s'", name)
		}
		val := make([]byte, 8)
		binary.BigEndian.PutUint64(val, cur+n)
		batch.Put(key, val)
	}
	if err := t.db.Write(batch, &opt.WriteOptions{}); err != nil {
		return errors.Wrap(err, "writing batch")
	}
	return nil
}

func (t *Tally) get(key []byte) (uint64, error) {
	data, err := t.db.Get(key, &opt.ReadOptions{})
	if err == leveldb.ErrNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, errors.Errorf("corrupt count of %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// Count returns the current count of name.
func (t *Tally) Count(name string) (uint64, error) {
	return t.get([]byte(name))
}

// Entries implements tdk.Tally. The entries are collected in memory to be
// sorted.
func (t *Tally) Entries() ([]tdk.DegreeEntry, error) {
	iter := t.db.NewIterator(nil, &opt.ReadOptions{})
	defer iter.Release()
	ret := make([]tdk.DegreeEntry, 0)
	for iter.Next() {
		val := iter.Value()
		if len(val) != 8 {
			return nil, errors.Errorf("corrupt count of %d bytes for '%s'", len(val), iter.Key())
		}
		ret = append(ret, tdk.DegreeEntry{
			Name:   string(iter.Key()),
			Degree: binary.BigEndian.Uint64(val),
		})
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterating tally")
	}
	tdk.SortEntries(ret)
	return ret, nil
}

// Close closes the underlying database.
func (t *Tally) Close() error {
	return errors.Wrap(t.db.Close(), "closing leveldb")
}

// Destroy closes the tally and removes its directory.
func (t *Tally) Destroy() error {
	errs := make(errorList, 0)
	if err := t.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := os.RemoveAll(t.dirname); err != nil {
		errs = append(errs, errors.Wrap(err, "removing tally directory"))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
