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
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Splitter cuts a large CSV source into chunk files of at most ChunkSize data
// rows each. Every chunk repeats the header line of the source.
type Splitter struct {
	Dir       string
	ChunkSize int

	Log   Logger
	Stats Statter
}

// NewSplitter returns a Splitter writing chunks of chunkSize rows into dir.
func NewSplitter(dir string, chunkSize int) *Splitter {
	return &Splitter{
		Dir:       dir,
		ChunkSize: chunkSize,
		Log:       NopLogger{},
		Stats:     NopStatter{},
	}
}

// Split reads src and writes its rows, in order, to consecutive chunk files
// named "<base>_chunk_<i>.csv" where base is the source name up to its first
// dot and i counts from zero. It returns the chunk paths in order. A source
// with a header but no rows yields no chunks.
//
// The source is opened and its header read before anything is created on
// disk, so an unreadable source leaves no chunk behind. A failure after that
// may leave the last chunk partially written.
func (s *Splitter) Split(src OpenStringer) (paths []string, err error) {
	if s.ChunkSize <= 0 {
		return nil, errors.Errorf("invalid chunk size %d", s.ChunkSize)
	}
	rc, err := src.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", src)
	}
	defer rc.Close()
	rr, err := NewRecordReader(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", src)
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return nil, errors.Wrap(err, "making chunk directory")
	}
	base := chunkBase(src.String())
	s.Log.Printf("Splitting %s into chunks of %d rows...", src, s.ChunkSize)

	var (
		cw   *chunkWriter
		rows int
	)
	defer func() {
		if cw != nil {
			if cerr := cw.Close(); cerr != nil && err == nil {
				err = errors.Wrapf(cerr, "closing %s", cw.path)
			}
		}
	}()
	for {
		row, rerr := rr.Read()
		if rerr == io.EOF {
			break
		} else if rerr != nil {
			return paths, errors.Wrapf(rerr, "reading %s after %d rows", src, rows)
		}
		if cw == nil || cw.rows == s.ChunkSize {
			if cw != nil {
				if err := cw.Close(); err != nil {
					cw = nil
					return paths, errors.Wrapf(err, "closing chunk %d", len(paths)-1)
				}
				s.Log.Printf("Created chunk %d: %s", len(paths), cw.path)
				s.Stats.Count(StatChunks, 1, 1)
			}
			cw, err = newChunkWriter(filepath.Join(s.Dir, fmt.Sprintf("%s_chunk_%d.csv", base, len(paths))), rr.Header())
			if err != nil {
				return paths, errors.Wrapf(err, "creating chunk %d", len(paths))
			}
			paths = append(paths, cw.path)
		}
		if err := cw.Write(row); err != nil {
			return paths, errors.Wrapf(err, "writing chunk %d", len(paths)-1)
		}
		rows++
	}
	if cw != nil {
		last := cw
		cw = nil
		if err := last.Close(); err != nil {
			return paths, errors.Wrapf(err, "closing chunk %d", len(paths)-1)
		}
		s.Log.Printf("Created chunk %d: %s", len(paths), last.path)
		s.Stats.Count(StatChunks, 1, 1)
	}
	s.Log.Printf("Split %d rows from %s into %d chunks", rows, src, len(paths))
	return paths, nil
}

// CleanupChunks removes chunk files. Paths which no longer exist are ignored.
func CleanupChunks(paths []string, log Logger) error {
	log.Printf("Cleaning up %d temporary files...", len(paths))
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing %s", p)
		}
	}
	log.Printf("Cleanup complete.")
	return nil
}

type chunkWriter struct {
	path string
	f    *os.File
	w    *csv.Writer
	rows int
}

func newChunkWriter(p string, header []string) (*chunkWriter, error) {
	f, err := os.Create(p)
	if err != nil {
		return nil, err
	}
	cw := &chunkWriter{path: p, f: f, w: csv.NewWriter(f)}
	if err := cw.w.Write(header); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "writing header")
	}
	return cw, nil
}

func (cw *chunkWriter) Write(row []string) error {
	cw.rows++
	return cw.w.Write(row)
}

func (cw *chunkWriter) Close() error {
	cw.w.Flush()
	if err := cw.w.Error(); err != nil {
		cw.f.Close()
		return err
	}
	return cw.f.Close()
}

// chunkBase returns the part of the base name of a path or URL before the
// first dot, e.g. "interactions" for "/data/interactions.csv.gz".
func chunkBase(name string) string {
	base := path.Base(filepath.ToSlash(name))
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	if base == "" || base == "." || base == "/" {
		base = "records"
	}
	return base
}

// chunkNumber extracts i from a name of the form "<base>_chunk_<i>.csv".
func chunkNumber(name string) (int, bool) {
	name = strings.TrimSuffix(name, ".csv")
	idx := strings.LastIndex(name, "_chunk_")
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[idx+len("_chunk_"):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
