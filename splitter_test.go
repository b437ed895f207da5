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

package tdk_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/globi-tools/tdk"
	"github.com/globi-tools/tdk/test"
)

func interactions(n int) string {
	var b strings.Builder
	b.WriteString("sourceTaxonName,interactionTypeName,targetTaxonName\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "taxon%d,eats,\"prey, %d\"\n", i%7, i)
	}
	return b.String()
}

func TestSplit(t *testing.T) {
	tests := []struct {
		rows      int
		chunkSize int
		expRows   []int
	}{
		{rows: 2500, chunkSize: 1000, expRows: []int{1000, 1000, 500}},
		{rows: 2000, chunkSize: 1000, expRows: []int{1000, 1000}},
		{rows: 3, chunkSize: 10, expRows: []int{3}},
		{rows: 0, chunkSize: 10, expRows: nil},
	}
	for i, tst := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			dir := test.MustTempDir(t)
			data := interactions(tst.rows)
			src := test.MustWriteFile(t, dir, "interactions.csv", data)
			out := filepath.Join(dir, "temp")

			s := tdk.NewSplitter(out, tst.chunkSize)
			paths, err := s.Split(tdk.URLOpener(src))
			test.ErrNil(t, err, "Split")
			if len(paths) != len(tst.expRows) {
				t.Fatalf("expected %d chunks, got %d: %v", len(tst.expRows), len(paths), paths)
			}

			header := strings.SplitAfterN(data, "\n", 2)[0]
			var joined strings.Builder
			joined.WriteString(header)
			for j, p := range paths {
				test.MustBe(t, filepath.Join(out, fmt.Sprintf("interactions_chunk_%d.csv", j)), p)
				chunk := test.MustReadFile(t, p)
				if !strings.HasPrefix(chunk, header) {
					t.Fatalf("chunk %d does not start with the header: %q", j, chunk)
				}
				body := strings.TrimPrefix(chunk, header)
				if n := strings.Count(body, "\n"); n != tst.expRows[j] {
					t.Fatalf("chunk %d: expected %d rows, got %d", j, tst.expRows[j], n)
				}
				joined.WriteString(body)
			}
			if tst.rows > 0 && joined.String() != data {
				t.Fatalf("concatenated chunks differ from the source")
			}
		})
	}
}

func TestSplitUnreadableSource(t *testing.T) {
	dir := test.MustTempDir(t)
	out := filepath.Join(dir, "temp")
	s := tdk.NewSplitter(out, 10)
	paths, err := s.Split(tdk.URLOpener(filepath.Join(dir, "missing.csv")))
	if err == nil {
		t.Fatalf("expected error splitting a missing file")
	}
	if len(paths) != 0 {
		t.Fatalf("expected no chunks, got %v", paths)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected chunk directory not to be created, stat: %v", err)
	}
}

func TestSplitInvalidChunkSize(t *testing.T) {
	dir := test.MustTempDir(t)
	src := test.MustWriteFile(t, dir, "x.csv", interactions(2))
	if _, err := tdk.NewSplitter(dir, 0).Split(tdk.URLOpener(src)); err == nil {
		t.Fatalf("expected error for chunk size 0")
	}
}

func TestCleanupChunks(t *testing.T) {
	dir := test.MustTempDir(t)
	a := test.MustWriteFile(t, dir, "a_chunk_0.csv", "x\n")
	err := tdk.CleanupChunks([]string{a, filepath.Join(dir, "gone.csv")}, tdk.NopLogger{})
	test.ErrNil(t, err, "CleanupChunks")
	if _, err := os.Stat(a); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed", a)
	}
}
