package degree_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/globi-tools/tdk"
	"github.com/globi-tools/tdk/degree"
	"github.com/globi-tools/tdk/test"
)

const whole = "source_taxon_name,interaction_type,target_taxon_name\n" +
	"Felis catus,eats,Mus musculus\n" +
	"Mus musculus,eatenBy,Felis catus\n" +
	"Felis catus,eats,Rattus\n"

var wholeDegrees = []tdk.DegreeEntry{
	{Name: "Felis catus", Degree: 3},
	{Name: "Mus musculus", Degree: 2},
	{Name: "Rattus", Degree: 1},
}

func newMain(t *testing.T, dir string) *degree.Main {
	m := degree.NewMain()
	m.SourceField = tdk.SnakeNameFields.Source
	m.TargetField = tdk.SnakeNameFields.Target
	m.Output = filepath.Join(dir, "exports", "final_01_degree.csv")
	m.TempDir = filepath.Join(dir, "temp")
	m.LogPath = filepath.Join(dir, "degree.log")
	return m
}

func readOutput(t *testing.T, path string) []tdk.DegreeEntry {
	t.Helper()
	f, err := os.Open(path)
	test.ErrNil(t, err, "opening output")
	defer f.Close()
	entries, err := tdk.ReadDegreeTable(f)
	test.ErrNil(t, err, "reading output")
	return entries
}

func TestRun(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *degree.Main, dir string)
	}{
		{
			name: "whole file",
			setup: func(m *degree.Main, dir string) {
				m.Inputs = []string{filepath.Join(dir, "interactions.csv")}
			},
		},
		{
			name: "split first",
			setup: func(m *degree.Main, dir string) {
				m.Inputs = []string{filepath.Join(dir, "interactions.csv")}
				m.Split = true
				m.ChunkSize = 1
			},
		},
		{
			name: "leveldb tally",
			setup: func(m *degree.Main, dir string) {
				m.Inputs = []string{filepath.Join(dir, "interactions.csv")}
				m.TallyDir = filepath.Join(dir, "tally")
			},
		},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			dir := test.MustTempDir(t)
			test.MustWriteFile(t, dir, "interactions.csv", whole)
			m := newMain(t, dir)
			tst.setup(m, dir)
			test.ErrNil(t, m.Run(), "Run")
			test.MustBe(t, wholeDegrees, m.Entries)
			test.MustBe(t, wholeDegrees, readOutput(t, m.Output))
			if m.Split {
				paths, err := tdk.ChunkPaths(m.TempDir)
				test.ErrNil(t, err, "listing temp dir")
				if len(paths) != 0 {
					t.Fatalf("chunks left behind: %v", paths)
				}
			}
		})
	}
}

func TestRunChunkDirCleanup(t *testing.T) {
	dir := test.MustTempDir(t)
	src := test.MustWriteFile(t, dir, "interactions.csv", whole)
	chunkDir := filepath.Join(dir, "chunks")
	_, err := tdk.NewSplitter(chunkDir, 2).Split(tdk.URLOpener(src))
	test.ErrNil(t, err, "Split")

	m := newMain(t, dir)
	m.Inputs = []string{chunkDir}
	m.Cleanup = true
	test.ErrNil(t, m.Run(), "Run")
	test.MustBe(t, wholeDegrees, m.Entries)
	paths, err := tdk.ChunkPaths(chunkDir)
	test.ErrNil(t, err, "listing chunk dir")
	if len(paths) != 0 {
		t.Fatalf("chunks not cleaned up: %v", paths)
	}
}

func TestRunHTTPInput(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(whole))
	}))
	defer ts.Close()
	dir := test.MustTempDir(t)
	m := newMain(t, dir)
	m.Inputs = []string{ts.URL + "/interactions.csv"}
	m.Cleanup = true
	test.ErrNil(t, m.Run(), "Run")
	test.MustBe(t, wholeDegrees, m.Entries)
}

func TestRunNoInputs(t *testing.T) {
	dir := test.MustTempDir(t)
	m := newMain(t, dir)
	m.Inputs = []string{filepath.Join(dir, "empty")}
	test.ErrNil(t, os.MkdirAll(m.Inputs[0], 0755), "mkdir")
	if err := m.Run(); err == nil {
		t.Fatalf("expected error for a directory without chunks")
	}
}

func TestRunSplitFailureRemovesChunks(t *testing.T) {
	dir := test.MustTempDir(t)
	test.MustWriteFile(t, dir, "interactions.csv", whole)
	m := newMain(t, dir)
	m.Inputs = []string{filepath.Join(dir, "interactions.csv"), filepath.Join(dir, "missing.csv")}
	m.Split = true
	m.ChunkSize = 1
	if err := m.Run(); err == nil {
		t.Fatalf("expected error splitting a missing input")
	}
	paths, err := tdk.ChunkPaths(m.TempDir)
	test.ErrNil(t, err, "listing temp dir")
	if len(paths) != 0 {
		t.Fatalf("chunks of the first input left behind: %v", paths)
	}
}
