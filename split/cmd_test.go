package split_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/globi-tools/tdk/split"
	"github.com/globi-tools/tdk/test"
)

func TestRun(t *testing.T) {
	dir := test.MustTempDir(t)
	var b strings.Builder
	b.WriteString("sourceTaxonName,targetTaxonName\n")
	for i := 0; i < 25; i++ {
		b.WriteString("Felis catus,Mus musculus\n")
	}
	m := split.NewMain()
	m.Input = test.MustWriteFile(t, dir, "interactions.csv", b.String())
	m.TempDir = filepath.Join(dir, "temp")
	m.ChunkSize = 10
	m.LogPath = filepath.Join(dir, "split.log")

	test.ErrNil(t, m.Run(), "Run")
	test.MustBe(t, []string{
		filepath.Join(dir, "temp", "interactions_chunk_0.csv"),
		filepath.Join(dir, "temp", "interactions_chunk_1.csv"),
		filepath.Join(dir, "temp", "interactions_chunk_2.csv"),
	}, m.Chunks)
	if log := test.MustReadFile(t, m.LogPath); !strings.Contains(log, "into 3 chunks") {
		t.Fatalf("unexpected log:\n%s", log)
	}
}

func TestRunDirectoryInput(t *testing.T) {
	dir := test.MustTempDir(t)
	test.MustWriteFile(t, dir, "in/a_chunk_0.csv", "x\n1\n")
	test.MustWriteFile(t, dir, "in/a_chunk_1.csv", "x\n2\n")
	m := split.NewMain()
	m.Input = filepath.Join(dir, "in")
	m.TempDir = filepath.Join(dir, "temp")
	m.LogPath = filepath.Join(dir, "split.log")
	if err := m.Run(); err == nil {
		t.Fatalf("expected error splitting a directory of chunks")
	}
}
