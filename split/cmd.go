// Package split holds the command which cuts a large interactions file into
// chunk files.
package split

import (
	"github.com/globi-tools/tdk"
	"github.com/pkg/errors"
)

// Main holds the options for splitting an interactions file.
type Main struct {
	Input     string `help:"Interactions CSV to split: a file path, an http(s) URL or s3://bucket/key."`
	TempDir   string `help:"Directory chunk files are written to. Created if missing."`
	ChunkSize int    `help:"Maximum number of rows per chunk."`
	LogPath   string `help:"Log file to write to. Empty means stderr."`
	Verbose   bool   `help:"Enable verbose logging."`

	// Chunks holds the paths written by the last Run.
	Chunks []string `flag:"-"`
}

// NewMain returns a Main with the defaults used for the full GloBI dump.
func NewMain() *Main {
	return &Main{
		Input:     "data/interactions.csv",
		TempDir:   "temp",
		ChunkSize: 1000000,
	}
}

// Run splits Input into chunks.
func (m *Main) Run() error {
	log, closeLog, err := tdk.OpenLogger(m.LogPath, m.Verbose)
	if err != nil {
		return errors.Wrap(err, "setting up logging")
	}
	defer closeLog()

	srcs, err := tdk.Resolve(m.Input)
	if err != nil {
		return errors.Wrap(err, "resolving input")
	}
	if len(srcs) != 1 {
		return errors.Errorf("input %s resolves to %d sources, need exactly one", m.Input, len(srcs))
	}
	splitter := tdk.NewSplitter(m.TempDir, m.ChunkSize)
	splitter.Log = log
	m.Chunks, err = splitter.Split(srcs[0])
	return errors.Wrap(err, "splitting")
}
