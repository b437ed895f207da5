package tdk

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Names of the stats reported through a Statter.
const (
	StatRows           = "rows"
	StatRowsSkipped    = "rows_skipped"
	StatQueries        = "queries"
	StatQueryFailures  = "query_failures"
	StatCheckpoints    = "checkpoints"
	StatChunks         = "chunks"
	StatNames          = "names"
	StatEmptyNames     = "empty_names"
	StatDistinctNames  = "distinct_names"
	StatRateLimitWaits = "rate_limit_waits"
)

// Statter is the interface that stats collectors must implement to get stats
// out of the pipeline.
type Statter interface {
	Count(name string, value int64, rate float64, tags ...string)
	Gauge(name string, value float64, rate float64, tags ...string)
	Histogram(name string, value float64, rate float64, tags ...string)
	Set(name string, value string, rate float64, tags ...string)
	Timing(name string, value time.Duration, rate float64, tags ...string)
}

// NopStatter does nothing.
type NopStatter struct{}

// Count does nothing.
func (NopStatter) Count(name string, value int64, rate float64, tags ...string) {}

// Gauge does nothing.
func (NopStatter) Gauge(name string, value float64, rate float64, tags ...string) {}

// Histogram does nothing.
func (NopStatter) Histogram(name string, value float64, rate float64, tags ...string) {}

// Set does nothing.
func (NopStatter) Set(name string, value string, rate float64, tags ...string) {}

// Timing does nothing.
func (NopStatter) Timing(name string, value time.Duration, rate float64, tags ...string) {}

// Logger is the interface that loggers must implement to get progress and
// error diagnostics out of the pipeline.
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}

// NopLogger logs nothing.
type NopLogger struct{}

// Printf does nothing.
func (NopLogger) Printf(format string, v ...interface{}) {}

// Debugf does nothing.
func (NopLogger) Debugf(format string, v ...interface{}) {}

// StdLogger only prints on Printf.
type StdLogger struct {
	*log.Logger
}

// NewStdLogger returns a StdLogger writing to w.
func NewStdLogger(w io.Writer) StdLogger {
	return StdLogger{log.New(w, "", log.LstdFlags)}
}

// Printf implements Logger interface.
func (s StdLogger) Printf(format string, v ...interface{}) {
	s.Logger.Printf(format, v...)
}

// Debugf implements Logger interface, but prints nothing.
func (StdLogger) Debugf(format string, v ...interface{}) {}

// VerboseLogger prints on both Printf and Debugf.
type VerboseLogger struct {
	*log.Logger
}

// NewVerboseLogger returns a VerboseLogger writing to w.
func NewVerboseLogger(w io.Writer) VerboseLogger {
	return VerboseLogger{log.New(w, "", log.LstdFlags|log.Lmicroseconds)}
}

// Printf implements Logger interface.
func (s VerboseLogger) Printf(format string, v ...interface{}) {
	s.Logger.Printf(format, v...)
}

// Debugf implements Logger interface.
func (s VerboseLogger) Debugf(format string, v ...interface{}) {
	s.Logger.Printf(format, v...)
}

// OpenLogger returns a logger writing to logPath, or to stderr if logPath is
// empty, and a function closing the log file.
func OpenLogger(logPath string, verbose bool) (Logger, func() error, error) {
	var out io.Writer = os.Stderr
	closer := func() error { return nil }
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening log file")
		}
		out = f
		closer = f.Close
	}
	if verbose {
		return NewVerboseLogger(out), closer, nil
	}
	return NewStdLogger(out), closer, nil
}
