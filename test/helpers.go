// Package test holds helpers shared by the tests of several packages.
package test

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"
)

// MustBe fails the test if thing1 and thing2 are not deeply equal.
func MustBe(t *testing.T, thing1, thing2 interface{}, context ...string) {
	t.Helper()
	var ctx string
	if len(context) == 0 {
		ctx = ""
	} else {
		ctx = context[0] + ": "
	}
	if !reflect.DeepEqual(thing1, thing2) {
		t.Fatalf("%v'%#v' != '%#v'", ctx, thing1, thing2)
	}
}

// ErrNil fails the test if err is not nil.
func ErrNil(t *testing.T, err error, ctx string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%v: %v", ctx, err)
	}
}

// MustTempDir returns a new temporary directory which is removed when the
// test finishes.
func MustTempDir(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "tdk")
	if err != nil {
		t.Fatalf("getting temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// MustWriteFile writes content to name inside dir and returns the full path.
func MustWriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("making dir for %s: %v", p, err)
	}
	if err := ioutil.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", p, err)
	}
	return p
}

// MustReadFile returns the content of the file at p.
func MustReadFile(t *testing.T, p string) string {
	t.Helper()
	data, err := ioutil.ReadFile(p)
	if err != nil {
		t.Fatalf("reading %s: %v", p, err)
	}
	return string(data)
}

// Source is a fake lookup source. Results maps names to the value returned,
// Errs maps names to the error returned; names in neither get Default. Every
// call is recorded.
type Source struct {
	mu      sync.Mutex
	Results map[string]int64
	Errs    map[string]error
	Default int64
	calls   []string
}

// Lookup records the call and returns the configured result.
func (s *Source) Lookup(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	if err, ok := s.Errs[name]; ok {
		return 0, err
	}
	if v, ok := s.Results[name]; ok {
		return v, nil
	}
	return s.Default, nil
}

// Calls returns the names looked up so far, in order.
func (s *Source) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Sleeper records requested sleeps instead of sleeping.
type Sleeper struct {
	mu    sync.Mutex
	Slept []time.Duration
}

// Sleep records d.
func (s *Sleeper) Sleep(d time.Duration) {
	s.mu.Lock()
	s.Slept = append(s.Slept, d)
	s.mu.Unlock()
}

// Total returns the sum of all recorded sleeps.
func (s *Sleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, d := range s.Slept {
		total += d
	}
	return total
}
