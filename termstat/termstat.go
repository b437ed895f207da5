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

// Package termstat provides a tdk.Statter which keeps a single progress line
// up to date on a terminal: counters are printed in the order they were first
// seen, gauges after them. It is meant for watching long enrichment runs in
// lieu of an external metrics collector.
package termstat

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Collector accumulates counts and gauges and periodically rewrites them to
// out.
type Collector struct {
	lock    sync.Mutex
	indexes map[string]int
	names   []string
	stats   []int64
	gauges  map[string]float64
	gnames  []string
	changed bool
	out     io.Writer

	stop chan struct{}
	done chan struct{}
}

// NewCollector returns a Collector which writes to out every interval until
// Close is called. An interval of zero disables periodic writes; Flush can
// still be called.
func NewCollector(out io.Writer, interval time.Duration) *Collector {
	ts := &Collector{
		indexes: make(map[string]int),
		gauges:  make(map[string]float64),
		out:     out,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if interval <= 0 {
		close(ts.done)
		return ts
	}
	go func() {
		defer close(ts.done)
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				ts.Flush()
			case <-ts.stop:
				return
			}
		}
	}()
	return ts
}

// Count adds value to the counter name.
func (t *Collector) Count(name string, value int64, rate float64, tags ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.changed = true

	idx, ok := t.indexes[name]
	if !ok {
		idx = len(t.stats)
		t.stats = append(t.stats, 0)
		t.names = append(t.names, name)
		t.indexes[name] = idx
	}
	t.stats[idx] += value
}

// Value returns the current value of the counter name.
func (t *Collector) Value(name string) int64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	if idx, ok := t.indexes[name]; ok {
		return t.stats[idx]
	}
	return 0
}

// Gauge records the latest value of name.
func (t *Collector) Gauge(name string, value float64, rate float64, tags ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.changed = true
	if _, ok := t.gauges[name]; !ok {
		t.gnames = append(t.gnames, name)
	}
	t.gauges[name] = value
}

// Flush writes the current line if anything changed since the last write.
func (t *Collector) Flush() {
	sb := strings.Builder{}
	t.lock.Lock()
	defer t.lock.Unlock()
	if !t.changed {
		return
	}
	for i := 0; i < len(t.stats); i++ {
		_, _ = sb.WriteString(fmt.Sprintf("%s: %d ", t.names[i], t.stats[i]))
	}
	for _, name := range t.gnames {
		_, _ = sb.WriteString(fmt.Sprintf("%s: %g ", name, t.gauges[name]))
	}
	t.changed = false
	fmt.Fprint(t.out, "\r"+sb.String())
}

// Close stops periodic writes and writes the final line followed by a
// newline.
func (t *Collector) Close() error {
	select {
	case <-t.stop:
	default:
		close(t.stop)
	}
	<-t.done
	t.Flush()
	_, err := fmt.Fprintln(t.out)
	return err
}

// Histogram is not implemented.
func (t *Collector) Histogram(name string, value float64, rate float64, tags ...string) {}

// Set is not implemented.
func (t *Collector) Set(name string, value string, rate float64, tags ...string) {}

// Timing is not implemented.
func (t *Collector) Timing(name string, value time.Duration, rate float64, tags ...string) {}
