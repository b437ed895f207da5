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
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Opener is an interface to a resource which can be repeatedly Opened (and the
// returned ReadCloser can be subsequently read). Each call to Open should
// return a ReadCloser which reads from the beginning of the resource.
type Opener interface {
	Open() (io.ReadCloser, error)
}

// OpenStringer is an Opener which also has a String method which should return
// the name of the resource being opened (e.g. a file or URL).
type OpenStringer interface {
	fmt.Stringer
	Opener
}

// URLOpener turns a URL or file path into an OpenStringer. Locations starting
// with "http" are fetched with a GET request, anything else is opened as a
// local file.
type URLOpener string

// Open implements Opener.
func (u URLOpener) Open() (io.ReadCloser, error) {
	url := string(u)
	if strings.HasPrefix(url, "http") {
		resp, err := http.Get(url)
		if err != nil {
			return nil, errors.Wrap(err, "getting via http")
		}
		if resp.StatusCode/100 != 2 {
			resp.Body.Close()
			return nil, errors.Errorf("getting %s: unexpected status %s", url, resp.Status)
		}
		return resp.Body, nil
	}
	f, err := os.Open(url)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

func (u URLOpener) String() string {
	return string(u)
}

// SchemeResolver expands a location with a registered scheme prefix (e.g.
// "s3://bucket/prefix") into one or more OpenStringers.
type SchemeResolver func(location string) ([]OpenStringer, error)

var (
	schemeMu  sync.RWMutex
	resolvers = map[string]SchemeResolver{}
)

// RegisterScheme makes Resolve hand locations of the form "<scheme>://..." to
// r. It is meant to be called from init functions of packages providing remote
// storage.
func RegisterScheme(scheme string, r SchemeResolver) {
	schemeMu.Lock()
	resolvers[scheme] = r
	schemeMu.Unlock()
}

// Resolve turns each location into OpenStringers. A local directory expands to
// the chunk files it contains (see ChunkPaths), a registered scheme is handed
// to its resolver, and anything else becomes a single URLOpener.
func Resolve(locations ...string) ([]OpenStringer, error) {
	ret := make([]OpenStringer, 0, len(locations))
	for _, loc := range locations {
		if idx := strings.Index(loc, "://"); idx > 0 {
			schemeMu.RLock()
			r, ok := resolvers[loc[:idx]]
			schemeMu.RUnlock()
			if ok {
				ops, err := r(loc)
				if err != nil {
					return nil, errors.Wrapf(err, "resolving %s", loc)
				}
				ret = append(ret, ops...)
				continue
			}
		}
		if info, err := os.Stat(loc); err == nil && info.IsDir() {
			paths, err := ChunkPaths(loc)
			if err != nil {
				return nil, errors.Wrapf(err, "listing %s", loc)
			}
			for _, p := range paths {
				ret = append(ret, URLOpener(p))
			}
			continue
		}
		ret = append(ret, URLOpener(loc))
	}
	return ret, nil
}

// ChunkPaths returns the CSV files in dir ordered by the chunk number embedded
// in their names, so that "x_chunk_10.csv" follows "x_chunk_9.csv". Files
// without a chunk number sort after numbered ones, by name.
func ChunkPaths(dir string) ([]string, error) {
	infos, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading directory")
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".csv") {
			continue
		}
		names = append(names, info.Name())
	}
	SortChunkNames(names)
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

// SortChunkNames sorts names by their chunk number.
func SortChunkNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ni, oki := chunkNumber(names[i])
		nj, okj := chunkNumber(names[j])
		switch {
		case oki && okj && ni != nj:
			return ni < nj
		case oki != okj:
			return oki
		}
		return names[i] < names[j]
	})
}
