/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package hookfile provides file-based logging hooks for logrus.
// This file handles log file aggregation and rotation functionality.
// It manages multiple writers to the same log file efficiently.
package hookfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosedResources is returned by a fileAgg writer once its underlying
// file has been closed by the last referencing hook.
var ErrClosedResources = errors.New("hookfile: aggregator resources are closed")

// errMissingFilePath is returned when a hook is created without a filepath.
var errMissingFilePath = errors.New("hookfile: missing file path")

// fileAgg represents an aggregated file writer with reference counting.
// It manages a single log file that can be shared by multiple loggers, detecting
// external log rotation (e.g. by logrotate) by comparing the open descriptor
// against the path's inode once per second.
type fileAgg struct {
	refs   atomic.Int64
	mu     sync.Mutex
	root   *os.Root
	file   *os.File
	path   string
	mode   os.FileMode
	create bool
	closed atomic.Bool
	stop   chan struct{}
}

var (
	aggMu  sync.Mutex
	aggMap = make(map[string]*fileAgg)
)

func init() {
	runtime.SetFinalizer(&aggMap, func(*map[string]*fileAgg) {
		ResetOpenFiles()
	})
}

// setAgg retrieves or creates a file aggregator for the given file path.
// If an aggregator already exists for the path, its reference count is incremented.
func setAgg(k string, m os.FileMode, cre bool) (io.Writer, error) {
	aggMu.Lock()
	defer aggMu.Unlock()

	if a, ok := aggMap[k]; ok && !a.closed.Load() {
		a.refs.Add(1)
		return a, nil
	}

	a, e := newAgg(k, m, cre)
	if e != nil {
		return nil, e
	}

	aggMap[k] = a
	return a, nil
}

// delAgg decreases the reference count for the file aggregator at the given path.
// If the reference count reaches zero, the file and its resources are closed and removed.
func delAgg(k string) {
	aggMu.Lock()
	a, ok := aggMap[k]
	aggMu.Unlock()

	if !ok {
		return
	}

	if a.refs.Add(-1) > 0 {
		return
	}

	aggMu.Lock()
	delete(aggMap, k)
	aggMu.Unlock()

	a.close()
}

func newAgg(p string, m os.FileMode, cre bool) (*fileAgg, error) {
	fl := os.O_WRONLY | os.O_APPEND
	if cre {
		fl = fl | os.O_CREATE
	}

	r, e := os.OpenRoot(filepath.Dir(p))
	if e != nil {
		return nil, e
	}

	f, e := r.OpenFile(filepath.Base(p), fl, m)
	if e != nil {
		_ = r.Close()
		return nil, e
	}

	if _, e = f.Seek(0, io.SeekEnd); e != nil {
		_ = f.Close()
		_ = r.Close()
		return nil, e
	}

	a := &fileAgg{
		root:   r,
		file:   f,
		path:   p,
		mode:   m,
		create: cre,
		stop:   make(chan struct{}),
	}
	a.refs.Store(1)

	go a.watchRotation(fl)

	return a, nil
}

// watchRotation checks once a second whether the file at a.path still refers to
// the descriptor we hold open; if not (logrotate renamed/removed it) it reopens.
func (a *fileAgg) watchRotation(flags int) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-t.C:
			a.mu.Lock()
			if a.closed.Load() {
				a.mu.Unlock()
				return
			}

			syncErr := a.file.Sync()
			needReopen := syncErr != nil

			if !needReopen && a.create {
				cur, err1 := a.file.Stat()
				disk, err2 := os.Stat(a.path)
				if err2 != nil || (err1 == nil && !os.SameFile(cur, disk)) {
					needReopen = true
				}
			}

			if needReopen {
				_ = a.file.Close()
				if f, e := a.root.OpenFile(filepath.Base(a.path), flags, a.mode); e != nil {
					_, _ = fmt.Fprintf(os.Stderr, "hookfile: error reopening %s: %v\n", a.path, e)
				} else {
					_, _ = f.Seek(0, io.SeekEnd)
					a.file = f
				}
			}
			a.mu.Unlock()
		}
	}
}

func (a *fileAgg) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed.Load() {
		return 0, ErrClosedResources
	}

	return a.file.Write(p)
}

func (a *fileAgg) close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed.Swap(true) {
		return
	}

	close(a.stop)
	_ = a.file.Close()
	_ = a.root.Close()
}

// ResetOpenFiles closes all open file aggregators and clears the aggregator map.
// This function is primarily used for testing and cleanup purposes.
func ResetOpenFiles() {
	aggMu.Lock()
	all := aggMap
	aggMap = make(map[string]*fileAgg)
	aggMu.Unlock()

	for _, a := range all {
		a.close()
	}
}
