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

package sched

import (
	"os"

	"golang.org/x/sys/unix"
)

// itc is the wakeup byte a poller blocks on alongside the connections it
// owns: the accept loop, Suspend/Resume and Shutdown all write to it so a
// blocked Wait call returns promptly instead of riding out its timeout.
type itc struct {
	r *os.File
	w *os.File
}

func newITC() (*itc, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	if rc, err := r.SyscallConn(); err == nil {
		_ = rc.Control(func(fd uintptr) {
			_ = unix.SetNonblock(int(fd), true)
		})
	}

	return &itc{r: r, w: w}, nil
}

func (i *itc) fd() int {
	var fd int
	if rc, err := i.r.SyscallConn(); err == nil {
		_ = rc.Control(func(f uintptr) {
			fd = int(f)
		})
	}
	return fd
}

// wake writes one byte; the reader drains on every wake per spec.md §5.
func (i *itc) wake() {
	_, _ = i.w.Write([]byte{1})
}

func (i *itc) drain() {
	buf := make([]byte, 64)
	for {
		n, err := i.r.Read(buf)
		if n == 0 || err != nil {
			return
		}
	}
}

func (i *itc) Close() error {
	_ = i.w.Close()
	return i.r.Close()
}
