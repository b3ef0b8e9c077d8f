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

//go:build linux

package sched

import (
	"sync"
	"time"

	"github.com/nabbar/golib/httpserver/types"
	"golang.org/x/sys/unix"
)

// fdSetSize is FD_SETSIZE on Linux: 16 64-bit words of bits.
const fdSetSize = len(unix.FdSet{}.Bits) * 64

// selectPoller wraps select(2). Admission rejects any fd at or above
// fdSetSize, per spec.md's "FDs above FD_SETSIZE are rejected" rule.
type selectPoller struct {
	mu   sync.Mutex
	want map[int]types.Readiness
}

func newSelectPoller() (Poller, error) {
	return &selectPoller{want: make(map[int]types.Readiness)}, nil
}

func (p *selectPoller) Add(fd int, want types.Readiness) error {
	if fd >= fdSetSize {
		return ErrorFdSetOverflow.Error(nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.want[fd] = want
	return nil
}

func (p *selectPoller) Modify(fd int, want types.Readiness) error {
	return p.Add(fd, want)
}

func (p *selectPoller) Remove(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.want, fd)
	return nil
}

func setBit(s *unix.FdSet, fd int) {
	s.Bits[fd/64] |= 1 << uint(fd%64)
}

func isBitSet(s *unix.FdSet, fd int) bool {
	return s.Bits[fd/64]&(1<<uint(fd%64)) != 0
}

func (p *selectPoller) Wait(timeout time.Duration) ([]ReadyFD, error) {
	p.mu.Lock()
	var rset, wset unix.FdSet
	maxFd := 0
	fds := make([]int, 0, len(p.want))
	for fd, want := range p.want {
		fds = append(fds, fd)
		if want.Has(types.ReadinessRecv) {
			setBit(&rset, fd)
		}
		if want.Has(types.ReadinessSend) {
			setBit(&wset, fd)
		}
		if fd > maxFd {
			maxFd = fd
		}
	}
	p.mu.Unlock()

	tv := unix.NsecToTimeval(timeout.Nanoseconds())

	for {
		n, err := unix.Select(maxFd+1, &rset, &wset, nil, &tv)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, err
		}

		if n == 0 {
			return nil, nil
		}

		out := make([]ReadyFD, 0, n)
		for _, fd := range fds {
			var r types.Readiness
			if isBitSet(&rset, fd) {
				r = r.Set(types.ReadinessRecv)
			}
			if isBitSet(&wset, fd) {
				r = r.Set(types.ReadinessSend)
			}
			if r != 0 {
				out = append(out, ReadyFD{Fd: fd, Readiness: r})
			}
		}
		return out, nil
	}
}

func (p *selectPoller) Close() error {
	return nil
}
