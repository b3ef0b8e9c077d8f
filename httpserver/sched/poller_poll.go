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

//go:build unix

package sched

import (
	"sync"
	"time"

	"github.com/nabbar/golib/httpserver/types"
	"golang.org/x/sys/unix"
)

// pollPoller wraps poll(2): one pollfd per registered fd, rebuilt into a
// contiguous slice before every Wait since unix.Poll takes no incremental
// registration primitive.
type pollPoller struct {
	mu   sync.Mutex
	want map[int]types.Readiness
}

func newPollPoller() (Poller, error) {
	return &pollPoller{want: make(map[int]types.Readiness)}, nil
}

func (p *pollPoller) Add(fd int, want types.Readiness) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.want[fd] = want
	return nil
}

func (p *pollPoller) Modify(fd int, want types.Readiness) error {
	return p.Add(fd, want)
}

func (p *pollPoller) Remove(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.want, fd)
	return nil
}

func (p *pollPoller) Wait(timeout time.Duration) ([]ReadyFD, error) {
	p.mu.Lock()
	fds := make([]unix.PollFd, 0, len(p.want))
	for fd, want := range p.want {
		var ev int16
		if want.Has(types.ReadinessRecv) {
			ev |= unix.POLLIN
		}
		if want.Has(types.ReadinessSend) {
			ev |= unix.POLLOUT
		}
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: ev})
	}
	p.mu.Unlock()

	ms := int(timeout / time.Millisecond)
	if timeout > 0 && ms == 0 {
		ms = 1
	}

	for {
		n, err := unix.Poll(fds, ms)
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
		for _, pfd := range fds {
			var r types.Readiness
			if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
				r = r.Set(types.ReadinessRecv)
			}
			if pfd.Revents&unix.POLLOUT != 0 {
				r = r.Set(types.ReadinessSend)
			}
			if pfd.Revents&unix.POLLERR != 0 {
				r = r.Set(types.ReadinessError)
			}
			if r != 0 {
				out = append(out, ReadyFD{Fd: int(pfd.Fd), Readiness: r})
			}
		}
		return out, nil
	}
}

func (p *pollPoller) Close() error {
	return nil
}
