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
	"time"

	"github.com/nabbar/golib/httpserver/types"
	"golang.org/x/sys/unix"
)

// epollPoller wraps epoll(7) in edge-triggered mode: fds are added once and
// readiness bits persist in the caller's connection (not here) until a
// recv/send returns short, per spec.md's epoll back-end description.
type epollPoller struct {
	epfd int
}

func newEpollPoller() (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: fd}, nil
}

func epollEvents(want types.Readiness) uint32 {
	var ev uint32 = unix.EPOLLET
	if want.Has(types.ReadinessRecv) {
		ev |= unix.EPOLLIN
	}
	if want.Has(types.ReadinessSend) {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (p *epollPoller) Add(fd int, want types.Readiness) error {
	ev := unix.EpollEvent{Events: epollEvents(want), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) Modify(fd int, want types.Readiness) error {
	ev := unix.EpollEvent{Events: epollEvents(want), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) Wait(timeout time.Duration) ([]ReadyFD, error) {
	events := make([]unix.EpollEvent, 128)

	ms := int(timeout / time.Millisecond)
	if timeout > 0 && ms == 0 {
		ms = 1
	}
	if timeout <= 0 {
		ms = -1
	}

	for {
		n, err := unix.EpollWait(p.epfd, events, ms)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, err
		}

		out := make([]ReadyFD, 0, n)
		for i := 0; i < n; i++ {
			var r types.Readiness
			e := events[i].Events
			if e&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLRDHUP|unix.EPOLLERR) != 0 {
				r = r.Set(types.ReadinessRecv)
			}
			if e&unix.EPOLLOUT != 0 {
				r = r.Set(types.ReadinessSend)
			}
			if e&unix.EPOLLERR != 0 {
				r = r.Set(types.ReadinessError)
			}
			out = append(out, ReadyFD{Fd: int(events[i].Fd), Readiness: r})
		}
		return out, nil
	}
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
