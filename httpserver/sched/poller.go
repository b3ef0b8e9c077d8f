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
	"time"

	"github.com/nabbar/golib/httpserver/types"
)

// ReadyFD is one actionable file descriptor returned by a Wait call.
type ReadyFD struct {
	Fd        int
	Readiness types.Readiness
}

// Poller is the contract all three back-ends satisfy: collect is implicit
// (callers Add/Modify as connection state changes), wait blocks up to
// timeout, dispatch is left to the caller, which owns the fd-to-connection
// map the back-ends never see.
type Poller interface {
	// Add registers fd for the given readiness interests.
	Add(fd int, want types.Readiness) error
	// Modify updates fd's readiness interests in place.
	Modify(fd int, want types.Readiness) error
	// Remove unregisters fd; the caller closes the socket separately.
	Remove(fd int) error
	// Wait blocks up to timeout and returns the actionable fds.
	Wait(timeout time.Duration) ([]ReadyFD, error)
	// Close releases the back-end's own resources (epoll fd, etc).
	Close() error
}

// NewPoller builds the back-end selected by mode.
func NewPoller(mode types.PollMode) (Poller, error) {
	switch mode {
	case types.PollSelect:
		return newSelectPoller()
	case types.PollPoll:
		return newPollPoller()
	case types.PollEpoll:
		return newEpollPoller()
	default:
		return newPollPoller()
	}
}
