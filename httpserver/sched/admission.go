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
	"net"
	"sync"

	"github.com/nabbar/golib/httpserver/types"
)

// defaultConnectionLimit is used when Config.ConnectionLimit is 0, per
// spec.md's "FD_SETSIZE - 4" default (listen fd, ITC, stdio headroom).
const defaultConnectionLimit = 1024 - 4

// Admission tracks the daemon-wide and per-IP connection counts behind one
// mutex, per spec.md §5's "IP-count tree guarded by a daemon-level mutex".
type Admission struct {
	mu       sync.Mutex
	limit    int
	perIP    int
	policy   types.FuncAcceptPolicy
	total    int
	byIP     map[string]int
}

// NewAdmission builds the table from the daemon's configured limits.
func NewAdmission(cfg *types.Config) *Admission {
	limit := cfg.ConnectionLimit
	if limit <= 0 {
		limit = defaultConnectionLimit
	}

	return &Admission{
		limit:  limit,
		perIP:  cfg.PerIPConnectionLimit,
		policy: cfg.AcceptPolicy,
		byIP:   make(map[string]int),
	}
}

func ipOf(remote net.Addr) string {
	if h, _, err := net.SplitHostPort(remote.String()); err == nil {
		return h
	}
	return remote.String()
}

// admitResult distinguishes why TryAdmit refused a connection, so the
// caller can attribute the rejection to the right metric.
type admitResult int

const (
	admitOK admitResult = iota
	admitDaemonFull
	admitPerIPFull
	admitPolicyRejected
)

// TryAdmit applies the accept policy, the daemon cap, then the per-IP cap,
// incrementing the counters only if every check passes.
func (a *Admission) TryAdmit(remote net.Addr) bool {
	r := a.tryAdmit(remote)
	return r == admitOK
}

func (a *Admission) tryAdmit(remote net.Addr) admitResult {
	if a.policy != nil && !a.policy(remote) {
		return admitPolicyRejected
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.total >= a.limit {
		return admitDaemonFull
	}

	ip := ipOf(remote)
	if a.perIP > 0 && a.byIP[ip] >= a.perIP {
		return admitPerIPFull
	}

	a.total++
	a.byIP[ip]++
	return admitOK
}

// SuspendIP drops remote's IP out of the per-IP count while it is parked,
// per spec.md §5's invariant that the IP-count tree tracks only
// non-suspended active connections. The daemon-wide total is untouched:
// a suspended connection still holds its slot.
func (a *Admission) SuspendIP(remote net.Addr) {
	ip := ipOf(remote)

	a.mu.Lock()
	defer a.mu.Unlock()

	if n := a.byIP[ip]; n <= 1 {
		delete(a.byIP, ip)
	} else {
		a.byIP[ip] = n - 1
	}
}

// ResumeIP restores remote's IP to the per-IP count after SuspendIP.
func (a *Admission) ResumeIP(remote net.Addr) {
	ip := ipOf(remote)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.byIP[ip]++
}

// Release decrements the counters for a connection admitted by TryAdmit.
func (a *Admission) Release(remote net.Addr) {
	ip := ipOf(remote)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.total > 0 {
		a.total--
	}

	if n := a.byIP[ip]; n <= 1 {
		delete(a.byIP, ip)
	} else {
		a.byIP[ip] = n - 1
	}
}
