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
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nabbar/golib/httpserver/conn"
	"github.com/nabbar/golib/httpserver/transport"
	"github.com/nabbar/golib/httpserver/types"
	liblog "github.com/nabbar/golib/logger"
)

// waitTimeout bounds every Poller.Wait call so the scheduler periodically
// wakes even with no readiness events, to run idle-timeout checks and to
// notice a Shutdown/Suspend/Resume request without relying solely on the
// ITC wakeup.
const waitTimeout = 1 * time.Second

// maxBufferedInDrain bounds how many extra ticks a connection gets per
// readiness event to drain transport-buffered input before the worker
// moves on to the next fd in the ready list.
const maxBufferedInDrain = 64

type entry struct {
	fd        int
	raw       net.Conn
	c         *conn.Connection
	suspended bool
}

// worker owns one Poller and the set of connections registered against it.
// ThreadSingle and ThreadExternal run a single worker; ThreadPool runs one
// per configured thread, modulo-distributed by accepted fd; ThreadPerConnection
// spins up a throwaway single-fd worker per accepted connection.
type worker struct {
	id     int
	sc     *Scheduler
	poller Poller
	wake   *itc

	mu   sync.Mutex
	conn map[int]*entry
}

// Scheduler wires the listen socket, admission control and one or more
// Poller-driven workers into the running daemon. Nothing here is started
// until Run (or Collect/Wait/Dispatch, for ThreadExternal) is called.
type Scheduler struct {
	cfg *types.Config
	log func() liblog.Logger

	admission *Admission
	listener  net.Listener
	ownsLstn  bool
	metrics   *metrics

	workers []*worker

	accept uint64 // atomic round-robin counter across workers

	suspended int32 // atomic: count of connections currently parked by Suspend

	closing int32 // atomic bool
	wg      sync.WaitGroup
}

// New builds a Scheduler from a validated Config. It does not start
// accepting connections; call Run (or, for ThreadExternal, Collect/Wait/
// Dispatch) to do that.
func New(cfg *types.Config, log func() liblog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cfg:       cfg,
		log:       log,
		admission: NewAdmission(cfg),
	}

	if cfg.ListenSocket != nil {
		s.listener = cfg.ListenSocket
	} else {
		l, err := net.Listen("tcp", cfg.SockAddr)
		if err != nil {
			return nil, ErrorListenFailed.Error(err)
		}
		s.listener = l
		s.ownsLstn = true
	}

	n := 1
	if cfg.ThreadModel == types.ThreadPool && cfg.ThreadPoolSize > 0 {
		n = cfg.ThreadPoolSize
	}

	s.workers = make([]*worker, n)
	for i := 0; i < n; i++ {
		w, err := newWorker(i, s)
		if err != nil {
			return nil, err
		}
		s.workers[i] = w
	}

	return s, nil
}

// Addr reports the listen socket's bound address, useful when SockAddr
// asked for an ephemeral port.
func (s *Scheduler) Addr() net.Addr {
	return s.listener.Addr()
}

// EnableMetrics registers this scheduler's gauges/counters with reg,
// labelled by the listen address. Optional: a Scheduler with no metrics
// registered behaves identically, just without the Prometheus surface.
func (s *Scheduler) EnableMetrics(reg prometheus.Registerer) error {
	m, err := NewMetrics(reg, prometheus.Labels{"listen": s.listener.Addr().String()})
	if err != nil {
		return err
	}
	s.metrics = m
	return nil
}

func newWorker(id int, s *Scheduler) (*worker, error) {
	p, err := NewPoller(s.cfg.PollMode)
	if err != nil {
		return nil, err
	}

	wk, err := newITC()
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	if err = p.Add(wk.fd(), types.ReadinessRecv); err != nil {
		_ = p.Close()
		_ = wk.Close()
		return nil, err
	}

	return &worker{
		id:     id,
		sc:     s,
		poller: p,
		wake:   wk,
		conn:   make(map[int]*entry),
	}, nil
}

// Run starts the scheduler according to its configured ThreadModel and
// blocks until ctx is cancelled or Shutdown is called. ThreadExternal is
// rejected; the host application drives that model itself via Collect/
// Wait/Dispatch.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.ThreadModel == types.ThreadExternal {
		return fmt.Errorf("httpserver/sched: ThreadExternal is driven externally, not via Run")
	}

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	for _, w := range s.workers {
		s.wg.Add(1)
		go func(w *worker) {
			defer s.wg.Done()
			w.loop()
		}(w)
	}

	<-ctx.Done()
	return s.Shutdown(context.Background())
}

// acceptLoop accepts sockets, applies admission control and hands each
// admitted connection to a worker chosen by round robin (ThreadPool) or the
// sole worker (ThreadSingle), or spins up a dedicated worker per connection
// (ThreadPerConnection).
func (s *Scheduler) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		if atomic.LoadInt32(&s.closing) != 0 {
			return
		}

		raw, err := s.listener.Accept()
		if err != nil {
			if atomic.LoadInt32(&s.closing) != 0 {
				return
			}
			s.log().Entry(liblog.ErrorLevel, "accept failed").ErrorAdd(true, err).Log()
			continue
		}

		switch s.admission.tryAdmit(raw.RemoteAddr()) {
		case admitPerIPFull:
			s.metrics.onRejectIP()
			_ = raw.Close()
			continue
		case admitDaemonFull, admitPolicyRejected:
			s.metrics.onReject()
			_ = raw.Close()
			continue
		}

		s.metrics.onAccept()

		if s.cfg.NotifyConnection != nil {
			s.cfg.NotifyConnection(raw.RemoteAddr())
		}

		s.dispatch(raw)
	}
}

// deadlineListener is implemented by *net.TCPListener and covers any
// cfg.ListenSocket the host supplies with the same capability; acceptOnce
// uses it to poll for a pending connection without blocking the caller's
// own external loop.
type deadlineListener interface {
	SetDeadline(time.Time) error
}

// acceptOnce admits at most one pending connection without blocking, for
// the ThreadExternal model's Dispatch. A listener that cannot be given a
// deadline (a cfg.ListenSocket that doesn't implement deadlineListener)
// simply never admits new connections via this path.
func (s *Scheduler) acceptOnce() {
	dl, ok := s.listener.(deadlineListener)
	if !ok {
		return
	}

	_ = dl.SetDeadline(time.Now().Add(time.Millisecond))
	raw, err := s.listener.Accept()
	_ = dl.SetDeadline(time.Time{})

	if err != nil {
		return
	}

	switch s.admission.tryAdmit(raw.RemoteAddr()) {
	case admitPerIPFull:
		s.metrics.onRejectIP()
		_ = raw.Close()
		return
	case admitDaemonFull, admitPolicyRejected:
		s.metrics.onReject()
		_ = raw.Close()
		return
	}

	s.metrics.onAccept()
	if s.cfg.NotifyConnection != nil {
		s.cfg.NotifyConnection(raw.RemoteAddr())
	}
	s.dispatch(raw)
}

// Collect reports the poll timeout an external-model host should pass to
// Wait. It is a fixed bound rather than a computed shortest-pending-
// timeout: every worker's Poller already holds its full interest set
// persistently (registration happens at connection accept/finish/suspend/
// resume time, not rebuilt per cycle), so there is no per-cycle wait set
// to derive a tighter bound from.
func (s *Scheduler) Collect() time.Duration {
	return waitTimeout
}

// Wait blocks up to maxWait for readiness events on the external worker
// (the sole worker New creates for ThreadExternal). Call Dispatch
// immediately after to act on what it found.
func (s *Scheduler) Wait(maxWait time.Duration) ([]ReadyFD, error) {
	if s.cfg.ThreadModel != types.ThreadExternal {
		return nil, fmt.Errorf("httpserver/sched: Wait is only valid for ThreadExternal")
	}
	return s.workers[0].waitOnce(maxWait)
}

// Dispatch accepts any pending connection, then ticks every fd the prior
// Wait reported ready plus the idle-timeout sweep. It is the
// ThreadExternal equivalent of one iteration of Run's worker loop; the
// host is expected to call Collect, Wait and Dispatch in a loop itself.
func (s *Scheduler) Dispatch(ready []ReadyFD) error {
	if s.cfg.ThreadModel != types.ThreadExternal {
		return fmt.Errorf("httpserver/sched: Dispatch is only valid for ThreadExternal")
	}
	s.acceptOnce()
	s.workers[0].dispatchOnce(ready)
	return nil
}

func (s *Scheduler) dispatch(raw net.Conn) {
	tp, err := s.wrapTransport(raw)
	if err != nil {
		s.admission.Release(raw.RemoteAddr())
		_ = raw.Close()
		return
	}

	c, err := conn.New(raw.RemoteAddr(), tp, s.cfg, s.log)
	if err != nil {
		s.admission.Release(raw.RemoteAddr())
		_ = raw.Close()
		return
	}

	fd, err := rawFd(raw)
	if err != nil {
		s.admission.Release(raw.RemoteAddr())
		_ = raw.Close()
		return
	}

	if s.cfg.ThreadModel == types.ThreadPerConnection {
		w, werr := newWorker(-1, s)
		if werr != nil {
			s.admission.Release(raw.RemoteAddr())
			_ = raw.Close()
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			w.register(fd, raw, c)
			w.loop()
		}()
		return
	}

	idx := int(atomic.AddUint64(&s.accept, 1)-1) % len(s.workers)
	s.workers[idx].register(fd, raw, c)
	s.workers[idx].wake.wake()
}

func (s *Scheduler) wrapTransport(raw net.Conn) (transport.Transport, error) {
	tc, ok := raw.(*net.TCPConn)
	if !ok {
		return nil, fmt.Errorf("httpserver/sched: accepted connection is not TCP")
	}

	if s.cfg.TLS == nil {
		return transport.NewPlain(tc), nil
	}

	ts := tls.Server(raw, s.cfg.TLS.TLS(""))
	return transport.NewTLS(ts), nil
}

func rawFd(raw net.Conn) (int, error) {
	tc, ok := raw.(*net.TCPConn)
	if !ok {
		return 0, fmt.Errorf("httpserver/sched: not a TCP connection")
	}

	rc, err := tc.SyscallConn()
	if err != nil {
		return 0, err
	}

	var fd int
	ctlErr := rc.Control(func(f uintptr) {
		fd = int(f)
	})
	if ctlErr != nil {
		return 0, ctlErr
	}

	return fd, nil
}

func (w *worker) register(fd int, raw net.Conn, c *conn.Connection) {
	w.mu.Lock()
	w.conn[fd] = &entry{fd: fd, raw: raw, c: c}
	w.mu.Unlock()

	_ = w.poller.Add(fd, types.ReadinessRecv|types.ReadinessSend)
}

// loop is the per-worker Wait/Tick/Dispatch cycle: it runs until the
// scheduler signals shutdown, at which point every live connection is
// ticked to drain its write buffer before the socket is closed.
func (w *worker) loop() {
	for {
		ready, err := w.waitOnce(waitTimeout)
		if err != nil {
			continue
		}

		w.dispatchOnce(ready)

		if (atomic.LoadInt32(&w.sc.closing) != 0 || w.id == -1) && w.empty() {
			if w.id == -1 {
				_ = w.poller.Close()
				_ = w.wake.Close()
			}
			return
		}
	}
}

// waitOnce blocks on the worker's Poller up to maxWait and returns the
// ready set, per spec.md's "wait(wait_set, max_wait) -> ready_set". The
// worker's Poller already holds its full interest set persistently (Add/
// Remove happen at register/finish/suspend/resume time), so there is no
// separate per-cycle collect step to rebuild a wait set from.
func (w *worker) waitOnce(maxWait time.Duration) ([]ReadyFD, error) {
	return w.poller.Wait(maxWait)
}

// dispatchOnce runs one tick cycle over a ready set: it drains the ITC
// wakeup, ticks every ready connection (draining TLS-buffered input behind
// an edge-triggered poller), then sweeps every connection the ready set
// didn't touch for an idle timeout, skipping suspended ones entirely.
func (w *worker) dispatchOnce(ready []ReadyFD) {
	now := time.Now()
	touched := make(map[int]bool, len(ready))

	for _, r := range ready {
		if r.Fd == w.wake.fd() {
			w.wake.drain()
			continue
		}

		touched[r.Fd] = true

		w.mu.Lock()
		e, ok := w.conn[r.Fd]
		w.mu.Unlock()
		if !ok {
			continue
		}

		e.c.SetReadiness(r.Readiness)
		e.c.Tick(now)

		// Edge-triggered epoll won't signal again until new bytes
		// arrive on the wire, but TLS may have decoded more than the
		// read buffer's single pass consumed; drain it here instead
		// of stalling until the peer sends more.
		for i := 0; i < maxBufferedInDrain && !e.c.Stage().Terminal() && e.c.HasBufferedIn(); i++ {
			e.c.SetReadiness(types.ReadinessRecv)
			e.c.Tick(now)
		}

		if e.c.Stage().Terminal() {
			w.finish(e)
		}
	}

	// Connections the poller didn't report on this round still need a
	// Tick to notice an idle timeout; a ready connection already ticked
	// above is skipped here, and a suspended one accrues no timeout at
	// all per its contract.
	w.mu.Lock()
	for fd, e := range w.conn {
		if touched[fd] || e.suspended || e.c.Stage().Terminal() {
			continue
		}
		e.c.Tick(now)
		if e.c.Stage().Terminal() {
			w.finishLocked(e)
		}
	}
	w.mu.Unlock()
}

func (w *worker) finish(e *entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.finishLocked(e)
}

func (w *worker) finishLocked(e *entry) {
	delete(w.conn, e.fd)
	_ = w.poller.Remove(e.fd)

	// An upgraded connection handed its socket to the user's callback; this
	// worker no longer owns the fd and must not close it.
	if !e.c.Upgraded() {
		_ = e.raw.Close()
	}

	w.sc.admission.Release(e.raw.RemoteAddr())
	w.sc.metrics.onComplete(e.c.TermReason())

	if w.sc.cfg.NotifyCompleted != nil {
		w.sc.cfg.NotifyCompleted(e.raw.RemoteAddr(), e.c.TermReason(), time.Now(), 0)
	}
}

func (w *worker) empty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.conn) == 0
}

// Suspend parks the connection identified by remote: it is pulled out of
// the poller's interest set and stops accruing idle timeout, but keeps its
// arena, TLS session and socket alive. Reports false if no live connection
// matches remote.
func (s *Scheduler) Suspend(remote net.Addr) bool {
	for _, w := range s.workers {
		if w.suspend(remote) {
			atomic.AddInt32(&s.suspended, 1)
			return true
		}
	}
	return false
}

// Resume moves a connection previously parked by Suspend back into its
// worker's active poll set.
func (s *Scheduler) Resume(remote net.Addr) bool {
	for _, w := range s.workers {
		if w.resume(remote) {
			atomic.AddInt32(&s.suspended, -1)
			return true
		}
	}
	return false
}

func (w *worker) suspend(remote net.Addr) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, e := range w.conn {
		if e.suspended || e.raw.RemoteAddr().String() != remote.String() {
			continue
		}
		_ = w.poller.Remove(e.fd)
		e.suspended = true
		w.sc.admission.SuspendIP(e.raw.RemoteAddr())
		return true
	}
	return false
}

func (w *worker) resume(remote net.Addr) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, e := range w.conn {
		if !e.suspended || e.raw.RemoteAddr().String() != remote.String() {
			continue
		}
		_ = w.poller.Add(e.fd, types.ReadinessRecv|types.ReadinessSend)
		e.suspended = false
		w.sc.admission.ResumeIP(e.raw.RemoteAddr())
		w.wake.wake()
		return true
	}
	return false
}

// Shutdown stops the accept loop, lets in-flight connections drain their
// current response (each worker keeps ticking until its connection set is
// empty or ctx expires), then closes the listen socket.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if atomic.LoadInt32(&s.suspended) > 0 {
		return ErrorSuspendedConnections.Error(nil)
	}

	if !atomic.CompareAndSwapInt32(&s.closing, 0, 1) {
		return nil
	}

	if s.ownsLstn {
		_ = s.listener.Close()
	}

	for _, w := range s.workers {
		w.wake.wake()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	for _, w := range s.workers {
		_ = w.poller.Close()
		_ = w.wake.Close()
	}

	return nil
}
