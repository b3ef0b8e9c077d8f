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

package httpserver

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nabbar/golib/httpserver/sched"
	"github.com/nabbar/golib/httpserver/types"
	liblog "github.com/nabbar/golib/logger"
)

// Daemon wires a validated Config into a running sched.Scheduler and
// exposes the lifecycle surface a host application actually calls.
// Nothing is bound or accepting connections until Start.
type Daemon struct {
	m sync.RWMutex

	cfg *types.Config
	log func() liblog.Logger

	sc        *sched.Scheduler
	running   bool
	startedAt time.Time
}

// New validates cfg and builds a Daemon from it. log may be nil, in which
// case a discarding logger is used. The listen socket is not bound until
// Start.
func New(cfg *types.Config, log func() liblog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrorConfigValidate.Error(nil)
	}

	if e := cfg.Validate(); e != nil {
		return nil, ErrorConfigValidate.Error(e)
	}

	if log == nil {
		l := liblog.New(context.Background())
		log = func() liblog.Logger {
			return l
		}
	}

	return &Daemon{
		cfg: cfg,
		log: log,
	}, nil
}

// Scheduler returns the Daemon's Scheduler once Start has been called,
// for a ThreadExternal host driving Collect/Wait/Dispatch itself, or for
// a caller that wants EnableMetrics wired before Start. Returns nil
// before the first Start.
func (d *Daemon) Scheduler() *sched.Scheduler {
	d.m.RLock()
	defer d.m.RUnlock()
	return d.sc
}

// EnableMetrics registers the daemon's Prometheus surface. Safe to call
// either before or after Start.
func (d *Daemon) EnableMetrics(reg prometheus.Registerer) error {
	d.m.RLock()
	sc := d.sc
	d.m.RUnlock()

	if sc == nil {
		return ErrorNotRunning.Error(nil)
	}
	return sc.EnableMetrics(reg)
}

// Start binds the listen socket and, unless Config.ThreadModel is
// ThreadExternal, begins accepting and serving connections in background
// goroutines. For ThreadExternal, Start only binds the socket; the host
// drives Scheduler().Collect/Wait/Dispatch itself.
func (d *Daemon) Start(ctx context.Context) error {
	d.m.Lock()
	defer d.m.Unlock()

	if d.running {
		return ErrorAlreadyRunning.Error(nil)
	}

	sc, err := sched.New(d.cfg, d.log)
	if err != nil {
		return ErrorServerStart.Error(err)
	}

	d.sc = sc
	d.running = true
	d.startedAt = time.Now()

	d.log().Entry(liblog.InfoLevel, "httpserver starting").
		FieldAdd("addr", sc.Addr().String()).Log()

	if d.cfg.ThreadModel == types.ThreadExternal {
		return nil
	}

	go func() {
		if e := sc.Run(ctx); e != nil {
			d.log().Entry(liblog.ErrorLevel, "httpserver stopped").ErrorAdd(true, e).Log()
		}

		d.m.Lock()
		d.running = false
		d.m.Unlock()
	}()

	return nil
}

// Stop gracefully shuts the daemon down: it refuses while any connection
// is suspended, per sched.Scheduler.Shutdown's contract, so the caller
// must Resume every suspended connection first.
func (d *Daemon) Stop(ctx context.Context) error {
	d.m.Lock()
	sc := d.sc
	wasRunning := d.running
	d.m.Unlock()

	if !wasRunning || sc == nil {
		return ErrorNotRunning.Error(nil)
	}

	if e := sc.Shutdown(ctx); e != nil {
		return ErrorServerStop.Error(e)
	}

	d.m.Lock()
	d.running = false
	d.m.Unlock()

	d.log().Entry(liblog.InfoLevel, "httpserver stopped").Log()
	return nil
}

// Restart stops then starts the daemon with its existing configuration.
func (d *Daemon) Restart(ctx context.Context) error {
	if e := d.Stop(ctx); e != nil {
		return e
	}
	return d.Start(ctx)
}

// IsRunning reports whether the daemon is currently accepting/serving
// connections.
func (d *Daemon) IsRunning() bool {
	d.m.RLock()
	defer d.m.RUnlock()
	return d.running
}

// Uptime reports how long the daemon has been running, or zero if it is
// not running.
func (d *Daemon) Uptime() time.Duration {
	d.m.RLock()
	defer d.m.RUnlock()

	if !d.running {
		return 0
	}
	return time.Since(d.startedAt)
}

// Addr reports the bound listen address, or nil before Start.
func (d *Daemon) Addr() net.Addr {
	d.m.RLock()
	defer d.m.RUnlock()

	if d.sc == nil {
		return nil
	}
	return d.sc.Addr()
}

// Suspend parks the connection identified by remote: resources stay
// alive but it stops accruing idle timeout and is invisible to the
// poller until Resume.
func (d *Daemon) Suspend(remote net.Addr) bool {
	d.m.RLock()
	sc := d.sc
	d.m.RUnlock()

	if sc == nil {
		return false
	}
	return sc.Suspend(remote)
}

// Resume reactivates a connection previously parked by Suspend.
func (d *Daemon) Resume(remote net.Addr) bool {
	d.m.RLock()
	sc := d.sc
	d.m.RUnlock()

	if sc == nil {
		return false
	}
	return sc.Resume(remote)
}
