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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nabbar/golib/httpserver/types"
)

// metrics is the opt-in Prometheus surface for one Scheduler. A nil
// *metrics (the zero value obtained without calling NewMetrics) makes
// every method a no-op, so wiring it in is never mandatory.
type metrics struct {
	active     prometheus.Gauge
	accepted   prometheus.Counter
	rejectedIP prometheus.Counter
	rejected   prometheus.Counter
	timedOut   prometheus.Counter
	completed  *prometheus.CounterVec
}

// NewMetrics builds the daemon's gauges/counters under the given constant
// labels (typically the bind address) and registers them with reg. The
// returned prometheus.Collector is also what reg.Register accepted, for a
// host that wants to unregister it later.
func NewMetrics(reg prometheus.Registerer, constLabels prometheus.Labels) (*metrics, error) {
	m := &metrics{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "httpserver",
			Name:        "active_connections",
			Help:        "Connections currently held by the scheduler.",
			ConstLabels: constLabels,
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "httpserver",
			Name:        "accepted_connections_total",
			Help:        "Connections accepted by the listen socket.",
			ConstLabels: constLabels,
		}),
		rejectedIP: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "httpserver",
			Name:        "rejected_per_ip_total",
			Help:        "Connections rejected by the per-IP connection cap.",
			ConstLabels: constLabels,
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "httpserver",
			Name:        "rejected_total",
			Help:        "Connections rejected by the daemon cap, accept policy or suspend.",
			ConstLabels: constLabels,
		}),
		timedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "httpserver",
			Name:        "idle_timeouts_total",
			Help:        "Connections closed for exceeding the idle timeout.",
			ConstLabels: constLabels,
		}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "httpserver",
			Name:        "completed_total",
			Help:        "Connections closed, labelled by termination reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{m.active, m.accepted, m.rejectedIP, m.rejected, m.timedOut, m.completed} {
		if reg != nil {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *metrics) onAccept() {
	if m == nil {
		return
	}
	m.accepted.Inc()
	m.active.Inc()
}

func (m *metrics) onRejectIP() {
	if m == nil {
		return
	}
	m.rejectedIP.Inc()
}

func (m *metrics) onReject() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}

func (m *metrics) onComplete(reason types.TermReason) {
	if m == nil {
		return
	}
	m.active.Dec()
	m.completed.WithLabelValues(reason.String()).Inc()
	if reason == types.TermTimedOut {
		m.timedOut.Inc()
	}
}
