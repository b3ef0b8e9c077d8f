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

// Package httpserver is an embeddable HTTP/1.x server core: a per-
// connection state machine driven by a daemon scheduler instead of
// goroutine-per-request, so the host controls exactly how many OS threads
// the server ever touches.
//
// # Subpackages
//
//   - httpserver/types: Config, the request/response surface handed to the
//     application handler, and the connection stage/readiness vocabulary
//     shared by every other subpackage.
//   - httpserver/pool: the per-connection bump-allocator arena backing
//     read/write buffers, so a connection's memory footprint is a single
//     contiguous allocation rather than a scatter of small buffers.
//   - httpserver/transport: the socket abstraction (plain TCP or TLS) and
//     cork/sendfile policy the connection state machine drives.
//   - httpserver/proto: the HTTP/1.x request-line and header parser,
//     chunked transfer decoder and response builder.
//   - httpserver/conn: the per-connection state machine itself (Tick).
//   - httpserver/sched: the daemon scheduler — select/poll/epoll back-
//     ends, admission control, and the accept/dispatch loop.
//
// Daemon, in this package, wires a validated types.Config into a running
// sched.Scheduler and exposes the lifecycle surface (Start, Stop, Restart,
// IsRunning) a host application actually calls.
//
// # Basic usage
//
//	cfg := &types.Config{
//		SockAddr: "0.0.0.0:8080",
//		Handler: func(remote net.Addr, req *types.Request) (*types.Response, error) {
//			return &types.Response{Status: 200, Body: strings.NewReader("ok"), BodyLength: 2}, nil
//		},
//	}
//
//	d, err := httpserver.New(cfg, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := d.Start(context.Background()); err != nil {
//		log.Fatal(err)
//	}
//	defer d.Stop(context.Background())
//
// # ThreadModel and the external loop
//
// Config.ThreadModel selects how the scheduler is driven: ThreadSingle and
// ThreadPool run their own goroutines under Start, as does
// ThreadPerConnection (one goroutine per accepted socket). ThreadExternal
// instead hands the host three methods on the Scheduler returned by
// Daemon.Scheduler — Collect, Wait and Dispatch — so the host runs its own
// loop on its own schedule instead of Start spawning anything.
package httpserver
