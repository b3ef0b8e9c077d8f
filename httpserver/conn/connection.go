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

package conn

import (
	"net"
	"os"
	"time"

	"github.com/nabbar/golib/httpserver/pool"
	"github.com/nabbar/golib/httpserver/proto"
	"github.com/nabbar/golib/httpserver/transport"
	"github.com/nabbar/golib/httpserver/types"
	liblog "github.com/nabbar/golib/logger"
)

// Connection is one accepted socket and everything the state machine needs
// to drive it: an arena-backed read/write buffer pair, the parsed request
// so far, and the resolved reply once the handler has run. The scheduler
// owns the goroutine (or thread-per-connection) that calls Tick; nothing
// here starts background work of its own.
type Connection struct {
	remote   net.Addr
	pipeline *transport.Pipeline
	arena    *pool.Arena
	cfg      *types.Config
	log      func() liblog.Logger

	stage     types.Stage
	readiness types.Readiness

	readBuf []byte
	readLen int
	readOff int

	reqLine   proto.RequestLine
	reqHeader types.Header
	keepAlive types.KeepAliveDecision

	bodyLength    int64
	bodyRemaining int64
	bodyChunked   bool
	chunkDec      *proto.ChunkDecoder
	body          []byte

	resp            *types.Response
	bodyOut         []byte
	bodyOutOff      int
	bodyDone        bool
	bodyFile        *os.File
	fileOff         int64
	fileRemaining   int64
	writeBuf        []byte
	writeLen        int
	writeOff        int
	sendFinal       bool
	contentLocation types.ContentLocation
	upgraded        bool

	startedAt    time.Time
	lastActivity time.Time

	termReason types.TermReason
}

// New allocates a connection over a freshly-sized arena. readCap/writeCap
// split the per-connection memory budget between the read and write
// buffers, each reserved once from the arena's tail side for the
// connection's lifetime.
func New(remote net.Addr, t transport.Transport, cfg *types.Config, log func() liblog.Logger) (*Connection, error) {
	budget := cfg.ConnectionMemoryLimit
	if budget <= 0 {
		budget = types.DefaultConnectionMemoryLimit
	}

	readCap := budget / 2
	writeCap := budget - readCap

	a := pool.New(budget)

	rb, err := a.AppendRead(readCap)
	if err != nil {
		return nil, err
	}

	wb, err := a.AppendWrite(writeCap)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	return &Connection{
		remote:       remote,
		pipeline:     transport.NewPipeline(t),
		arena:        a,
		cfg:          cfg,
		log:          log,
		stage:        types.StageInit,
		readBuf:      rb,
		writeBuf:     wb,
		startedAt:    now,
		lastActivity: now,
	}, nil
}

// Stage reports the connection's current protocol phase.
func (c *Connection) Stage() types.Stage {
	return c.stage
}

// RemoteAddr is the connection's peer address.
func (c *Connection) RemoteAddr() net.Addr {
	return c.remote
}

// SetReadiness is called by the scheduler after a poll event to record
// which directions became actionable.
func (c *Connection) SetReadiness(r types.Readiness) {
	c.readiness = c.readiness.Set(r)
}

// TermReason reports why a terminal connection closed, for the
// NotifyCompleted callback.
func (c *Connection) TermReason() types.TermReason {
	return c.termReason
}

// Upgraded reports whether this connection handed its socket off to a
// protocol-upgrade callback. The scheduler uses this to skip closing the
// raw fd when reaping the connection.
func (c *Connection) Upgraded() bool {
	return c.upgraded
}

// HasBufferedIn reports whether the transport may still hold decoded
// application data after the last Recv, so the scheduler should keep
// ticking this connection even though an edge-triggered poller will not
// report another readiness event until new bytes arrive on the wire.
func (c *Connection) HasBufferedIn() bool {
	return c.pipeline.HasBufferedIn()
}

// Tick runs the three-pass contract once: I/O, then parse/build, then
// idle (timeout) checks.
func (c *Connection) Tick(now time.Time) {
	c.ioPass()
	c.parseBuildPass(now)
	c.idlePass(now)
}

func (c *Connection) ioPass() {
	if c.stage.WantsRecv() && c.readiness.Has(types.ReadinessRecv) {
		c.recv()
	}

	if c.stage.WantsSend() && c.readiness.Has(types.ReadinessSend) {
		c.send()
	}
}

func (c *Connection) recv() {
	room := len(c.readBuf) - c.readLen
	if room <= 0 {
		return
	}

	n, ec := c.pipeline.Recv(c.readBuf[c.readLen : c.readLen+room])

	if ec == transport.ErrClassNone && n == 0 {
		c.fail(types.TermClientAbort)
		return
	}

	if n > 0 {
		c.readLen += n
		c.lastActivity = time.Now()
	}

	if ec.Hard() {
		c.fail(types.TermReadError)
		return
	}

	if n < room {
		c.readiness = c.readiness.Clear(types.ReadinessRecv)
	}
}

func (c *Connection) send() {
	if c.stage == types.StageHeadersSending && c.writeOff == 0 && c.canCombineHeaderAndBody() {
		c.sendHeaderAndBody()
		return
	}

	if c.contentLocation == types.ContentLocationFile && c.stage == types.StageUnchunkedBodyReady {
		c.sendFile()
		return
	}

	pending := c.writeBuf[c.writeOff:c.writeLen]
	if len(pending) == 0 {
		return
	}

	n, ec := c.pipeline.SendBuffer(pending, transport.HeaderCork, c.sendFinal)
	if n > 0 {
		c.writeOff += n
		c.lastActivity = time.Now()
	}

	if ec.Hard() {
		c.fail(types.TermWriteError)
		return
	}

	if n < len(pending) {
		c.readiness = c.readiness.Clear(types.ReadinessSend)
	}
}

// canCombineHeaderAndBody reports whether the reply's body is already fully
// buffered in memory, so headers and body can be attempted as a single send
// pair instead of waiting a tick for UNCHUNKED_BODY_UNREADY to frame it.
func (c *Connection) canCombineHeaderAndBody() bool {
	return c.resp != nil && !c.resp.Chunked && !c.resp.HeadOnly &&
		c.contentLocation != types.ContentLocationFile && len(c.bodyOut) > 0
}

func (c *Connection) sendHeaderAndBody() {
	header := c.writeBuf[:c.writeLen]
	hn, bn, ec := c.pipeline.SendHeaderAndBody(header, c.bodyOut, true)

	if hn > 0 {
		c.writeOff += hn
		c.lastActivity = time.Now()
	}
	if bn > 0 {
		c.bodyOutOff += bn
		c.lastActivity = time.Now()
	}

	if ec.Hard() {
		c.fail(types.TermWriteError)
		return
	}

	if c.writeOff < c.writeLen {
		c.readiness = c.readiness.Clear(types.ReadinessSend)
		return
	}

	switch {
	case c.bodyOutOff >= len(c.bodyOut):
		c.stage = types.StageFullReplySent
	case bn > 0:
		c.stage = types.StageUnchunkedBodyReady
	default:
		c.readiness = c.readiness.Clear(types.ReadinessSend)
	}
}

// sendFile drives the sendfile fast path. ErrClassOpNotSupp means the
// transport cannot do a kernel-assisted copy (TLS, or a platform without
// sendfile support) and downshifts the remaining range to a userspace read
// served out of the response buffer, per spec.md's content-location policy.
func (c *Connection) sendFile() {
	n, ec := c.pipeline.SendFromFile(c.bodyFile, c.fileOff, c.fileRemaining, true)

	if ec == transport.ErrClassOpNotSupp {
		c.downshiftFileToBuffer()
		return
	}

	if n > 0 {
		c.fileOff += n
		c.fileRemaining -= n
		c.lastActivity = time.Now()
	}

	if ec.Hard() {
		c.fail(types.TermWriteError)
		return
	}

	if c.fileRemaining <= 0 {
		c.stage = types.StageFullReplySent
	} else {
		c.readiness = c.readiness.Clear(types.ReadinessSend)
	}
}

func (c *Connection) downshiftFileToBuffer() {
	buf := make([]byte, c.fileRemaining)
	n, _ := c.bodyFile.ReadAt(buf, c.fileOff)

	c.bodyOut = buf[:n]
	c.bodyOutOff = 0
	c.bodyFile = nil
	c.fileOff = 0
	c.fileRemaining = 0
	c.contentLocation = types.ContentLocationConnBuffer
	c.stage = types.StageUnchunkedBodyUnready
}

func (c *Connection) fail(reason types.TermReason) {
	c.termReason = reason
	c.stage = types.StagePreClosing

	if reason == types.TermReadError || reason == types.TermWriteError {
		c.log().Entry(liblog.DebugLevel, "connection terminated").
			FieldAdd("remote", c.remote.String()).
			FieldAdd("reason", reason.String()).
			Log()
	}
}

func (c *Connection) resetWriteBuffer() {
	c.writeLen = 0
	c.writeOff = 0
}

// pending reports the unparsed bytes still sitting in the read buffer.
func (c *Connection) pending() []byte {
	return c.readBuf[c.readOff:c.readLen]
}

func (c *Connection) consume(n int) {
	c.readOff += n
}

// compact memmoves any unconsumed bytes to offset 0, per spec.md's
// pipelined-request handling.
func (c *Connection) compact() {
	if c.readOff == 0 {
		return
	}

	n := copy(c.readBuf, c.readBuf[c.readOff:c.readLen])
	c.readLen = n
	c.readOff = 0
}
