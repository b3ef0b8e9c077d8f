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
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nabbar/golib/httpserver/proto"
	"github.com/nabbar/golib/httpserver/types"
)

// parseBuildPass advances the state machine by exactly one stage transition
// per Tick, per spec.md §4.1. Each case either consumes newly arrived bytes
// from the read buffer, builds the outgoing reply, or moves the stage
// forward once the previous pass's I/O has drained.
func (c *Connection) parseBuildPass(now time.Time) {
	switch c.stage {
	case types.StageInit:
		c.stage = types.StageReqLineReceiving

	case types.StageReqLineReceiving:
		c.recvRequestLine()

	case types.StageReqLineReceived:
		c.reqHeader = types.Header{}
		c.stage = types.StageReqHeadersReceiving

	case types.StageReqHeadersReceiving:
		c.recvHeaders()

	case types.StageHeadersReceived:
		c.processHeaders()

	case types.StageHeadersProcessed:
		if c.bodyChunked || c.bodyRemaining > 0 {
			c.stage = types.StageBodyReceiving
		} else {
			c.stage = types.StageFullReqReceived
		}

	case types.StageBodyReceiving:
		c.recvBody()

	case types.StageBodyReceived:
		if c.bodyChunked {
			c.stage = types.StageFootersReceiving
		} else {
			c.stage = types.StageFullReqReceived
		}

	case types.StageFootersReceiving:
		// Trailer lines are already consumed by the chunk decoder's trailer
		// state; this design does not surface them to the handler.
		c.stage = types.StageFootersReceived

	case types.StageFootersReceived:
		c.stage = types.StageFullReqReceived

	case types.StageFullReqReceived:
		c.stage = types.StageReqRecvFinished

	case types.StageReqRecvFinished:
		c.stage = types.StageStartReply

	case types.StageContinueSending:
		if c.writeOff >= c.writeLen {
			c.stage = types.StageHeadersProcessed
		}

	case types.StageStartReply:
		c.invokeHandler()

	case types.StageHeadersSending:
		if c.writeOff >= c.writeLen {
			c.stage = types.StageHeadersSent
		}

	case types.StageHeadersSent:
		c.startBody()

	case types.StageUnchunkedBodyUnready:
		if c.contentLocation != types.ContentLocationFile {
			c.prepareBodySend()
		}
		c.stage = types.StageUnchunkedBodyReady

	case types.StageUnchunkedBodyReady:
		if c.contentLocation == types.ContentLocationFile {
			if c.fileRemaining <= 0 {
				c.stage = types.StageFullReplySent
			}
			return
		}

		if c.writeOff >= c.writeLen {
			if c.bodyOutOff >= len(c.bodyOut) {
				c.stage = types.StageFullReplySent
			} else {
				c.stage = types.StageUnchunkedBodyUnready
			}
		}

	case types.StageUpgradeHeadersSending:
		if c.writeOff >= c.writeLen {
			c.stage = types.StageUpgrading
		}

	case types.StageUpgrading:
		c.doUpgrade()

	case types.StageUpgraded:
		c.stage = types.StageUpgradedCleaning

	case types.StageUpgradedCleaning:
		c.termReason = types.TermCompletedOk
		c.stage = types.StageClosed

	case types.StageChunkedBodyUnready:
		c.prepareBodySend()
		c.stage = types.StageChunkedBodyReady

	case types.StageChunkedBodyReady:
		if c.writeOff >= c.writeLen {
			if c.bodyDone {
				c.stage = types.StageChunkedBodySent
			} else {
				c.stage = types.StageChunkedBodyUnready
			}
		}

	case types.StageChunkedBodySent:
		// No response trailers are modeled; skip straight past FOOTERS_SENDING.
		c.stage = types.StageFootersSending

	case types.StageFootersSending:
		c.stage = types.StageFullReplySent

	case types.StageFullReplySent:
		c.finishRequest()

	case types.StagePreClosing:
		c.stage = types.StageClosed
	}
}

// idlePass closes connections that have gone quiet past ConnectionTimeout.
func (c *Connection) idlePass(now time.Time) {
	if c.stage.Terminal() {
		return
	}

	if c.cfg.ConnectionTimeout <= 0 {
		return
	}

	if now.Sub(c.lastActivity) > c.cfg.ConnectionTimeout {
		c.fail(types.TermTimedOut)
	}
}

func (c *Connection) recvRequestLine() {
	data := c.pending()

	idx := proto.FindCRLF(data)
	if idx < 0 {
		if c.maxURILength() > 0 && len(data) > c.maxURILength() {
			c.respondError(414)
		}
		return
	}

	rl, err := proto.ParseRequestLine(data[:idx])
	if err != nil {
		c.respondError(400)
		return
	}

	c.consume(idx + 2)
	c.reqLine = rl
	c.stage = types.StageReqLineReceived
}

func (c *Connection) maxURILength() int {
	if c.cfg.MaxURILength > 0 {
		return c.cfg.MaxURILength
	}
	return types.DefaultMaxURILength
}

func (c *Connection) recvHeaders() {
	data := c.pending()

	end := bytes.Index(data, []byte("\r\n\r\n"))
	if end < 0 {
		if len(data) >= len(c.readBuf) {
			c.respondError(431)
		}
		return
	}

	h, err := proto.ParseHeaderBlock(data[:end])
	if err != nil {
		c.respondError(400)
		return
	}

	c.consume(end + 4)
	c.reqHeader = h
	c.stage = types.StageHeadersReceived
}

func (c *Connection) processHeaders() {
	major, minor := c.reqLine.VersionMajor, c.reqLine.VersionMinor

	// HTTP/1.0 does not mandate Host; only reject it missing for 1.1.
	if _, ok := proto.ResolveHost(c.reqHeader, c.reqLine.Target); !ok && major == 1 && minor == 1 {
		c.respondError(400)
		return
	}

	c.keepAlive = proto.KeepAlive(major, minor, c.reqHeader)

	te := strings.ToLower(c.reqHeader.Get("Transfer-Encoding"))
	cl := c.reqHeader.Get("Content-Length")

	switch {
	case te == "chunked":
		c.bodyChunked = true
		c.chunkDec = proto.NewChunkDecoder()
	case cl != "":
		n, perr := strconv.ParseInt(cl, 10, 64)
		if perr != nil || n < 0 {
			c.respondError(400)
			return
		}
		c.bodyLength = n
		c.bodyRemaining = n
	}

	hasBody := c.bodyChunked || c.bodyRemaining > 0
	expectContinue := strings.EqualFold(c.reqHeader.Get("Expect"), "100-continue")

	if expectContinue && hasBody {
		accept := true
		if c.cfg.AcceptBody != nil {
			accept = c.cfg.AcceptBody(c.remote, c.reqLine.Method, c.reqLine.Target, c.reqHeader)
		}

		if !accept {
			c.respondError(417)
			return
		}

		c.buildContinue()
		return
	}

	c.stage = types.StageHeadersProcessed
}

// buildContinue stages the 100 Continue interim response. It carries no
// headers of its own and is never subject to the ForceHTTP10/chunked
// response-option machinery that governs the final reply.
func (c *Connection) buildContinue() {
	c.resetWriteBuffer()
	n := copy(c.writeBuf, []byte("HTTP/1.1 100 Continue\r\n\r\n"))
	c.writeLen = n
	c.sendFinal = false
	c.stage = types.StageContinueSending
}

func (c *Connection) recvBody() {
	if c.bodyChunked {
		consumed, data, needMore, err := c.chunkDec.Feed(c.pending())
		if err != nil {
			c.respondError(400)
			return
		}

		c.consume(consumed)
		if len(data) > 0 {
			c.body = append(c.body, data...)
		}

		if !needMore && c.chunkDec.Done() {
			c.stage = types.StageBodyReceived
		}
		return
	}

	avail := c.pending()
	take := int64(len(avail))
	if take > c.bodyRemaining {
		take = c.bodyRemaining
	}

	if take > 0 {
		c.body = append(c.body, avail[:take]...)
		c.consume(int(take))
		c.bodyRemaining -= take
	}

	if c.bodyRemaining == 0 {
		c.stage = types.StageBodyReceived
	}
}

func (c *Connection) invokeHandler() {
	req := &types.Request{
		Method: c.reqLine.Method,
		Target: c.reqLine.Target,
		Proto:  httpProto(c.reqLine.VersionMajor, c.reqLine.VersionMinor),
		Header: c.reqHeader,
	}

	if len(c.body) > 0 {
		req.Body = bytes.NewReader(c.body)
	}

	resp, err := c.safeInvoke(req)
	if err != nil || resp == nil {
		c.respondError(500)
		return
	}

	c.resp = resp
	c.buildReply()
}

func (c *Connection) safeInvoke(req *types.Request) (resp *types.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrorHandlerPanic.Error(nil)
		}
	}()

	if c.cfg.Handler == nil {
		return nil, ErrorInvariantViolation.Error(nil)
	}

	return c.cfg.Handler(c.remote, req)
}

func httpProto(major, minor int) string {
	return "HTTP/" + strconv.Itoa(major) + "." + strconv.Itoa(minor)
}

// buildReply reads the handler's response body into memory (this design
// buffers rather than streams) and serializes the status line and headers
// into the write buffer. A Response carrying Upgrade skips all of this and
// goes through buildUpgradeReply instead. A Response whose File.Reader is a
// real *os.File is served through the sendfile content location rather than
// read fully into the arena.
func (c *Connection) buildReply() {
	if c.resp.Upgrade != nil {
		c.buildUpgradeReply()
		return
	}

	forceHTTP10 := c.resp.ForceHTTP10
	connClose := c.resp.ConnClose

	if c.resp.HTTP10CompatibleStrict {
		forceHTTP10 = true
		connClose = true
		c.resp.Chunked = false
	}

	keepAlive := c.keepAlive == types.KeepAliveMayReuse && !connClose

	switch {
	case c.resp.HeadOnly:
		c.contentLocation = types.ContentLocationResponseBuffer
	case c.resp.Body != nil:
		data, _ := io.ReadAll(c.resp.Body)
		c.bodyOut = data
		if c.resp.BodyLength >= 0 {
			c.resp.BodyLength = int64(len(data))
		}
		c.contentLocation = types.ContentLocationResponseBuffer
	case c.resp.File.Reader != nil:
		if f, ok := c.resp.File.Reader.(*os.File); ok {
			c.bodyFile = f
			c.fileOff = c.resp.File.Offset
			c.fileRemaining = c.resp.File.Length
			c.resp.BodyLength = c.resp.File.Length
			c.contentLocation = types.ContentLocationFile
		} else {
			buf := make([]byte, c.resp.File.Length)
			n, _ := c.resp.File.Reader.ReadAt(buf, c.resp.File.Offset)
			c.bodyOut = buf[:n]
			c.resp.BodyLength = int64(n)
			c.contentLocation = types.ContentLocationResponseBuffer
		}
	default:
		c.contentLocation = types.ContentLocationResponseBuffer
	}

	opts := proto.BuilderOptions{
		HeadOnly:            c.resp.HeadOnly,
		ForceHTTP10:         forceHTTP10,
		InsaneContentLength: c.resp.InsaneContentLength,
	}
	header := proto.BuildStatusLineAndHeaders(c.resp, keepAlive, opts, time.Now())

	c.resetWriteBuffer()
	n := copy(c.writeBuf, header)
	c.writeLen = n
	c.sendFinal = len(c.bodyOut) == 0 && c.bodyFile == nil

	c.stage = types.StageHeadersSending
}

// buildUpgradeReply serializes a 101 status line. The handler is responsible
// for setting the Upgrade/Connection headers on Response.Header; no body
// framing headers are added since an upgraded reply carries no body.
func (c *Connection) buildUpgradeReply() {
	header := proto.BuildStatusLineAndHeaders(c.resp, true, proto.BuilderOptions{HeadOnly: true}, time.Now())

	c.resetWriteBuffer()
	n := copy(c.writeBuf, header)
	c.writeLen = n
	c.sendFinal = true
	c.contentLocation = types.ContentLocationResponseBuffer

	c.stage = types.StageUpgradeHeadersSending
}

// doUpgrade hands the raw connection and any bytes already read past the
// request off to the handler's Upgrade callback. The connection stops
// driving recv/send once this runs; the scheduler reaps it without closing
// the socket, since the callback now owns it.
func (c *Connection) doUpgrade() {
	extraIn := append([]byte(nil), c.pending()...)
	raw := c.pipeline.Conn()
	fn := c.resp.Upgrade

	c.upgraded = true
	c.stage = types.StageUpgraded

	if fn != nil {
		fn(raw, extraIn)
	}
}

func (c *Connection) startBody() {
	if c.contentLocation == types.ContentLocationFile {
		if c.fileRemaining <= 0 {
			c.stage = types.StageFullReplySent
			return
		}
		c.stage = types.StageUnchunkedBodyReady
		return
	}

	if len(c.bodyOut) == 0 {
		c.stage = types.StageFullReplySent
		return
	}

	if c.resp.Chunked {
		c.stage = types.StageChunkedBodyUnready
	} else {
		c.stage = types.StageUnchunkedBodyUnready
	}
}

// prepareBodySend loads the next framed slice of bodyOut into the write
// buffer, chunk-encoding it when the reply is chunked.
func (c *Connection) prepareBodySend() {
	remaining := c.bodyOut[c.bodyOutOff:]
	capacity := len(c.writeBuf)

	if !c.resp.Chunked {
		take := len(remaining)
		if take > capacity {
			take = capacity
		}

		c.resetWriteBuffer()
		n := copy(c.writeBuf, remaining[:take])
		c.writeLen = n
		c.bodyOutOff += take
		c.sendFinal = c.bodyOutOff >= len(c.bodyOut)
		return
	}

	if len(remaining) == 0 {
		c.resetWriteBuffer()
		n := copy(c.writeBuf, []byte("0\r\n\r\n"))
		c.writeLen = n
		c.sendFinal = true
		c.bodyDone = true
		return
	}

	take := len(remaining)
	overhead := len(strconv.FormatInt(int64(take), 16)) + 4
	for take > 0 && take+overhead > capacity {
		take--
		overhead = len(strconv.FormatInt(int64(take), 16)) + 4
	}

	c.resetWriteBuffer()
	n := copy(c.writeBuf, []byte(strconv.FormatInt(int64(take), 16)+"\r\n"))
	n += copy(c.writeBuf[n:], remaining[:take])
	n += copy(c.writeBuf[n:], []byte("\r\n"))
	c.writeLen = n
	c.bodyOutOff += take
	c.sendFinal = false
}

func (c *Connection) respondError(status int) {
	c.resp = &types.Response{Status: status, Header: types.Header{}, BodyLength: 0, ConnClose: true}
	c.keepAlive = types.KeepAliveMustClose
	c.buildReply()
	c.termReason = types.TermWithError
}

func (c *Connection) finishRequest() {
	if c.keepAlive == types.KeepAliveMayReuse {
		c.compact()
		c.resetForNextRequest()
		c.stage = types.StageInit
		return
	}

	c.stage = types.StagePreClosing
}

func (c *Connection) resetForNextRequest() {
	c.reqLine = proto.RequestLine{}
	c.reqHeader = types.Header{}
	c.keepAlive = types.KeepAliveMustClose

	c.bodyLength = 0
	c.bodyRemaining = 0
	c.bodyChunked = false
	c.chunkDec = nil
	c.body = nil

	c.resp = nil
	c.bodyOut = nil
	c.bodyOutOff = 0
	c.bodyDone = false
	c.bodyFile = nil
	c.fileOff = 0
	c.fileRemaining = 0
	c.contentLocation = types.ContentLocationResponseBuffer

	c.resetWriteBuffer()
	c.sendFinal = false
}
