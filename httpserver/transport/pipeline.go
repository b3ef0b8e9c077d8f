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

package transport

import (
	"net"
	"os"

	"github.com/nabbar/golib/httpserver/types"
)

// Hint tells the pipeline how eager to be about flushing a send.
type Hint uint8

const (
	// PushData flushes to the network immediately: no corking.
	PushData Hint = iota
	// PreferBuffer allows the kernel to batch with a following send.
	PreferBuffer
	// HeaderCork corks only when the header falls in the MTU sweet spot.
	HeaderCork
)

// Pipeline tracks the cork shadow state for one connection and exposes the
// three transmit primitives spec'd for the send path, plus Recv.
type Pipeline struct {
	t Transport
}

// NewPipeline wraps a Transport with the cork/NODELAY policy described for
// the send pipeline.
func NewPipeline(t Transport) *Pipeline {
	return &Pipeline{t: t}
}

func wantCork(hint Hint, headerLen int, final bool) bool {
	if final {
		return false
	}

	switch hint {
	case PushData:
		return false
	case PreferBuffer:
		return true
	case HeaderCork:
		return headerLen >= types.HeaderCorkLow && headerLen <= types.HeaderCorkHigh
	default:
		return false
	}
}

// SendBuffer sends a contiguous byte range. final indicates no further
// writes follow on this reply, so cork is cleared and flushed afterward.
func (p *Pipeline) SendBuffer(b []byte, hint Hint, final bool) (int, ErrClass) {
	if err := p.t.SetCork(wantCork(hint, len(b), final)); err != nil {
		return 0, ErrClassInternal
	}

	n, ec := p.t.Send(b)

	if final {
		_ = p.t.SetCork(false)
	}

	return n, ec
}

// SendHeaderAndBody attempts to send header and body as a single unit.
// Without a gather-write primitive the caller must treat a short send as
// header-only and retry the body separately; this implementation never
// interleaves the two buffers into one syscall itself, since net.Conn
// exposes no writev, so it corks across the pair instead.
func (p *Pipeline) SendHeaderAndBody(header []byte, body []byte, final bool) (int, int, ErrClass) {
	if err := p.t.SetCork(wantCork(HeaderCork, len(header), false)); err != nil {
		return 0, 0, ErrClassInternal
	}

	hn, ec := p.t.Send(header)
	if ec != ErrClassNone || hn < len(header) {
		return hn, 0, ec
	}

	if final {
		defer func() { _ = p.t.SetCork(false) }()
	}

	bn, ec := p.t.Send(body)
	return hn, bn, ec
}

// SendFromFile attempts a kernel-assisted file-to-socket copy. Callers
// must treat ErrClassOpNotSupp as "retry the same range as a userspace
// read", downshifting the reply's content location accordingly.
func (p *Pipeline) SendFromFile(f *os.File, offset int64, length int64, final bool) (int64, ErrClass) {
	if err := p.t.SetCork(!final); err != nil {
		return 0, ErrClassInternal
	}

	n, ec := p.t.SendFile(f, offset, length)

	if final {
		_ = p.t.SetCork(false)
	}

	return n, ec
}

// Recv reads into dest. The scheduler is expected to clear the
// connection's recv-ready bit whenever the returned count is less than
// len(dest), per the short-read convention the epoll back-end relies on.
func (p *Pipeline) Recv(dest []byte) (int, ErrClass) {
	return p.t.Recv(dest)
}

// HasBufferedIn reports whether the underlying transport may still have
// decoded application data waiting after the last Recv.
func (p *Pipeline) HasBufferedIn() bool {
	return p.t.HasBufferedIn()
}

func (p *Pipeline) Close() error {
	return p.t.Close()
}

// Conn returns the underlying net.Conn for a protocol upgrade handoff.
func (p *Pipeline) Conn() net.Conn {
	return p.t.Conn()
}
