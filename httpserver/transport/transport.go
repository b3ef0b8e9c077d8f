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
	"crypto/tls"
	"net"
	"os"
)

// Transport is either a plain TCP socket or a TLS session. The send
// pipeline dispatches through this interface so the cork/NODELAY bypass
// TLS requires falls out of which implementation is in play, not a
// boolean checked at every call site.
type Transport interface {
	Recv(dest []byte) (int, ErrClass)
	Send(b []byte) (int, ErrClass)

	// SendFile attempts a kernel-assisted copy of length bytes starting at
	// offset in f to the peer. Implementations that cannot do this return
	// ErrClassOpNotSupp so the caller falls back to a userspace read+Send.
	SendFile(f *os.File, offset int64, length int64) (int64, ErrClass)

	// SetCork toggles TCP_CORK/TCP_NOPUSH. A TLS transport makes this a
	// no-op: TLS records are the unit of transmission, so corking at the
	// TCP layer buys nothing.
	SetCork(on bool) error

	// HasBufferedIn reports whether a previous Recv may have left
	// application data decoded but unread, so the connection should stay
	// on the scheduler's ready list without waiting for another poll
	// event. Always false for a plain transport.
	HasBufferedIn() bool

	RemoteAddr() net.Addr
	Close() error

	// Conn returns the underlying net.Conn, for a protocol upgrade handing
	// the raw socket off to a user callback. The transport keeps no state
	// about the handoff; the caller owns the connection from that point on.
	Conn() net.Conn
}

// plainTransport is a raw TCP socket. Cork state is shadowed so SetCork
// never issues a redundant setsockopt.
type plainTransport struct {
	conn      *net.TCPConn
	corked    bool
	corkKnown bool
}

// NewPlain wraps an already-accepted TCP connection.
func NewPlain(conn *net.TCPConn) Transport {
	return &plainTransport{conn: conn}
}

func (t *plainTransport) Recv(dest []byte) (int, ErrClass) {
	n, err := t.conn.Read(dest)
	return n, Classify(err)
}

func (t *plainTransport) Send(b []byte) (int, ErrClass) {
	n, err := t.conn.Write(b)
	return n, Classify(err)
}

func (t *plainTransport) SendFile(f *os.File, offset int64, length int64) (int64, ErrClass) {
	if !sendfileSupported {
		return 0, ErrClassOpNotSupp
	}

	var sent int64
	var classErr ErrClass

	rc, err := t.conn.SyscallConn()
	if err != nil {
		return 0, Classify(err)
	}

	ctlErr := rc.Control(func(dstFd uintptr) {
		n, _, serr := sendfile(int(dstFd), int(f.Fd()), offset, int(length))
		sent = int64(n)
		classErr = Classify(serr)
	})
	if ctlErr != nil {
		return sent, Classify(ctlErr)
	}

	return sent, classErr
}

func (t *plainTransport) SetCork(on bool) error {
	if !corkSupported || t.corkKnown && t.corked == on {
		return nil
	}

	rc, err := t.conn.SyscallConn()
	if err != nil {
		return err
	}

	var corkErr error
	ctlErr := rc.Control(func(fd uintptr) {
		corkErr = setCork(int(fd), on)
	})
	if ctlErr != nil {
		return ctlErr
	}
	if corkErr != nil {
		return corkErr
	}

	t.corked = on
	t.corkKnown = true
	return nil
}

func (t *plainTransport) HasBufferedIn() bool {
	return false
}

func (t *plainTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

func (t *plainTransport) Close() error {
	return t.conn.Close()
}

func (t *plainTransport) Conn() net.Conn {
	return t.conn
}

// tlsTransport wraps an established *tls.Conn. SetCork and SendFile are
// no-ops/unsupported by design: there is no raw fd worth corking once
// the record layer owns framing, and sendfile cannot encrypt on the fly.
type tlsTransport struct {
	conn     *tls.Conn
	lastFull bool
}

// NewTLS wraps a TLS connection whose handshake has already completed.
func NewTLS(conn *tls.Conn) Transport {
	return &tlsTransport{conn: conn}
}

func (t *tlsTransport) Recv(dest []byte) (int, ErrClass) {
	n, err := t.conn.Read(dest)
	t.lastFull = err == nil && n == len(dest) && n > 0
	return n, Classify(err)
}

func (t *tlsTransport) Send(b []byte) (int, ErrClass) {
	n, err := t.conn.Write(b)
	return n, Classify(err)
}

func (t *tlsTransport) SendFile(_ *os.File, _ int64, _ int64) (int64, ErrClass) {
	return 0, ErrClassOpNotSupp
}

func (t *tlsTransport) SetCork(_ bool) error {
	return nil
}

// HasBufferedIn approximates libmicrohttpd's tls_has_data_in: the stdlib
// does not expose the record layer's buffered-plaintext length, so a
// Recv that filled the destination buffer entirely is treated as a sign
// more decoded data may be waiting without another socket event.
func (t *tlsTransport) HasBufferedIn() bool {
	return t.lastFull
}

func (t *tlsTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

func (t *tlsTransport) Close() error {
	return t.conn.Close()
}

func (t *tlsTransport) Conn() net.Conn {
	return t.conn
}
