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
	"errors"
	"io"
	"net"
	"syscall"
)

// ErrClass is the socket error taxonomy every layer above transport shares:
// the connection state machine only ever branches on this enum, never on a
// raw errno or net.OpError.
type ErrClass uint8

const (
	ErrClassNone ErrClass = iota
	ErrClassAgain
	ErrClassIntr
	ErrClassNoMem
	ErrClassRemoteDisconnected
	ErrClassConnReset
	ErrClassConnBroken
	ErrClassNotConn
	ErrClassPipe
	ErrClassTLS
	ErrClassBadFd
	ErrClassInval
	ErrClassOpNotSupp
	ErrClassNotSock
	ErrClassInternal
)

func (c ErrClass) String() string {
	switch c {
	case ErrClassNone:
		return "none"
	case ErrClassAgain:
		return "again"
	case ErrClassIntr:
		return "intr"
	case ErrClassNoMem:
		return "no-mem"
	case ErrClassRemoteDisconnected:
		return "remote-disconnected"
	case ErrClassConnReset:
		return "conn-reset"
	case ErrClassConnBroken:
		return "conn-broken"
	case ErrClassNotConn:
		return "not-conn"
	case ErrClassPipe:
		return "pipe"
	case ErrClassTLS:
		return "tls"
	case ErrClassBadFd:
		return "bad-fd"
	case ErrClassInval:
		return "inval"
	case ErrClassOpNotSupp:
		return "op-not-supp"
	case ErrClassNotSock:
		return "not-sock"
	case ErrClassInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Retryable reports whether the connection may simply try the same
// operation again on the next readiness event.
func (c ErrClass) Retryable() bool {
	return c == ErrClassAgain || c == ErrClassIntr
}

// Hard reports whether the error drives the connection to PRE_CLOSING.
func (c ErrClass) Hard() bool {
	return c != ErrClassNone && !c.Retryable()
}

// Classify maps a raw error from a Recv/Send/SendFile call to the shared
// ErrClass taxonomy, the same closed-enum shape bassosimone-nop/errclass
// uses for measurement-oriented socket error classification.
func Classify(err error) ErrClass {
	if err == nil {
		return ErrClassNone
	}

	if err == io.EOF {
		return ErrClassRemoteDisconnected
	}

	var tlsErr *tls.RecordHeaderError
	if errors.As(err, &tlsErr) {
		return ErrClassTLS
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrClassConnBroken
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return classifyErrno(errno)
	}

	return ErrClassInternal
}
