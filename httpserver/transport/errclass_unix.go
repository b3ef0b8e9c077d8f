//go:build unix

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
	"syscall"

	"golang.org/x/sys/unix"
)

func classifyErrno(errno syscall.Errno) ErrClass {
	switch unix.Errno(errno) {
	case unix.EAGAIN:
		return ErrClassAgain
	case unix.EINTR:
		return ErrClassIntr
	case unix.ENOMEM, unix.ENOBUFS:
		return ErrClassNoMem
	case unix.ECONNRESET:
		return ErrClassConnReset
	case unix.ETIMEDOUT:
		return ErrClassConnBroken
	case unix.ENOTCONN:
		return ErrClassNotConn
	case unix.EPIPE:
		return ErrClassPipe
	case unix.EBADF:
		return ErrClassBadFd
	case unix.EINVAL:
		return ErrClassInval
	case unix.ENOTSOCK:
		return ErrClassNotSock
	case unix.EOPNOTSUPP:
		return ErrClassOpNotSupp
	case unix.ECONNABORTED, unix.EHOSTUNREACH, unix.ENETDOWN, unix.ENETUNREACH:
		return ErrClassConnBroken
	default:
		return ErrClassInternal
	}
}
