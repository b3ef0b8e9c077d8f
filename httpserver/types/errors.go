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

package types

import "github.com/nabbar/golib/errors"

const (
	ErrorConfigInvalid errors.CodeError = iota + errors.MinPkgHttpServer
	ErrorConfigListen
	ErrorConfigTLS
	ErrorDaemonStart
	ErrorDaemonShutdown
	ErrorDaemonPortInUse
	ErrorConnAdmissionRejected
	ErrorConnPerIPRejected
	ErrorRequestMalformed
	ErrorRequestURITooLong
	ErrorRequestHeaderTooLarge
	ErrorRequestExpectationFailed
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorConfigInvalid)
	errors.RegisterIdFctMessage(ErrorConfigInvalid, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UnknownError:
		return ""
	case ErrorConfigInvalid:
		return "daemon configuration is not valid"
	case ErrorConfigListen:
		return "cannot bind or reuse the configured listen socket"
	case ErrorConfigTLS:
		return "cannot load the configured TLS material"
	case ErrorDaemonStart:
		return "daemon failed to start"
	case ErrorDaemonShutdown:
		return "daemon failed to shut down cleanly"
	case ErrorDaemonPortInUse:
		return "configured port is still in use"
	case ErrorConnAdmissionRejected:
		return "connection rejected: daemon connection limit reached"
	case ErrorConnPerIPRejected:
		return "connection rejected: per-ip connection limit reached"
	case ErrorRequestMalformed:
		return "request is malformed"
	case ErrorRequestURITooLong:
		return "request target exceeds the configured uri length limit"
	case ErrorRequestHeaderTooLarge:
		return "request header block exceeds the connection memory pool"
	case ErrorRequestExpectationFailed:
		return "handler declined the request body after Expect: 100-continue"
	}

	return ""
}
