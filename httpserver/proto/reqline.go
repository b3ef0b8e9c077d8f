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

package proto

import (
	"bytes"
	"strings"

	"github.com/nabbar/golib/errors"
	"github.com/nabbar/golib/httpserver/types"
	"golang.org/x/net/http/httpguts"
)

// RequestLine is the parsed first line of an HTTP/1.x request.
type RequestLine struct {
	Method       string
	Target       string
	VersionMajor int
	VersionMinor int
}

// FindCRLF locates the first "\r\n" in buf, returning its index or -1.
// Exposed so the connection state machine can decide whether enough bytes
// have arrived yet without re-scanning from scratch.
func FindCRLF(buf []byte) int {
	return bytes.Index(buf, []byte("\r\n"))
}

// ParseRequestLine parses "METHOD SP TARGET SP HTTP/MAJOR.MINOR", the line
// bytes excluding the trailing CRLF.
func ParseRequestLine(line []byte) (RequestLine, errors.Error) {
	s := string(line)

	sp1 := strings.IndexByte(s, ' ')
	if sp1 <= 0 {
		return RequestLine{}, types.ErrorRequestMalformed.Error(nil)
	}

	rest := s[sp1+1:]
	sp2 := strings.IndexByte(rest, ' ')
	if sp2 <= 0 {
		return RequestLine{}, types.ErrorRequestMalformed.Error(nil)
	}

	method := s[:sp1]
	target := rest[:sp2]
	version := rest[sp2+1:]

	if !isValidMethodToken(method) || target == "" {
		return RequestLine{}, types.ErrorRequestMalformed.Error(nil)
	}

	major, minor, ok := parseVersion(version)
	if !ok {
		return RequestLine{}, types.ErrorRequestMalformed.Error(nil)
	}

	return RequestLine{Method: method, Target: target, VersionMajor: major, VersionMinor: minor}, nil
}

func isValidMethodToken(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !httpguts.IsTokenRune(r) {
			return false
		}
	}

	return true
}

func parseVersion(v string) (major int, minor int, ok bool) {
	if !strings.HasPrefix(v, "HTTP/") {
		return 0, 0, false
	}

	v = v[len("HTTP/"):]

	dot := strings.IndexByte(v, '.')
	if dot != 1 || len(v) != 3 {
		return 0, 0, false
	}

	if v[0] < '0' || v[0] > '9' || v[2] < '0' || v[2] > '9' {
		return 0, 0, false
	}

	return int(v[0] - '0'), int(v[2] - '0'), true
}
