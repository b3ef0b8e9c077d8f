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
	"strings"

	"github.com/nabbar/golib/errors"
	"github.com/nabbar/golib/httpserver/types"
	"golang.org/x/net/http/httpguts"
)

// ParseHeaderBlock parses the header lines between the request line and
// the terminating blank line. buf must not include either CRLF delimiter
// of the blank line itself. Obsolete line-folding (a continuation line
// starting with SP/HTAB) is rejected rather than unfolded, per the strict
// parsing the spec calls for.
func ParseHeaderBlock(buf []byte) (types.Header, errors.Error) {
	var h types.Header

	lines := strings.Split(string(buf), "\r\n")
	for _, line := range lines {
		if line == "" {
			continue
		}

		if line[0] == ' ' || line[0] == '\t' {
			return types.Header{}, types.ErrorRequestMalformed.Error(nil)
		}

		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			return types.Header{}, types.ErrorRequestMalformed.Error(nil)
		}

		name := line[:colon]
		value := strings.TrimSpace(line[colon+1:])

		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return types.Header{}, types.ErrorRequestMalformed.Error(nil)
		}

		h.Add(name, value)
	}

	if len(h.Values("Host")) > 1 {
		return types.Header{}, types.ErrorRequestMalformed.Error(nil)
	}

	return h, nil
}

// ResolveHost validates the request's Host header, falling back to the
// authority embedded in an absolute-form target (as a proxy request
// would send) when no Host header is present.
func ResolveHost(h types.Header, requestTarget string) (string, bool) {
	host := h.Get("Host")

	if host == "" && strings.HasPrefix(requestTarget, "http://") {
		rest := requestTarget[len("http://"):]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			host = rest[:slash]
		} else {
			host = rest
		}
	}

	if host == "" {
		return "", false
	}

	return host, httpguts.ValidHostHeader(host)
}

// KeepAlive resolves the reuse decision from the protocol version and the
// Connection header, per spec.md §4.1's HEADERS_PROCESSED transition.
func KeepAlive(versionMajor, versionMinor int, h types.Header) types.KeepAliveDecision {
	conn := strings.ToLower(h.Get("Connection"))

	switch {
	case strings.Contains(conn, "close"):
		return types.KeepAliveMustClose
	case versionMajor == 1 && versionMinor == 0:
		if strings.Contains(conn, "keep-alive") {
			return types.KeepAliveMayReuse
		}
		return types.KeepAliveMustClose
	default:
		return types.KeepAliveMayReuse
	}
}
