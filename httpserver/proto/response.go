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
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nabbar/golib/httpserver/types"
)

// BuilderOptions toggles the automatic-header behaviors spec.md §4.7 names.
type BuilderOptions struct {
	// InsaneContentLength disables automatic Content-Length injection.
	InsaneContentLength bool
	// HeadOnly suppresses body-related automatic headers.
	HeadOnly bool
	// ForceHTTP10 downgrades the status line to HTTP/1.0 and disables chunked.
	ForceHTTP10 bool
}

// BuildStatusLineAndHeaders serializes the status line, the response's own
// headers in insertion order, then the automatic headers, then the
// terminating blank line. now is injected so builds are deterministic in
// tests.
func BuildStatusLineAndHeaders(resp *types.Response, keepAlive bool, opts BuilderOptions, now time.Time) []byte {
	var b strings.Builder

	version := "HTTP/1.1"
	if opts.ForceHTTP10 {
		version = "HTTP/1.0"
	}

	status := resp.Status
	text := http.StatusText(status)
	if text == "" {
		text = "Status"
	}

	fmt.Fprintf(&b, "%s %d %s\r\n", version, status, text)

	seen := make(map[string]bool, resp.Header.Len())
	for _, name := range resp.Header.Keys() {
		seen[strings.ToLower(name)] = true
		for _, v := range resp.Header.Values(name) {
			fmt.Fprintf(&b, "%s: %s\r\n", name, v)
		}
	}

	if !seen["date"] {
		fmt.Fprintf(&b, "Date: %s\r\n", now.UTC().Format(http.TimeFormat))
	}

	if !opts.HeadOnly {
		switch {
		case resp.Chunked && !opts.ForceHTTP10 && !seen["transfer-encoding"]:
			b.WriteString("Transfer-Encoding: chunked\r\n")
		case !opts.InsaneContentLength && resp.BodyLength >= 0 && !seen["content-length"]:
			fmt.Fprintf(&b, "Content-Length: %s\r\n", strconv.FormatInt(resp.BodyLength, 10))
		}
	}

	if !keepAlive && !seen["connection"] {
		b.WriteString("Connection: close\r\n")
	}

	b.WriteString("\r\n")

	return []byte(b.String())
}
