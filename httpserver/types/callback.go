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

import (
	"io"
	"net"
	"time"
)

// Request is the subset of a parsed request the access handler needs.
// Header lookups return every value for a repeated header name, per the
// multi-value lookup semantics this design resolves (see DESIGN.md).
type Request struct {
	Method  string
	Target  string
	Proto   string
	Header  Header
	Body    io.Reader
	Trailer Header
}

// Header is a case-sensitive-on-the-wire, case-insensitive-on-lookup header
// list. Unlike net/http.Header it is not a bare map: Keys preserves the
// order names were first added in, so a response builder can emit headers
// in insertion order instead of Go's unspecified map iteration order.
type Header struct {
	v     map[string][]string
	order []string
}

// Values returns every value recorded for name, nil if absent.
func (h Header) Values(name string) []string {
	if h.v == nil {
		return nil
	}
	return h.v[CanonicalHeaderKey(name)]
}

// Get returns the first value recorded for name, "" if absent.
func (h Header) Get(name string) string {
	if v := h.Values(name); len(v) > 0 {
		return v[0]
	}

	return ""
}

// Add appends a value, preserving any earlier values for the same name and
// recording name's position the first time it is seen.
func (h *Header) Add(name, value string) {
	if h.v == nil {
		h.v = make(map[string][]string)
	}

	k := CanonicalHeaderKey(name)
	if _, ok := h.v[k]; !ok {
		h.order = append(h.order, k)
	}
	h.v[k] = append(h.v[k], value)
}

// Keys returns the canonical header names in the order they were first
// added.
func (h Header) Keys() []string {
	return h.order
}

// Len reports how many distinct header names have been added.
func (h Header) Len() int {
	return len(h.order)
}

// Response is what the access handler hands back to the response builder.
type Response struct {
	Status      int
	Header      Header
	Body        io.Reader
	BodyLength  int64 // -1 means unknown: forces chunked on HTTP/1.1
	HeadOnly    bool
	Chunked     bool
	ConnClose   bool
	ReusableTag bool
	File        ResponseFile
	Upgrade     FuncUpgrade

	// ForceHTTP10 downgrades the status line to HTTP/1.0 (response_options.http_1_0_server).
	ForceHTTP10 bool
	// InsaneContentLength disables automatic Content-Length injection (response_options.insanity_content_length).
	InsaneContentLength bool
	// HTTP10CompatibleStrict forces connection close and disables chunked framing, per
	// response_options.http_1_0_compatible_strict.
	HTTP10CompatibleStrict bool
}

// ResponseFile designates a reply body served through the sendfile fast path.
type ResponseFile struct {
	Reader   io.ReaderAt
	Offset   int64
	Length   int64
	FilePath string
}

// FuncAccessHandler produces a Response for a fully-received Request. Returning
// an error causes the connection to send a minimal error response and close.
type FuncAccessHandler func(remote net.Addr, req *Request) (*Response, error)

// FuncAcceptPolicy decides per-connection admission by remote address.
type FuncAcceptPolicy func(remote net.Addr) bool

// FuncNotifyConnection fires once per connection when it is accepted.
type FuncNotifyConnection func(remote net.Addr)

// FuncNotifyCompleted fires once per connection when it terminates.
type FuncNotifyCompleted func(remote net.Addr, reason TermReason, started time.Time, duration time.Duration)

// FuncUpgrade takes ownership of the raw connection after a 101 response, with
// any bytes already buffered past the request headers delivered as extraIn.
type FuncUpgrade func(conn net.Conn, extraIn []byte)

// FuncAcceptBody is consulted before a request body is received, letting the
// caller decline it ahead of time in response to Expect: 100-continue. A
// false return sends 417 and skips the body; no FuncAccessHandler call follows.
type FuncAcceptBody func(remote net.Addr, method, target string, header Header) bool
