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

package proto_test

import (
	"strings"
	"time"

	"github.com/nabbar/golib/httpserver/proto"
	"github.com/nabbar/golib/httpserver/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BuildStatusLineAndHeaders", func() {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	It("injects Content-Length for a known body length", func() {
		resp := &types.Response{Status: 200, Header: types.Header{}, BodyLength: 5}

		out := string(proto.BuildStatusLineAndHeaders(resp, true, proto.BuilderOptions{}, now))

		Expect(out).To(HavePrefix("HTTP/1.1 200 OK\r\n"))
		Expect(out).To(ContainSubstring("Content-Length: 5\r\n"))
		Expect(out).ToNot(ContainSubstring("Connection: close"))
		Expect(strings.HasSuffix(out, "\r\n\r\n")).To(BeTrue())
	})

	It("injects Transfer-Encoding: chunked when the body length is unknown", func() {
		resp := &types.Response{Status: 200, Header: types.Header{}, BodyLength: -1, Chunked: true}

		out := string(proto.BuildStatusLineAndHeaders(resp, true, proto.BuilderOptions{}, now))

		Expect(out).To(ContainSubstring("Transfer-Encoding: chunked\r\n"))
		Expect(out).ToNot(ContainSubstring("Content-Length"))
	})

	It("adds Connection: close when keep-alive is denied", func() {
		resp := &types.Response{Status: 200, Header: types.Header{}, BodyLength: 0}

		out := string(proto.BuildStatusLineAndHeaders(resp, false, proto.BuilderOptions{}, now))

		Expect(out).To(ContainSubstring("Connection: close\r\n"))
	})

	It("downgrades the status line under ForceHTTP10", func() {
		resp := &types.Response{Status: 200, Header: types.Header{}, BodyLength: 0}

		out := string(proto.BuildStatusLineAndHeaders(resp, true, proto.BuilderOptions{ForceHTTP10: true}, now))

		Expect(out).To(HavePrefix("HTTP/1.0 200 OK\r\n"))
	})

	It("emits headers in insertion order", func() {
		h := types.Header{}
		h.Add("X-Third", "3")
		h.Add("X-First", "1")
		h.Add("X-Second", "2")
		resp := &types.Response{Status: 200, Header: h, BodyLength: 0}

		out := string(proto.BuildStatusLineAndHeaders(resp, true, proto.BuilderOptions{}, now))

		Expect(strings.Index(out, "X-Third")).To(BeNumerically("<", strings.Index(out, "X-First")))
		Expect(strings.Index(out, "X-First")).To(BeNumerically("<", strings.Index(out, "X-Second")))
	})
})
