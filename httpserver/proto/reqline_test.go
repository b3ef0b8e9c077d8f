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
	"github.com/nabbar/golib/httpserver/proto"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseRequestLine", func() {
	It("parses a well-formed GET request line", func() {
		rl, err := proto.ParseRequestLine([]byte("GET /index.html HTTP/1.1"))
		Expect(err).To(BeNil())
		Expect(rl.Method).To(Equal("GET"))
		Expect(rl.Target).To(Equal("/index.html"))
		Expect(rl.VersionMajor).To(Equal(1))
		Expect(rl.VersionMinor).To(Equal(1))
	})

	It("rejects a line missing the version", func() {
		_, err := proto.ParseRequestLine([]byte("GET /index.html"))
		Expect(err).ToNot(BeNil())
	})

	It("rejects an invalid version string", func() {
		_, err := proto.ParseRequestLine([]byte("GET / HTTP/11"))
		Expect(err).ToNot(BeNil())
	})
})

var _ = Describe("PercentDecode", func() {
	It("decodes a valid escape", func() {
		out, err := proto.PercentDecode("/a%20b")
		Expect(err).To(BeNil())
		Expect(out).To(Equal("/a b"))
	})

	It("rejects a truncated escape", func() {
		_, err := proto.PercentDecode("/a%2")
		Expect(err).ToNot(BeNil())
	})

	It("rejects non-hex digits", func() {
		_, err := proto.PercentDecode("/a%zz")
		Expect(err).ToNot(BeNil())
	})
})
