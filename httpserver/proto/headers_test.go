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
	"github.com/nabbar/golib/httpserver/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseHeaderBlock", func() {
	It("parses ordinary header lines", func() {
		h, err := proto.ParseHeaderBlock([]byte("Host: example.com\r\nAccept: */*"))
		Expect(err).To(BeNil())
		Expect(h.Get("Host")).To(Equal("example.com"))
		Expect(h.Get("Accept")).To(Equal("*/*"))
	})

	It("rejects obsolete line folding", func() {
		_, err := proto.ParseHeaderBlock([]byte("X-Foo: bar\r\n baz"))
		Expect(err).ToNot(BeNil())
	})

	It("rejects a duplicate Host header", func() {
		_, err := proto.ParseHeaderBlock([]byte("Host: a.com\r\nHost: b.com"))
		Expect(err).ToNot(BeNil())
	})
})

var _ = Describe("KeepAlive", func() {
	It("keeps HTTP/1.1 alive by default", func() {
		Expect(proto.KeepAlive(1, 1, types.Header{})).To(Equal(types.KeepAliveMayReuse))
	})

	It("closes HTTP/1.0 by default", func() {
		Expect(proto.KeepAlive(1, 0, types.Header{})).To(Equal(types.KeepAliveMustClose))
	})

	It("honors Connection: close on HTTP/1.1", func() {
		h := types.Header{}
		h.Add("Connection", "close")
		Expect(proto.KeepAlive(1, 1, h)).To(Equal(types.KeepAliveMustClose))
	})

	It("honors Connection: keep-alive on HTTP/1.0", func() {
		h := types.Header{}
		h.Add("Connection", "keep-alive")
		Expect(proto.KeepAlive(1, 0, h)).To(Equal(types.KeepAliveMayReuse))
	})
})
