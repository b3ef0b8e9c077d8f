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

var _ = Describe("ChunkDecoder", func() {
	It("decodes a two-chunk body terminated by a zero chunk", func() {
		in := []byte("4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n")

		d := proto.NewChunkDecoder()
		consumed, data, needMore, err := d.Feed(in)

		Expect(err).To(BeNil())
		Expect(needMore).To(BeFalse())
		Expect(consumed).To(Equal(len(in)))
		Expect(string(data)).To(Equal("Wikipedia"))
		Expect(d.Done()).To(BeTrue())
	})

	It("asks for more input when a chunk is split across feeds", func() {
		d := proto.NewChunkDecoder()

		consumed1, data1, needMore1, err1 := d.Feed([]byte("4\r\nWi"))
		Expect(err1).To(BeNil())
		Expect(needMore1).To(BeTrue())
		Expect(string(data1)).To(Equal("Wi"))

		consumed2, data2, needMore2, err2 := d.Feed([]byte("ki\r\n0\r\n\r\n"))
		Expect(err2).To(BeNil())
		Expect(needMore2).To(BeFalse())
		Expect(string(data2)).To(Equal("ki"))
		Expect(consumed1 + consumed2).To(BeNumerically(">", 0))
		Expect(d.Done()).To(BeTrue())
	})

	It("rejects a chunk-size line exceeding the digit limit", func() {
		d := proto.NewChunkDecoder()
		_, _, _, err := d.Feed([]byte("11111111111111111\r\n"))
		Expect(err).ToNot(BeNil())
	})
})
