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

package pool_test

import (
	"github.com/nabbar/golib/httpserver/pool"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Arena", func() {
	It("allocates from the head and tail without overlap", func() {
		a := pool.New(256)

		h, err := a.Allocate(32)
		Expect(err).To(BeNil())
		Expect(h).To(HaveLen(32))

		r, err := a.AppendRead(64)
		Expect(err).To(BeNil())
		Expect(r).To(HaveLen(64))

		Expect(a.Used()).To(Equal(96))
	})

	It("fails once head meets tail", func() {
		a := pool.New(64)

		_, err := a.Allocate(40)
		Expect(err).To(BeNil())

		_, err = a.AppendWrite(40)
		Expect(err).ToNot(BeNil())
	})

	It("reallocates the last head allocation in place", func() {
		a := pool.New(128)

		h, err := a.Allocate(16)
		Expect(err).To(BeNil())

		grown, err := a.ReallocateLast(h, 48)
		Expect(err).To(BeNil())
		Expect(grown).To(HaveLen(48))
	})

	It("rejects reallocating a non-last allocation", func() {
		a := pool.New(128)

		first, err := a.Allocate(16)
		Expect(err).To(BeNil())

		_, err = a.Allocate(16)
		Expect(err).To(BeNil())

		_, err = a.ReallocateLast(first, 32)
		Expect(err).ToNot(BeNil())
	})

	It("returns to a clean state after reset", func() {
		a := pool.New(64)

		_, err := a.Allocate(16)
		Expect(err).To(BeNil())
		_, err = a.AppendRead(16)
		Expect(err).To(BeNil())

		a.Reset()

		Expect(a.Used()).To(Equal(0))

		_, err = a.Allocate(60)
		Expect(err).To(BeNil())
	})

	It("refuses any operation after destroy", func() {
		a := pool.New(64)
		a.Destroy()

		_, err := a.Allocate(8)
		Expect(err).ToNot(BeNil())
	})
})
