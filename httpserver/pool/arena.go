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

package pool

import (
	"unsafe"

	liberr "github.com/nabbar/golib/errors"
)

const pointerSize = unsafe.Sizeof(uintptr(0))

// Arena is a bump allocator over a fixed slab. head grows forward from the
// start of the slab (request-line/header bookkeeping, iovec descriptors);
// tail grows backward from the end (read buffer, then write buffer). The
// gap between them is free space; allocation fails once head meets tail.
//
// Arena is not safe for concurrent use: exactly one connection tick touches
// an arena at a time, per the single-owner-thread rule the connection state
// machine follows.
type Arena struct {
	slab []byte
	head int
	tail int

	lastHeadOff int
	lastHeadLen int
	hasLastHead bool

	destroyed bool
}

// New allocates a slab of size bytes and returns an empty Arena over it.
func New(size int) *Arena {
	return &Arena{slab: make([]byte, size)}
}

// Size returns the total slab capacity.
func (a *Arena) Size() int {
	return len(a.slab)
}

// Used returns the number of bytes currently committed (head + tail sides).
func (a *Arena) Used() int {
	return a.head + a.tail
}

func alignUp(n int) int {
	sz := int(pointerSize)
	return (n + sz - 1) &^ (sz - 1)
}

// Allocate reserves n bytes from the head side and returns a slice over them.
func (a *Arena) Allocate(n int) ([]byte, liberr.Error) {
	if a.destroyed {
		return nil, ErrorDestroyed.Error(nil)
	}

	n = alignUp(n)

	if a.head+n > len(a.slab)-a.tail {
		return nil, ErrorOutOfMemory.Error(nil)
	}

	off := a.head
	a.head += n
	a.lastHeadOff = off
	a.lastHeadLen = n
	a.hasLastHead = true

	return a.slab[off : off+n : off+n], nil
}

// ReallocateLast grows or shrinks the most recent head allocation in place.
// It fails if ptr does not correspond to that allocation.
func (a *Arena) ReallocateLast(ptr []byte, newSize int) ([]byte, liberr.Error) {
	if a.destroyed {
		return nil, ErrorDestroyed.Error(nil)
	}

	if !a.hasLastHead || len(ptr) != a.lastHeadLen || &ptr[0] != &a.slab[a.lastHeadOff] {
		return nil, ErrorNotLastAllocation.Error(nil)
	}

	newSize = alignUp(newSize)

	if a.lastHeadOff+newSize > len(a.slab)-a.tail {
		return nil, ErrorOutOfMemory.Error(nil)
	}

	a.head = a.lastHeadOff + newSize
	a.lastHeadLen = newSize

	return a.slab[a.lastHeadOff : a.lastHeadOff+newSize : a.lastHeadOff+newSize], nil
}

// AppendRead reserves n bytes from the tail side for the read buffer.
func (a *Arena) AppendRead(n int) ([]byte, liberr.Error) {
	return a.appendTail(n)
}

// AppendWrite reserves n bytes from the tail side for the write buffer.
func (a *Arena) AppendWrite(n int) ([]byte, liberr.Error) {
	return a.appendTail(n)
}

func (a *Arena) appendTail(n int) ([]byte, liberr.Error) {
	if a.destroyed {
		return nil, ErrorDestroyed.Error(nil)
	}

	n = alignUp(n)

	if a.head > len(a.slab)-a.tail-n {
		return nil, ErrorOutOfMemory.Error(nil)
	}

	a.tail += n
	start := len(a.slab) - a.tail

	return a.slab[start : start+n : start+n], nil
}

// Reset rewinds both cursors, invalidating every previously returned slice.
// Callers must re-derive all pointers after a reset.
func (a *Arena) Reset() {
	a.head = 0
	a.tail = 0
	a.hasLastHead = false
}

// Destroy releases the slab. The arena must not be used afterward.
func (a *Arena) Destroy() {
	a.slab = nil
	a.destroyed = true
}
