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
)

var hexTable [256]int8

func init() {
	for i := range hexTable {
		hexTable[i] = -1
	}
	for c := '0'; c <= '9'; c++ {
		hexTable[c] = int8(c - '0')
	}
	for c := 'a'; c <= 'f'; c++ {
		hexTable[c] = int8(c-'a') + 10
	}
	for c := 'A'; c <= 'F'; c++ {
		hexTable[c] = int8(c-'A') + 10
	}
}

// PercentDecode decodes "%XY" escapes in a request target using a
// table-driven lookup. A malformed escape aborts decoding with a 400,
// matching spec.md §4.6.
func PercentDecode(target string) (string, errors.Error) {
	if !strings.ContainsRune(target, '%') {
		return target, nil
	}

	var b strings.Builder
	b.Grow(len(target))

	for i := 0; i < len(target); i++ {
		c := target[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}

		if i+2 >= len(target) {
			return "", types.ErrorRequestMalformed.Error(nil)
		}

		hi := hexTable[target[i+1]]
		lo := hexTable[target[i+2]]
		if hi < 0 || lo < 0 {
			return "", types.ErrorRequestMalformed.Error(nil)
		}

		b.WriteByte(byte(hi)<<4 | byte(lo))
		i += 2
	}

	return b.String(), nil
}
