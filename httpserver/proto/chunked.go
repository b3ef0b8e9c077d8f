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

// chunkState is the nested state machine BODY_RECEIVING runs for chunked
// transfer-encoding requests, per spec.md §4.6.
type chunkState uint8

const (
	chunkAwaitSizeLine chunkState = iota
	chunkAwaitData
	chunkAwaitDataCRLF
	chunkAwaitTrailer
	chunkDone
)

// ChunkDecoder consumes a chunked request body incrementally: callers feed
// it whatever bytes have newly arrived in the connection's read buffer and
// it reports how many were consumed and how much decoded data is ready.
type ChunkDecoder struct {
	state     chunkState
	remaining int64
}

// NewChunkDecoder returns a decoder positioned at the start of the first
// chunk's size line.
func NewChunkDecoder() *ChunkDecoder {
	return &ChunkDecoder{state: chunkAwaitSizeLine}
}

// Done reports whether the terminating zero-size chunk and trailer section
// have both been consumed.
func (d *ChunkDecoder) Done() bool {
	return d.state == chunkDone
}

// Feed advances the decoder over buf, which must contain only bytes not
// yet processed. It returns the number of input bytes consumed, the
// decoded data bytes found within that span (a subslice of buf, valid
// only until the next arena Reset), and whether more input is needed
// before further progress can be made.
func (d *ChunkDecoder) Feed(buf []byte) (consumed int, data []byte, needMore bool, err errors.Error) {
	pos := 0

	for pos < len(buf) {
		switch d.state {
		case chunkAwaitSizeLine:
			idx := FindCRLF(buf[pos:])
			if idx < 0 {
				if len(buf[pos:]) > types.MaxChunkSizeLineDigits+2 {
					return pos, data, false, types.ErrorRequestMalformed.Error(nil)
				}
				return pos, data, true, nil
			}

			line := buf[pos : pos+idx]
			if ext := indexSemicolon(line); ext >= 0 {
				line = line[:ext]
			}

			if len(line) > types.MaxChunkSizeLineDigits {
				return pos, data, false, types.ErrorRequestMalformed.Error(nil)
			}

			size, perr := parseHexSize(string(line))
			if perr != nil {
				return pos, data, false, types.ErrorRequestMalformed.Error(perr)
			}

			pos += idx + 2
			d.remaining = size

			if size == 0 {
				d.state = chunkAwaitTrailer
			} else {
				d.state = chunkAwaitData
			}

		case chunkAwaitData:
			avail := int64(len(buf) - pos)
			if avail == 0 {
				return pos, data, true, nil
			}

			n := d.remaining
			if avail < n {
				n = avail
			}

			data = append(data, buf[pos:pos+int(n)]...)
			pos += int(n)
			d.remaining -= n

			if d.remaining == 0 {
				d.state = chunkAwaitDataCRLF
			} else {
				return pos, data, true, nil
			}

		case chunkAwaitDataCRLF:
			if len(buf)-pos < 2 {
				return pos, data, true, nil
			}
			if buf[pos] != '\r' || buf[pos+1] != '\n' {
				return pos, data, false, types.ErrorRequestMalformed.Error(nil)
			}
			pos += 2
			d.state = chunkAwaitSizeLine

		case chunkAwaitTrailer:
			idx := FindCRLF(buf[pos:])
			if idx < 0 {
				return pos, data, true, nil
			}

			if idx == 0 {
				pos += 2
				d.state = chunkDone
				return pos, data, false, nil
			}

			// trailer header line: validated the same as any header, but
			// ignored here; the connection layer re-parses the trailer
			// block as a whole once Done() is true.
			pos += idx + 2

		case chunkDone:
			return pos, data, false, nil
		}
	}

	return pos, data, d.state != chunkDone, nil
}

func indexSemicolon(line []byte) int {
	for i, b := range line {
		if b == ';' {
			return i
		}
	}
	return -1
}

func parseHexSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errInvalidChunkSize
	}

	var v int64
	for _, c := range s {
		d := hexTable[byte(c)]
		if d < 0 {
			return 0, errInvalidChunkSize
		}
		v = v*16 + int64(d)
	}

	return v, nil
}

var errInvalidChunkSize = chunkSizeError("invalid chunk size line")

type chunkSizeError string

func (e chunkSizeError) Error() string { return string(e) }
