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

package conn_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"time"

	"github.com/nabbar/golib/httpserver/conn"
	"github.com/nabbar/golib/httpserver/transport"
	"github.com/nabbar/golib/httpserver/types"
	liblog "github.com/nabbar/golib/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testLogger() func() liblog.Logger {
	l := liblog.New(context.Background())
	_ = l.SetOptions(&liblog.Options{})
	return func() liblog.Logger { return l }
}

func loopbackPair() (client net.Conn, server *net.TCPConn, closeFn func()) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).To(BeNil())

	accepted := make(chan net.Conn, 1)
	go func() {
		c, aerr := ln.Accept()
		Expect(aerr).To(BeNil())
		accepted <- c
	}()

	cli, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	Expect(err).To(BeNil())

	srv := <-accepted

	return cli, srv.(*net.TCPConn), func() {
		_ = cli.Close()
		_ = srv.Close()
		_ = ln.Close()
	}
}

// drive ticks the connection until either the client has read wantBytes of
// reply or the iteration budget is exhausted, marking recv/send readiness
// eagerly since the loopback sockets are always ready in this test.
func drive(c *conn.Connection, iterations int) {
	for i := 0; i < iterations && !c.Stage().Terminal(); i++ {
		c.SetReadiness(types.ReadinessRecv | types.ReadinessSend)
		c.Tick(time.Now())
	}
}

var _ = Describe("Connection", func() {
	It("serves a simple keep-alive GET request", func() {
		cli, srv, closeFn := loopbackPair()
		defer closeFn()

		cfg := &types.Config{
			Handler: func(remote net.Addr, req *types.Request) (*types.Response, error) {
				Expect(req.Method).To(Equal("GET"))
				Expect(req.Target).To(Equal("/hello"))
				return &types.Response{
					Status:     200,
					Header:     types.Header{},
					Body:       strings.NewReader("hi"),
					BodyLength: 2,
				}, nil
			},
		}

		c, err := conn.New(cli.(*net.TCPConn).RemoteAddr(), transport.NewPlain(srv), cfg, testLogger())
		Expect(err).To(BeNil())

		_, werr := cli.Write([]byte("GET /hello HTTP/1.1\r\nHost: example.com\r\n\r\n"))
		Expect(werr).To(BeNil())

		drive(c, 50)

		_ = cli.SetReadDeadline(time.Now().Add(2 * time.Second))
		buf := make([]byte, 4096)
		n, rerr := cli.Read(buf)
		Expect(rerr).To(BeNil())

		out := string(buf[:n])
		Expect(out).To(HavePrefix("HTTP/1.1 200 OK\r\n"))
		Expect(out).To(ContainSubstring("Content-Length: 2\r\n"))
		Expect(out).To(HaveSuffix("hi"))

		Expect(c.Stage()).To(Equal(types.StageInit))
	})

	It("decodes a chunked request body and echoes its length", func() {
		cli, srv, closeFn := loopbackPair()
		defer closeFn()

		var seenBody []byte
		cfg := &types.Config{
			Handler: func(remote net.Addr, req *types.Request) (*types.Response, error) {
				if req.Body != nil {
					seenBody, _ = io.ReadAll(req.Body)
				}
				return &types.Response{Status: 204, Header: types.Header{}, BodyLength: 0}, nil
			},
		}

		c, err := conn.New(cli.(*net.TCPConn).RemoteAddr(), transport.NewPlain(srv), cfg, testLogger())
		Expect(err).To(BeNil())

		req := "POST /up HTTP/1.1\r\nHost: example.com\r\nTransfer-Encoding: chunked\r\n\r\n" +
			"4\r\nWiki\r\n0\r\n\r\n"
		_, werr := cli.Write([]byte(req))
		Expect(werr).To(BeNil())

		drive(c, 50)

		_ = cli.SetReadDeadline(time.Now().Add(2 * time.Second))
		buf := make([]byte, 4096)
		n, rerr := cli.Read(buf)
		Expect(rerr).To(BeNil())
		Expect(string(buf[:n])).To(HavePrefix("HTTP/1.1 204"))

		Expect(string(seenBody)).To(Equal("Wiki"))
	})

	It("closes after an error response when Connection: close is requested", func() {
		cli, srv, closeFn := loopbackPair()
		defer closeFn()

		cfg := &types.Config{
			Handler: func(remote net.Addr, req *types.Request) (*types.Response, error) {
				return &types.Response{Status: 200, Header: types.Header{}, BodyLength: 0}, nil
			},
		}

		c, err := conn.New(cli.(*net.TCPConn).RemoteAddr(), transport.NewPlain(srv), cfg, testLogger())
		Expect(err).To(BeNil())

		_, werr := cli.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
		Expect(werr).To(BeNil())

		drive(c, 50)

		Expect(c.Stage()).To(Equal(types.StageClosed))
		Expect(c.TermReason()).To(Equal(types.TermCompletedOk))
	})

	It("rejects a malformed request line with a 400 and closes", func() {
		cli, srv, closeFn := loopbackPair()
		defer closeFn()

		cfg := &types.Config{
			Handler: func(remote net.Addr, req *types.Request) (*types.Response, error) {
				return &types.Response{Status: 200, Header: types.Header{}}, nil
			},
		}

		c, err := conn.New(cli.(*net.TCPConn).RemoteAddr(), transport.NewPlain(srv), cfg, testLogger())
		Expect(err).To(BeNil())

		_, werr := cli.Write([]byte("NOT A REQUEST\r\n\r\n"))
		Expect(werr).To(BeNil())

		drive(c, 50)

		_ = cli.SetReadDeadline(time.Now().Add(2 * time.Second))
		buf := make([]byte, 4096)
		n, rerr := cli.Read(buf)
		Expect(rerr).To(BeNil())
		Expect(bytes.HasPrefix(buf[:n], []byte("HTTP/1.1 400"))).To(BeTrue())

		Expect(c.Stage()).To(Equal(types.StageClosed))
		Expect(c.TermReason()).To(Equal(types.TermWithError))
	})
})
