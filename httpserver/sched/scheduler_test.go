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

package sched_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"time"

	"github.com/nabbar/golib/httpserver/sched"
	"github.com/nabbar/golib/httpserver/types"
	liblog "github.com/nabbar/golib/logger"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testLogger() func() liblog.Logger {
	l := liblog.New(context.Background())
	_ = l.SetOptions(&liblog.Options{})
	return func() liblog.Logger {
		return l
	}
}

var _ = Describe("Scheduler", func() {
	It("accepts a connection, runs the handler and replies over the pool model", func() {
		cfg := &types.Config{
			SockAddr:    "127.0.0.1:0",
			PollMode:    types.PollPoll,
			ThreadModel: types.ThreadPool,
			ThreadPoolSize: 1,
			Handler: func(remote net.Addr, req *types.Request) (*types.Response, error) {
				return &types.Response{
					Status:     200,
					BodyLength: 2,
					Body:       strings.NewReader("ok"),
					ConnClose:  true,
				}, nil
			},
		}
		Expect(cfg.Validate()).To(BeNil())

		s, err := sched.New(cfg, testLogger())
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- s.Run(ctx)
		}()

		defer func() {
			cancel()
			Eventually(done, 2*time.Second).Should(Receive())
		}()

		cli, err := net.DialTimeout("tcp", s.Addr().String(), time.Second)
		Expect(err).NotTo(HaveOccurred())
		defer cli.Close()

		_, err = cli.Write([]byte("GET / HTTP/1.1\r\nHost: example.test\r\nConnection: close\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())

		_ = cli.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := bufio.NewReader(cli).ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(ContainSubstring("200"))
	})

	It("stops answering a suspended connection and resumes it on Resume", func() {
		cfg := &types.Config{
			SockAddr:        "127.0.0.1:0",
			PollMode:        types.PollPoll,
			ThreadModel:     types.ThreadSingle,
			ConnectionLimit: 10,
			Handler: func(remote net.Addr, req *types.Request) (*types.Response, error) {
				return &types.Response{Status: 204}, nil
			},
		}
		Expect(cfg.Validate()).To(BeNil())

		s, err := sched.New(cfg, testLogger())
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- s.Run(ctx)
		}()

		defer func() {
			cancel()
			Eventually(done, 2*time.Second).Should(Receive())
		}()

		cli, err := net.DialTimeout("tcp", s.Addr().String(), time.Second)
		Expect(err).NotTo(HaveOccurred())
		defer cli.Close()

		_, err = cli.Write([]byte("GET / HTTP/1.1\r\nHost: h\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())

		_ = cli.SetReadDeadline(time.Now().Add(2 * time.Second))
		reader := bufio.NewReader(cli)
		line, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(ContainSubstring("204"))

		// Drain the rest of the first response's headers before sending
		// the next request on the same keep-alive connection.
		for {
			l, rerr := reader.ReadString('\n')
			Expect(rerr).NotTo(HaveOccurred())
			if l == "\r\n" {
				break
			}
		}

		Eventually(func() bool {
			return s.Suspend(cli.LocalAddr())
		}, time.Second, 10*time.Millisecond).Should(BeTrue())

		_, err = cli.Write([]byte("GET / HTTP/1.1\r\nHost: h\r\nConnection: close\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())

		_ = cli.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		buf := make([]byte, 16)
		_, err = cli.Read(buf)
		Expect(err).To(HaveOccurred())

		Expect(s.Resume(cli.LocalAddr())).To(BeTrue())

		_ = cli.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err = bufio.NewReader(cli).ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(ContainSubstring("204"))
	})
})
