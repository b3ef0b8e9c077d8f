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

package types

import (
	"fmt"
	"net"
	"time"

	libval "github.com/go-playground/validator/v10"
	tlscfg "github.com/nabbar/golib/certificates"
	liberr "github.com/nabbar/golib/errors"
)

// PollMode selects the scheduler back-end used to multiplex connections.
type PollMode uint8

const (
	// PollSelect maps to select(2); FDs above FD_SETSIZE are rejected at admission.
	PollSelect PollMode = iota
	// PollPoll maps to poll(2); one pollfd per connection plus listen plus ITC.
	PollPoll
	// PollEpoll maps to epoll(7) in edge-triggered mode; Linux only.
	PollEpoll
)

// ThreadModel selects how the daemon distributes work across goroutines.
type ThreadModel uint8

const (
	// ThreadExternal lets the host application drive Collect/Wait/Dispatch manually.
	ThreadExternal ThreadModel = iota
	// ThreadSingle runs one goroutine per daemon driving Wait/Dispatch until shutdown.
	ThreadSingle
	// ThreadPool runs N sub-daemons sharing the listen socket, modulo-distributed by fd.
	ThreadPool
	// ThreadPerConnection runs one goroutine per accepted connection.
	ThreadPerConnection
)

// Config carries the daemon options from spec.md §6, semantically identical
// across poll back-ends and threading models.
type Config struct {
	// ConnectionMemoryLimit is the per-connection arena size. Default 32 KiB.
	ConnectionMemoryLimit int `mapstructure:"connectionMemoryLimit" json:"connectionMemoryLimit" yaml:"connectionMemoryLimit" toml:"connectionMemoryLimit" validate:"gte=0"`

	// ConnectionLimit is the max simultaneous connections. 0 means use the default (FD_SETSIZE - 4).
	ConnectionLimit int `mapstructure:"connectionLimit" json:"connectionLimit" yaml:"connectionLimit" toml:"connectionLimit" validate:"gte=0"`

	// PerIPConnectionLimit caps connections per client IP. 0 means unlimited.
	PerIPConnectionLimit int `mapstructure:"perIpConnectionLimit" json:"perIpConnectionLimit" yaml:"perIpConnectionLimit" toml:"perIpConnectionLimit" validate:"gte=0"`

	// ConnectionTimeout is the idle timeout. 0 means none.
	ConnectionTimeout time.Duration `mapstructure:"connectionTimeout" json:"connectionTimeout" yaml:"connectionTimeout" toml:"connectionTimeout" validate:"gte=0"`

	// ThreadPoolSize is the worker count for ThreadPool. 0 means single-thread or external.
	ThreadPoolSize int `mapstructure:"threadPoolSize" json:"threadPoolSize" yaml:"threadPoolSize" toml:"threadPoolSize" validate:"gte=0"`

	// ThreadModel selects the scheduling model.
	ThreadModel ThreadModel `mapstructure:"threadModel" json:"threadModel" yaml:"threadModel" toml:"threadModel"`

	// PollMode selects the readiness multiplexer.
	PollMode PollMode `mapstructure:"pollMode" json:"pollMode" yaml:"pollMode" toml:"pollMode"`

	// ListenSocket is a pre-bound listen fd; when nil the daemon binds SockAddr itself.
	ListenSocket net.Listener `mapstructure:"-" json:"-" yaml:"-" toml:"-"`

	// SockAddr is the bind address; default "0.0.0.0:<port>".
	SockAddr string `mapstructure:"sockAddr" json:"sockAddr" yaml:"sockAddr" toml:"sockAddr" validate:"required_without=ListenSocket"`

	// TLS is the optional TLS material; nil means plaintext.
	TLS tlscfg.TLSConfig `mapstructure:"-" json:"-" yaml:"-" toml:"-"`

	// MaxURILength bounds the request-line target length. Default 8 KiB.
	MaxURILength int `mapstructure:"maxUriLength" json:"maxUriLength" yaml:"maxUriLength" toml:"maxUriLength" validate:"gte=0"`

	// AcceptPolicy decides admission by remote address; nil means accept unconditionally.
	AcceptPolicy FuncAcceptPolicy `mapstructure:"-" json:"-" yaml:"-" toml:"-"`

	// NotifyCompleted fires once per connection when it terminates.
	NotifyCompleted FuncNotifyCompleted `mapstructure:"-" json:"-" yaml:"-" toml:"-"`

	// NotifyConnection fires once per connection when it is accepted.
	NotifyConnection FuncNotifyConnection `mapstructure:"-" json:"-" yaml:"-" toml:"-"`

	// Handler produces the response for a fully-received request.
	Handler FuncAccessHandler `mapstructure:"-" json:"-" yaml:"-" toml:"-" validate:"required"`

	// AcceptBody decides, ahead of receiving a request body, whether to honor
	// an Expect: 100-continue. Nil means always continue.
	AcceptBody FuncAcceptBody `mapstructure:"-" json:"-" yaml:"-" toml:"-"`
}

const (
	DefaultConnectionMemoryLimit = 32 * 1024
	DefaultMaxURILength          = 8 * 1024
)

// Validate checks the struct tags and fills in documented defaults.
func (c *Config) Validate() liberr.Error {
	if c.ConnectionMemoryLimit == 0 {
		c.ConnectionMemoryLimit = DefaultConnectionMemoryLimit
	}

	if c.MaxURILength == 0 {
		c.MaxURILength = DefaultMaxURILength
	}

	err := ErrorConfigInvalid.Error(nil)

	if er := libval.New().Struct(c); er != nil {
		if e, ok := er.(*libval.InvalidValidationError); ok {
			err.Add(e)
		}

		if es, ok := er.(libval.ValidationErrors); ok {
			for _, e := range es {
				//nolint goerr113
				err.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.StructNamespace(), e.ActualTag()))
			}
		}
	}

	if err.HasParent() {
		return err
	}

	return nil
}
