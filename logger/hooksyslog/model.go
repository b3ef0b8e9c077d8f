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

package hooksyslog

import (
	"context"
	"log/syslog"
	"strings"
	"sync/atomic"

	logtps "github.com/nabbar/golib/logger/types"
	"github.com/sirupsen/logrus"
)

type ohks struct {
	format           logrus.Formatter
	levels           []logrus.Level
	disableStack     bool
	disableTimestamp bool
	enableTrace      bool
	enableAccessLog  bool
}

// hks is the main implementation of the HookSyslog interface.
type hks struct {
	o       ohks
	w       *syslog.Writer
	running atomic.Bool
}

func (o *hks) Levels() []logrus.Level {
	return o.o.levels
}

func (o *hks) RegisterHook(log *logrus.Logger) {
	log.AddHook(o)
}

func (o *hks) Run(ctx context.Context) {
	o.running.Store(true)
	defer o.running.Store(false)

	<-ctx.Done()
	_ = o.Close()
}

func (o *hks) IsRunning() bool {
	return o.running.Load()
}

func (o *hks) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

func (o *hks) Close() error {
	return o.w.Close()
}

func (o *hks) filterKey(f logrus.Fields, key string) logrus.Fields {
	if len(f) < 1 {
		return f
	}
	if _, ok := f[key]; ok {
		delete(f, key)
	}
	return f
}

// severityWrite routes the formatted message to the syslog.Writer method matching the entry level.
func (o *hks) severityWrite(lvl logrus.Level, msg string) error {
	switch lvl {
	case logrus.PanicLevel, logrus.FatalLevel:
		return o.w.Crit(msg)
	case logrus.ErrorLevel:
		return o.w.Err(msg)
	case logrus.WarnLevel:
		return o.w.Warning(msg)
	case logrus.InfoLevel:
		return o.w.Info(msg)
	default:
		return o.w.Debug(msg)
	}
}

func (o *hks) Fire(entry *logrus.Entry) error {
	ent := entry.Dup()
	ent.Level = entry.Level

	if o.o.disableStack {
		ent.Data = o.filterKey(ent.Data, logtps.FieldStack)
	}

	if o.o.disableTimestamp {
		ent.Data = o.filterKey(ent.Data, logtps.FieldTime)
	}

	if !o.o.enableTrace {
		ent.Data = o.filterKey(ent.Data, logtps.FieldCaller)
		ent.Data = o.filterKey(ent.Data, logtps.FieldFile)
		ent.Data = o.filterKey(ent.Data, logtps.FieldLine)
	}

	var msg string

	if o.o.enableAccessLog {
		if len(entry.Message) < 1 {
			return nil
		}
		msg = strings.TrimSuffix(entry.Message, "\n")
	} else {
		if len(ent.Data) < 1 {
			return nil
		}

		var (
			p []byte
			e error
		)

		if f := o.o.format; f != nil {
			p, e = f.Format(ent)
		} else {
			p, e = ent.Bytes()
		}

		if e != nil {
			return e
		}

		msg = strings.TrimSuffix(string(p), "\n")
	}

	return o.severityWrite(entry.Level, msg)
}
