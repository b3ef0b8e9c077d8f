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

// Package hooksyslog provides a logrus hook implementation for writing logs to
// syslog, local or remote, with configurable formatting and log levels.
package hooksyslog

import (
	"errors"
	"log/syslog"

	logcfg "github.com/nabbar/golib/logger/config"
	loglvl "github.com/nabbar/golib/logger/level"
	logtps "github.com/nabbar/golib/logger/types"
	"github.com/sirupsen/logrus"
)

var errMissingTag = errors.New("hooksyslog: missing tag")

// HookSyslog defines the interface for a logrus hook that writes logs to syslog.
type HookSyslog interface {
	logtps.Hook
}

var facilities = map[string]syslog.Priority{
	"kern":     syslog.LOG_KERN,
	"user":     syslog.LOG_USER,
	"mail":     syslog.LOG_MAIL,
	"daemon":   syslog.LOG_DAEMON,
	"auth":     syslog.LOG_AUTH,
	"syslog":   syslog.LOG_SYSLOG,
	"lpr":      syslog.LOG_LPR,
	"news":     syslog.LOG_NEWS,
	"uucp":     syslog.LOG_UUCP,
	"cron":     syslog.LOG_CRON,
	"authpriv": syslog.LOG_AUTHPRIV,
	"ftp":      syslog.LOG_FTP,
	"local0":   syslog.LOG_LOCAL0,
	"local1":   syslog.LOG_LOCAL1,
	"local2":   syslog.LOG_LOCAL2,
	"local3":   syslog.LOG_LOCAL3,
	"local4":   syslog.LOG_LOCAL4,
	"local5":   syslog.LOG_LOCAL5,
	"local6":   syslog.LOG_LOCAL6,
	"local7":   syslog.LOG_LOCAL7,
}

func parseFacility(f string) syslog.Priority {
	if p, ok := facilities[f]; ok {
		return p
	}
	return syslog.LOG_LOCAL0
}

// New creates and initializes a new syslog hook with the specified options and formatter.
//
// If opt.Host is empty, the hook writes to the local syslog daemon. Otherwise it dials
// the remote syslog server over opt.Network (defaults to "udp").
func New(opt logcfg.OptionsSyslog, format logrus.Formatter) (HookSyslog, error) {
	if opt.Tag == "" {
		return nil, errMissingTag
	}

	var lvl = make([]logrus.Level, 0)

	if len(opt.LogLevel) > 0 {
		for _, ls := range opt.LogLevel {
			lvl = append(lvl, loglvl.Parse(ls).Logrus())
		}
	} else {
		lvl = logrus.AllLevels
	}

	network := opt.Network
	if network == "" && opt.Host != "" {
		network = "udp"
	}

	w, e := syslog.Dial(network, opt.Host, parseFacility(opt.Facility)|syslog.LOG_INFO, opt.Tag)
	if e != nil {
		return nil, e
	}

	return &hks{
		o: ohks{
			format:           format,
			levels:           lvl,
			disableStack:     opt.DisableStack,
			disableTimestamp: opt.DisableTimestamp,
			enableTrace:      opt.EnableTrace,
			enableAccessLog:  opt.EnableAccessLog,
		},
		w: w,
	}, nil
}
