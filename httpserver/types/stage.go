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

// Stage is a connection's protocol phase. The zero value is StageInit.
type Stage uint8

const (
	StageInit Stage = iota
	StageReqLineReceiving
	StageReqLineReceived
	StageReqHeadersReceiving
	StageHeadersReceived
	StageHeadersProcessed
	StageBodyReceiving
	StageBodyReceived
	StageFootersReceiving
	StageFootersReceived
	StageFullReqReceived
	StageReqRecvFinished
	StageContinueSending
	StageStartReply
	StageHeadersSending
	StageHeadersSent
	StageUnchunkedBodyUnready
	StageUnchunkedBodyReady
	StageChunkedBodyUnready
	StageChunkedBodyReady
	StageChunkedBodySent
	StageFootersSending
	StageFullReplySent
	StagePreClosing
	StageClosed
	StageUpgradeHeadersSending
	StageUpgrading
	StageUpgraded
	StageUpgradedCleaning
)

var stageNames = map[Stage]string{
	StageInit:                  "init",
	StageReqLineReceiving:      "req-line-receiving",
	StageReqLineReceived:       "req-line-received",
	StageReqHeadersReceiving:   "req-headers-receiving",
	StageHeadersReceived:       "headers-received",
	StageHeadersProcessed:      "headers-processed",
	StageBodyReceiving:         "body-receiving",
	StageBodyReceived:          "body-received",
	StageFootersReceiving:      "footers-receiving",
	StageFootersReceived:       "footers-received",
	StageFullReqReceived:       "full-req-received",
	StageReqRecvFinished:       "req-recv-finished",
	StageContinueSending:       "continue-sending",
	StageStartReply:            "start-reply",
	StageHeadersSending:        "headers-sending",
	StageHeadersSent:           "headers-sent",
	StageUnchunkedBodyUnready:  "unchunked-body-unready",
	StageUnchunkedBodyReady:    "unchunked-body-ready",
	StageChunkedBodyUnready:    "chunked-body-unready",
	StageChunkedBodyReady:      "chunked-body-ready",
	StageChunkedBodySent:       "chunked-body-sent",
	StageFootersSending:        "footers-sending",
	StageFullReplySent:         "full-reply-sent",
	StagePreClosing:            "pre-closing",
	StageClosed:                "closed",
	StageUpgradeHeadersSending: "upgrade-headers-sending",
	StageUpgrading:             "upgrading",
	StageUpgraded:              "upgraded",
	StageUpgradedCleaning:      "upgraded-cleaning",
}

func (s Stage) String() string {
	if n, k := stageNames[s]; k {
		return n
	}

	return "unknown"
}

// WantsRecv reports whether a tick in this stage consumes input from the socket.
func (s Stage) WantsRecv() bool {
	switch s {
	case StageInit, StageReqLineReceiving, StageReqHeadersReceiving, StageBodyReceiving, StageFootersReceiving:
		return true
	default:
		return false
	}
}

// WantsSend reports whether a tick in this stage produces output to the socket.
func (s Stage) WantsSend() bool {
	switch s {
	case StageContinueSending, StageHeadersSending, StageUnchunkedBodyReady, StageChunkedBodyReady,
		StageFootersSending, StageUpgradeHeadersSending:
		return true
	default:
		return false
	}
}

// Terminal reports whether the stage is CLOSED; the scheduler reaps the connection.
func (s Stage) Terminal() bool {
	return s == StageClosed
}

// KeepAliveDecision is the connection's resolved reuse policy, set once headers are processed.
type KeepAliveDecision uint8

const (
	KeepAliveMustClose KeepAliveDecision = iota
	KeepAliveMayReuse
	KeepAliveMustUpgrade
)

// ContentLocation tags where a reply body currently lives.
type ContentLocation uint8

const (
	ContentLocationResponseBuffer ContentLocation = iota
	ContentLocationConnBuffer
	ContentLocationIovec
	ContentLocationFile
)

// TermReason is the reason passed to the NotifyCompleted callback when a connection ends.
type TermReason uint8

const (
	TermCompletedOk TermReason = iota
	TermWithError
	TermTimedOut
	TermDaemonShutdown
	TermReadError
	TermWriteError
	TermClientAbort
)

func (t TermReason) String() string {
	switch t {
	case TermCompletedOk:
		return "completed-ok"
	case TermWithError:
		return "with-error"
	case TermTimedOut:
		return "timed-out"
	case TermDaemonShutdown:
		return "daemon-shutdown"
	case TermReadError:
		return "read-error"
	case TermWriteError:
		return "write-error"
	case TermClientAbort:
		return "client-abort"
	default:
		return "unknown"
	}
}

// Readiness is the connection's cached view of the last poll result, drained by recv/send.
type Readiness uint8

const (
	ReadinessRecv Readiness = 1 << iota
	ReadinessSend
	ReadinessError
)

func (r Readiness) Has(bit Readiness) bool {
	return r&bit != 0
}

func (r Readiness) Set(bit Readiness) Readiness {
	return r | bit
}

func (r Readiness) Clear(bit Readiness) Readiness {
	return r &^ bit
}
