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

package transport

import (
	"context"
	"crypto/tls"
	"net"

	tlscfg "github.com/nabbar/golib/certificates"
)

// AcceptTLS runs the server-side handshake over an already-accepted
// connection, using this module's certificates package to build the
// *tls.Config rather than constructing one by hand. serverName is the SNI
// hint forwarded to the certificate resolver; pass "" when the daemon has
// a single certificate.
func AcceptTLS(ctx context.Context, conn net.Conn, cfg tlscfg.TLSConfig, serverName string) (Transport, error) {
	tc := tls.Server(conn, cfg.TlsConfig(serverName))

	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, ErrorHandshake.Error(err)
	}

	return NewTLS(tc), nil
}
