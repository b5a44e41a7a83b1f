package helper

import (
	"context"
	"net"
	"net/http"
	"time"
)

// NewHttpClient returns a client without a total timeout, so that large transfers can take as long as
// they need. A connection fails if no data is read or written for idleTimeout, or if the server does not
// send response headers within responseTimeout after the request was written
func NewHttpClient(idleTimeout, responseTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: idleTimeout, KeepAlive: 30 * time.Second}
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
				conn, err := dialer.DialContext(ctx, network, address)
				if err != nil {
					return nil, err
				}
				return &idleTimeoutConn{Conn: conn, timeout: idleTimeout}, nil
			},
			TLSHandshakeTimeout:   idleTimeout,
			ResponseHeaderTimeout: responseTimeout,
			ExpectContinueTimeout: time.Second,
			IdleConnTimeout:       idleTimeout / 2,
			MaxIdleConnsPerHost:   2,
		},
	}
}

// idleTimeoutConn moves the deadline forward on every read and write
type idleTimeoutConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleTimeoutConn) Read(b []byte) (int, error) {
	err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
	if err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *idleTimeoutConn) Write(b []byte) (int, error) {
	err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}
