package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

const dialTimeout = 30 * time.Second

// Browser performs requests with a Chrome TLS fingerprint. Some series pages sit
// behind bot protection that rejects the default Go handshake.
//
// It first tries HTTP/2 and falls back to HTTP/1.1 when the h2 attempt fails.
type Browser struct {
	Timeout time.Duration

	once sync.Once
	h2   *http.Client
	h1   *http.Client
}

// NewBrowser returns a Browser with the given per-request timeout.
func NewBrowser(timeout time.Duration) *Browser {
	return &Browser{Timeout: timeout}
}

func (b *Browser) init() {
	b.once.Do(func() {
		b.h2 = &http.Client{
			Timeout: b.Timeout,
			Transport: &http2.Transport{
				DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
					return dialTLS(ctx, network, addr, nil)
				},
			},
		}
		b.h1 = &http.Client{
			Timeout: b.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					return dialTLS(ctx, network, addr, []string{"http/1.1"})
				},
			},
		}
	})
}

// Do sends req. Only requests without a body are retried on the HTTP/1.1 transport.
func (b *Browser) Do(req *http.Request) (*http.Response, error) {
	b.init()

	if req.URL.Scheme != "https" {
		return Client.Do(req)
	}

	resp, err := b.h2.Do(req)
	if err == nil {
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody {
		return nil, err
	}
	if ctxErr := req.Context().Err(); ctxErr != nil {
		return nil, ctxErr
	}

	resp, err = b.h1.Do(req.Clone(req.Context()))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// dialTLS creates a TLS connection mimicking Chrome 120's ClientHello.
func dialTLS(ctx context.Context, network, addr string, protos []string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		NextProtos: protos,
	}, utls.HelloChrome_120)

	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
