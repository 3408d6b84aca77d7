// Package network provides pre-configured HTTP clients for page resolution and media transfers.
package network

import (
	"net/http"
	"time"
)

// Client is the shared client for short requests such as series pages.
var Client = &http.Client{
	Timeout:   time.Minute,
	Transport: newTransport(),
}

// Media is the shared client for episode downloads. It has no overall timeout:
// a transfer may legitimately run for hours, and stalls are detected per read.
var Media = &http.Client{
	Transport: newTransport(),
}

// newTransport initializes a tuned http.Transport with pool and timeout parameters
// sized for a handful of long-lived parallel downloads.
func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 16
	t.MaxConnsPerHost = 32
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	t.ExpectContinueTimeout = 5 * time.Second
	// Media hosts serve already-compressed video; transparent gzip would break Range offsets.
	t.DisableCompression = true
	return t
}
