// Package upstream describes outbound calls to third-party data APIs and the
// transports that carry them, either directly or through a remote proxy.
package upstream

import (
	"context"
	"net/http"
	"net/url"
)

// Upstream names. They double as the "api" field of the proxy contract.
const (
	Santiment   = "santiment"
	CoinMetrics = "coinmetrics"
	CryptoPanic = "cryptopanic"
	FearGreed   = "feargreed"
	OpenAI      = "openai"
)

// Request is a transport-neutral description of one upstream call. Endpoint
// is relative to the upstream's base URL. Credentials are never set here.
type Request struct {
	Upstream string
	Method   string
	Endpoint string
	Query    url.Values
	Header   http.Header
	Body     []byte
}

// Response carries the raw upstream reply for every status code.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Transport executes a Request. A non-nil error means no HTTP response was
// obtained (network failure or context end); non-2xx statuses are returned as
// a Response and classified by CheckStatus.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}
