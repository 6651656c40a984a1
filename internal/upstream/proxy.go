package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"cryptopulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ProxyEnvelope is the JSON body accepted by the proxy boundary.
type ProxyEnvelope struct {
	API      string            `json:"api,omitempty"`
	Endpoint string            `json:"endpoint,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Method   string            `json:"method,omitempty"`
	Body     json.RawMessage   `json:"body,omitempty"`

	// Raw-URL form.
	URL   string            `json:"url,omitempty"`
	Query map[string]string `json:"query,omitempty"`
}

// ProxyTransport routes every upstream call through a remote proxy boundary,
// which holds the credentials. Callers never see the upstream secrets.
type ProxyTransport struct {
	client   *http.Client
	proxyURL string
	tracer   trace.Tracer
}

func NewProxyTransport(proxyURL string, tracer trace.Tracer) *ProxyTransport {
	return &ProxyTransport{
		client:   &http.Client{Timeout: 30 * time.Second},
		proxyURL: strings.TrimSpace(proxyURL),
		tracer:   tracer,
	}
}

// WithHTTPClient swaps the underlying client.
func (t *ProxyTransport) WithHTTPClient(client *http.Client) *ProxyTransport {
	if client != nil {
		t.client = client
	}
	return t
}

func (t *ProxyTransport) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, span := t.tracer.Start(ctx, "upstream.proxy")
	defer span.End()
	span.SetAttributes(attribute.String("upstream", req.Upstream), attribute.String("endpoint", req.Endpoint))

	envelope := ProxyEnvelope{
		API:      req.Upstream,
		Endpoint: req.Endpoint,
		Params:   flattenQuery(req.Query),
		Method:   req.method(),
	}
	if len(req.Body) > 0 {
		envelope.Body = json.RawMessage(req.Body)
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidRequest, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.proxyURL, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidRequest, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := send(t.client, httpReq)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.Status))
	return resp, nil
}

func flattenQuery(q map[string][]string) map[string]string {
	if len(q) == 0 {
		return nil
	}
	out := make(map[string]string, len(q))
	for k, vs := range q {
		out[k] = strings.Join(vs, ",")
	}
	return out
}
