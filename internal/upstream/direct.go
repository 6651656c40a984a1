package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cryptopulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxResponseBytes = 4 << 20

// DirectTransport calls upstreams itself, resolving base URLs and injecting
// credentials from the Registry.
type DirectTransport struct {
	client   *http.Client
	registry *Registry
	limits   Limits
	tracer   trace.Tracer
}

func NewDirectTransport(registry *Registry, limits Limits, tracer trace.Tracer) *DirectTransport {
	return &DirectTransport{
		client:   &http.Client{Timeout: 30 * time.Second},
		registry: registry,
		limits:   limits,
		tracer:   tracer,
	}
}

// WithHTTPClient swaps the underlying client.
func (t *DirectTransport) WithHTTPClient(client *http.Client) *DirectTransport {
	if client != nil {
		t.client = client
	}
	return t
}

func (t *DirectTransport) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, span := t.tracer.Start(ctx, "upstream.direct")
	defer span.End()
	span.SetAttributes(attribute.String("upstream", req.Upstream), attribute.String("endpoint", req.Endpoint))

	endpoint, ok := t.registry.Lookup(req.Upstream)
	if !ok {
		return nil, domain.NewError(domain.KindInvalidRequest, "unknown upstream %q", req.Upstream)
	}
	if !endpoint.HasCredential() {
		return nil, domain.NewError(domain.KindMissingCredential, "no credential configured for %s", endpoint.Name)
	}
	if err := t.limits.wait(ctx, endpoint.Name); err != nil {
		return nil, domain.ContextError(ctx)
	}

	httpReq, err := buildHTTPRequest(ctx, endpoint, req)
	if err != nil {
		return nil, err
	}
	resp, err := send(t.client, httpReq)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.Status))
	return resp, nil
}

func buildHTTPRequest(ctx context.Context, endpoint Endpoint, req Request) (*http.Request, error) {
	target, err := url.Parse(endpoint.BaseURL + "/" + strings.TrimLeft(req.Endpoint, "/"))
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidRequest, err)
	}
	query := target.Query()
	for k, vs := range req.Query {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	header := http.Header{}
	for k, vs := range req.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	endpoint.Style.Apply(header, query, endpoint.Credential)
	target.RawQuery = query.Encode()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method(), target.String(), body)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidRequest, err)
	}
	httpReq.Header = header
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// send performs the round trip. Failures while ctx is live are network
// errors; failures after ctx ended are cancellation or timeout.
func send(client *http.Client, req *http.Request) (*Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		if cerr := domain.ContextError(req.Context()); cerr != nil {
			return nil, cerr
		}
		return nil, &domain.FetchError{Kind: domain.KindNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if cerr := domain.ContextError(req.Context()); cerr != nil {
			return nil, cerr
		}
		return nil, &domain.FetchError{Kind: domain.KindNetwork, Message: fmt.Sprintf("read body: %v", err), Err: err}
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}
