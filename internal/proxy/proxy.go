// Package proxy is the server side of the upstream proxy contract: browser
// clients post {api, endpoint, params} or {url, query} and the server
// forwards the call with the upstream's credential attached.
package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cryptopulse/internal/domain"
	"cryptopulse/internal/upstream"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultTimeout  = 15 * time.Second
	maxRequestBytes = 1 << 20
)

// ErrorBody is returned for every non-2xx proxy response.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type Handler struct {
	tracer    trace.Tracer
	registry  *upstream.Registry
	transport upstream.Transport
	timeout   time.Duration
	logger    *zap.Logger
}

func New(tracer trace.Tracer, registry *upstream.Registry, transport upstream.Transport, timeout time.Duration, logger *zap.Logger) *Handler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		tracer:    tracer,
		registry:  registry,
		transport: transport,
		timeout:   timeout,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/proxy", h.Proxy)
}

// CORS allows any origin to call the proxy.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining"},
		MaxAge:          12 * time.Hour,
	})
}

// Proxy godoc
// @Summary      Forward a request to a registered upstream API
// @Description  Accepts {api, endpoint, params} or {url, query}, attaches the upstream credential and returns the upstream body verbatim on 2xx
// @Tags         proxy
// @Accept       json
// @Produce      json
// @Param        request  body  upstream.ProxyEnvelope  true  "Proxy request"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  proxy.ErrorBody
// @Failure      500  {object}  proxy.ErrorBody
// @Router       /api/proxy [post]
func (h *Handler) Proxy(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.proxy")
	defer span.End()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)
	var env upstream.ProxyEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, ErrorBody{Error: "invalid request body", Details: err.Error()})
		return
	}

	req, err := h.resolve(env)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorBody{Error: "invalid proxy request", Details: err.Error()})
		return
	}
	span.SetAttributes(attribute.String("upstream", req.Upstream), attribute.String("endpoint", req.Endpoint))

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	resp, err := h.transport.Do(ctx, req)
	if err != nil {
		fe := domain.AsFetchError(err)
		span.RecordError(err)
		h.logger.Warn("proxy request failed",
			zap.String("upstream", req.Upstream),
			zap.String("endpoint", req.Endpoint),
			zap.String("kind", string(fe.Kind)),
			zap.Duration("elapsed", time.Since(start)),
		)
		c.JSON(http.StatusInternalServerError, ErrorBody{Error: proxyErrorMessage(fe.Kind), Details: fe.Message})
		return
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.Status))
	h.logger.Info("proxy request",
		zap.String("upstream", req.Upstream),
		zap.String("endpoint", req.Endpoint),
		zap.Int("status", resp.Status),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.Status >= 200 && resp.Status < 300 {
		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/json"
		}
		c.Data(resp.Status, contentType, resp.Body)
		return
	}
	c.JSON(resp.Status, ErrorBody{
		Error:   "upstream returned " + strings.ToLower(http.StatusText(resp.Status)),
		Details: upstream.StatusError(resp.Status, resp.Body).Message,
	})
}

var errNoTarget = errors.New("either api or url is required")

// resolve validates the envelope against the upstream allow-list.
func (h *Handler) resolve(env upstream.ProxyEnvelope) (upstream.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(env.Method))
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet && method != http.MethodPost {
		return upstream.Request{}, errors.New("method must be GET or POST")
	}

	switch {
	case strings.TrimSpace(env.API) != "":
		endpoint, ok := h.registry.Lookup(env.API)
		if !ok {
			return upstream.Request{}, errors.New("unknown api " + env.API)
		}
		path, err := cleanEndpoint(env.Endpoint)
		if err != nil {
			return upstream.Request{}, err
		}
		q := url.Values{}
		for k, v := range env.Params {
			q.Set(k, v)
		}
		return upstream.Request{Upstream: endpoint.Name, Method: method, Endpoint: path, Query: q, Body: env.Body}, nil

	case strings.TrimSpace(env.URL) != "":
		u, err := url.Parse(strings.TrimSpace(env.URL))
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return upstream.Request{}, errors.New("url must be an absolute http(s) URL")
		}
		endpoint, ok := h.registry.ForHost(u.Hostname())
		if !ok {
			return upstream.Request{}, errors.New("host " + u.Hostname() + " is not an allowed upstream")
		}
		path, err := cleanEndpoint(u.Path)
		if err != nil {
			return upstream.Request{}, err
		}
		q := u.Query()
		for k, v := range env.Query {
			q.Set(k, v)
		}
		return upstream.Request{Upstream: endpoint.Name, Method: method, Endpoint: path, Query: q, Body: env.Body}, nil
	}
	return upstream.Request{}, errNoTarget
}

func cleanEndpoint(p string) (string, error) {
	p = strings.TrimSpace(p)
	if strings.Contains(p, "://") || strings.Contains(p, "..") {
		return "", errors.New("endpoint must be a relative path")
	}
	return strings.TrimLeft(p, "/"), nil
}

func proxyErrorMessage(kind domain.ErrorKind) string {
	switch kind {
	case domain.KindMissingCredential:
		return "upstream credential not configured"
	case domain.KindTimeout:
		return "upstream request timed out"
	case domain.KindCancelled:
		return "request cancelled"
	default:
		return "upstream request failed"
	}
}
