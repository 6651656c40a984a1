package upstream

import (
	"net/http"
	"net/url"
	"strings"
)

// CredentialStyle names how a secret is attached to an outbound request.
type CredentialStyle int

const (
	CredentialNone CredentialStyle = iota
	CredentialBearer
	CredentialXAPIKey
	CredentialAuthToken
	CredentialApikeyHeader
	CredentialQueryAPIKey
	CredentialQueryAuthToken
)

func (s CredentialStyle) String() string {
	switch s {
	case CredentialBearer:
		return "authorization-bearer"
	case CredentialXAPIKey:
		return "x-api-key"
	case CredentialAuthToken:
		return "auth-token"
	case CredentialApikeyHeader:
		return "authorization-apikey"
	case CredentialQueryAPIKey:
		return "query-api_key"
	case CredentialQueryAuthToken:
		return "query-auth_token"
	default:
		return "none"
	}
}

// Apply attaches secret to the header or query according to the style.
func (s CredentialStyle) Apply(h http.Header, q url.Values, secret string) {
	if secret == "" {
		return
	}
	switch s {
	case CredentialBearer:
		h.Set("Authorization", "Bearer "+secret)
	case CredentialXAPIKey:
		h.Set("X-Api-Key", secret)
	case CredentialAuthToken:
		h.Set("Auth-Token", secret)
	case CredentialApikeyHeader:
		h.Set("Authorization", "Apikey "+secret)
	case CredentialQueryAPIKey:
		q.Set("api_key", secret)
	case CredentialQueryAuthToken:
		q.Set("auth_token", secret)
	}
}

// Endpoint is one registered upstream.
type Endpoint struct {
	Name       string
	BaseURL    string
	Style      CredentialStyle
	Credential string
}

// HasCredential reports whether the endpoint can be called authenticated.
// Endpoints without a credential style never need one.
func (e Endpoint) HasCredential() bool {
	return e.Style == CredentialNone || e.Credential != ""
}

func (e Endpoint) host() string {
	u, err := url.Parse(e.BaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Credentials holds one secret per upstream.
type Credentials struct {
	Santiment   string
	CoinMetrics string
	CryptoPanic string
	OpenAI      string
}

// BaseURLs overrides the default base URLs, mostly for tests.
type BaseURLs struct {
	Santiment   string
	CoinMetrics string
	CryptoPanic string
	FearGreed   string
	OpenAI      string
}

const (
	defaultSantimentURL   = "https://api.santiment.net"
	defaultCoinMetricsURL = "https://api.coinmetrics.io"
	defaultCryptoPanicURL = "https://cryptopanic.com"
	defaultFearGreedURL   = "https://api.alternative.me"
	defaultOpenAIURL      = "https://api.openai.com"
)

// Registry is the allow-list of upstreams. It is read-only after construction.
type Registry struct {
	endpoints map[string]Endpoint
	hosts     map[string]string
}

// NewRegistry registers every known upstream with its canonical credential style.
func NewRegistry(creds Credentials, urls BaseURLs) *Registry {
	r := &Registry{
		endpoints: make(map[string]Endpoint),
		hosts:     make(map[string]string),
	}
	r.add(Endpoint{Name: Santiment, BaseURL: orDefault(urls.Santiment, defaultSantimentURL), Style: CredentialApikeyHeader, Credential: creds.Santiment})
	r.add(Endpoint{Name: CoinMetrics, BaseURL: orDefault(urls.CoinMetrics, defaultCoinMetricsURL), Style: CredentialQueryAPIKey, Credential: creds.CoinMetrics})
	r.add(Endpoint{Name: CryptoPanic, BaseURL: orDefault(urls.CryptoPanic, defaultCryptoPanicURL), Style: CredentialQueryAuthToken, Credential: creds.CryptoPanic})
	r.add(Endpoint{Name: FearGreed, BaseURL: orDefault(urls.FearGreed, defaultFearGreedURL), Style: CredentialNone})
	r.add(Endpoint{Name: OpenAI, BaseURL: orDefault(urls.OpenAI, defaultOpenAIURL), Style: CredentialBearer, Credential: creds.OpenAI})
	return r
}

func (r *Registry) add(e Endpoint) {
	e.BaseURL = strings.TrimRight(e.BaseURL, "/")
	r.endpoints[e.Name] = e
	if h := e.host(); h != "" {
		r.hosts[h] = e.Name
	}
}

// Lookup returns the endpoint registered under name.
func (r *Registry) Lookup(name string) (Endpoint, bool) {
	e, ok := r.endpoints[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}

// ForHost returns the endpoint whose base URL has the given host.
func (r *Registry) ForHost(host string) (Endpoint, bool) {
	name, ok := r.hosts[strings.ToLower(host)]
	if !ok {
		return Endpoint{}, false
	}
	return r.Lookup(name)
}

// HasCredential reports whether upstream name is registered and callable.
func (r *Registry) HasCredential(name string) bool {
	e, ok := r.Lookup(name)
	return ok && e.HasCredential()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
