package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"cryptopulse/internal/domain"
)

const maxErrorSnippet = 200

// StatusError classifies a non-2xx upstream status.
func StatusError(status int, body []byte) *domain.FetchError {
	kind := domain.KindUpstreamStatus
	switch status {
	case http.StatusTooManyRequests:
		kind = domain.KindRateLimited
	case http.StatusUnauthorized:
		kind = domain.KindUnauthorized
	case http.StatusPaymentRequired:
		kind = domain.KindPaymentRequired
	case http.StatusBadRequest:
		kind = domain.KindInvalidRequest
	}
	msg := http.StatusText(status)
	if snippet := snippet(body); snippet != "" {
		msg = fmt.Sprintf("%s: %s", msg, snippet)
	}
	return &domain.FetchError{Kind: kind, Message: msg, Status: status}
}

// CheckStatus returns nil for 2xx responses and a classified error otherwise.
func CheckStatus(resp *Response) error {
	if resp == nil {
		return domain.NewError(domain.KindNetwork, "no response")
	}
	if resp.Status >= 200 && resp.Status < 300 {
		return nil
	}
	return StatusError(resp.Status, resp.Body)
}

var htmlMarkers = [][]byte{
	[]byte("<!doctype html"),
	[]byte("<html"),
	[]byte("<head"),
	[]byte("<body"),
}

// LooksLikeHTML reports whether body is an HTML page rather than an API payload.
func LooksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 512 {
		head = head[:512]
	}
	for _, marker := range htmlMarkers {
		if bytes.Contains(head, marker) {
			return true
		}
	}
	return false
}

// DecodeJSON decodes body into v. HTML pages and malformed JSON are
// reported as InvalidResponseFormat so they are never retried.
func DecodeJSON(body []byte, v any) error {
	if LooksLikeHTML(body) {
		return domain.NewError(domain.KindInvalidResponseFormat, "received HTML page instead of JSON")
	}
	if !json.Valid(body) {
		return domain.NewError(domain.KindInvalidResponseFormat, "response is not valid JSON: %s", snippet(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &domain.FetchError{Kind: domain.KindInvalidResponseFormat, Message: err.Error(), Err: err}
	}
	return nil
}

func snippet(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	return truncate(s, maxErrorSnippet)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
