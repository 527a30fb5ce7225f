package webtools

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
)

// maxFetchBody caps fetch responses to keep tool results bounded.
const maxFetchBody = 1 << 20 // 1 MiB

// restrictedFetchHeaders are never forwarded from the caller: the
// transport owns connection management and the whitelist owns the
// target host.
var restrictedFetchHeaders = map[string]bool{
	"Host":              true,
	"Content-Length":    true,
	"Connection":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
	"Keep-Alive":        true,
	"Proxy-Connection":  true,
}

// Fetch retrieves a whitelisted URL. The whitelist is checked on the
// parsed hostname before any connection is opened; upstream HTTP error
// statuses are passed through to the caller rather than translated.
func (h *Handler) Fetch(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
	rawURL, err := call.RequiredString("url")
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(call.StringParam("method", http.MethodGet))
	if method != http.MethodGet && method != http.MethodHead && method != http.MethodPost {
		return nil, dispatcher.Validationf("unsupported method %q (want GET, HEAD or POST)", method)
	}
	reqBody := call.StringParam("body", "")
	if reqBody != "" && method != http.MethodPost {
		return nil, dispatcher.Validationf("body requires method POST, got %q", method)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, dispatcher.Validationf("invalid url: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, dispatcher.Validationf("unsupported scheme %q", parsed.Scheme)
	}
	if !h.hostWhitelisted(parsed.Hostname()) {
		return nil, dispatcher.Validationf("URL not in whitelist: %s", parsed.Hostname())
	}

	var payload io.Reader
	if reqBody != "" {
		payload = strings.NewReader(reqBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build fetch request")
	}
	req.Header.Set("User-Agent", "mcp-registry/1.0")
	for name, value := range call.MapParam("headers") {
		str, ok := value.(string)
		if !ok {
			return nil, dispatcher.Validationf("header %q must be a string", name)
		}
		if restrictedFetchHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		req.Header.Set(name, str)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, dispatcher.APIErrorf("fetch failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return nil, dispatcher.APIErrorf("failed to read response body: %v", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	return map[string]interface{}{
		"url":         rawURL,
		"status":      resp.StatusCode,
		"headers":     headers,
		"body":        string(body),
		"contentType": resp.Header.Get("Content-Type"),
	}, nil
}

// hostWhitelisted reports whether the hostname exactly matches a
// whitelist entry or is a subdomain of one.
func (h *Handler) hostWhitelisted(hostname string) bool {
	hostname = strings.ToLower(hostname)
	for _, entry := range h.cfg.FetchWhitelist {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if hostname == entry || strings.HasSuffix(hostname, "."+entry) {
			return true
		}
	}
	return false
}
