package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"

	c "github.com/unkn0wn-root/restcache/codec"
)

// RequestIDHeader is set on every outgoing request unless already present.
const RequestIDHeader = "X-Request-ID"

const defaultMaxBody = 16 << 20

// HTTP is a Transport over net/http. The zero value is not usable;
// construct with NewHTTP.
type HTTP struct {
	base        *url.URL
	client      *http.Client
	codec       c.Codec[any]
	contentType string
	headers     map[string]string
	token       string
	maxBody     int64
}

var _ Transport = (*HTTP)(nil)

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithBaseURL resolves relative request URLs against base.
func WithBaseURL(base string) HTTPOption {
	return func(h *HTTP) {
		if u, err := url.Parse(base); err == nil {
			h.base = u
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(h *HTTP) {
		if hc != nil {
			h.client = hc
		}
	}
}

// WithTimeout sets the client-wide timeout. A client passed through
// WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		hc := *h.client
		hc.Timeout = d
		h.client = &hc
	}
}

// WithBodyCodec sets the codec and content type for request bodies.
// Responses are always decoded according to their own Content-Type.
func WithBodyCodec(contentType string, codec c.Codec[any]) HTTPOption {
	return func(h *HTTP) {
		h.contentType = contentType
		h.codec = codec
	}
}

// WithHeader adds a header sent on every request. Per-request config wins.
func WithHeader(key, value string) HTTPOption {
	return func(h *HTTP) { h.headers[key] = value }
}

// WithToken sends "Authorization: Bearer <token>".
func WithToken(token string) HTTPOption {
	return func(h *HTTP) { h.token = token }
}

// WithMaxBody caps response body size; larger bodies fail the request.
func WithMaxBody(n int64) HTTPOption {
	return func(h *HTTP) { h.maxBody = n }
}

func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		client:      &http.Client{Timeout: 30 * time.Second},
		codec:       c.JSON[any]{},
		contentType: c.MediaJSON,
		headers:     map[string]string{"Accept": c.MediaJSON},
		maxBody:     defaultMaxBody,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) Do(ctx context.Context, req *Request) (*Response, error) {
	target, err := h.resolve(req.URL, req.Params)
	if err != nil {
		return nil, &Error{Method: req.Method, URL: req.URL, Cause: err}
	}
	fail := func(status int, body any, cause error) error {
		return &Error{Method: req.Method, URL: target, Status: status, Body: body, Cause: cause}
	}

	if req.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Config.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := h.codec.Encode(req.Body)
		if err != nil {
			return nil, fail(0, nil, fmt.Errorf("encode body: %w", err))
		}
		body = bytes.NewReader(b)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fail(0, nil, err)
	}
	for k, v := range h.headers {
		hreq.Header.Set(k, v)
	}
	if h.token != "" {
		hreq.Header.Set("Authorization", "Bearer "+h.token)
	}
	if body != nil {
		hreq.Header.Set("Content-Type", h.contentType)
	}
	for k, v := range req.Config.Headers {
		hreq.Header.Set(k, v)
	}
	if hreq.Header.Get(RequestIDHeader) == "" {
		hreq.Header.Set(RequestIDHeader, uuid.NewString())
	}

	resp, err := h.client.Do(hreq)
	if err != nil {
		return nil, fail(0, nil, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody+1))
	if err != nil {
		return nil, fail(resp.StatusCode, nil, fmt.Errorf("read body: %w", err))
	}
	if int64(len(raw)) > h.maxBody {
		return nil, fail(resp.StatusCode, nil, fmt.Errorf("response body exceeds %d bytes", h.maxBody))
	}

	decoded, derr := decodeBody(resp.Header.Get("Content-Type"), raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(resp.StatusCode, decoded, fmt.Errorf("unexpected status %s", http.StatusText(resp.StatusCode)))
	}
	if derr != nil {
		return nil, fail(resp.StatusCode, nil, fmt.Errorf("decode body: %w", derr))
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: decoded}, nil
}

func (h *HTTP) resolve(raw string, params map[string]any) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if h.base != nil && !u.IsAbs() {
		u = h.base.ResolveReference(u)
	}
	if len(params) > 0 {
		q := u.Query()
		for _, k := range sortedKeys(params) {
			addQuery(q, k, params[k])
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func addQuery(q url.Values, key string, v any) {
	switch t := v.(type) {
	case nil:
	case []string:
		for _, s := range t {
			q.Add(key, s)
		}
	case []any:
		for _, e := range t {
			addQuery(q, key, e)
		}
	default:
		q.Add(key, fmt.Sprint(t))
	}
}

// decodeBody picks a codec from the response media type. Empty bodies
// decode to nil. Untyped or unknown bodies are JSON when they parse,
// raw text otherwise.
func decodeBody(contentType string, raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if codec, ok := c.ForMediaType(contentType); ok {
		return codec.Decode(raw)
	}
	if v, err := (c.JSON[any]{}).Decode(raw); err == nil {
		return v, nil
	}
	return string(raw), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
