package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/dispersed/internal/common"
	"github.com/dmitrijs2005/dispersed/internal/logging"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultTLSTimeout     = 5 * time.Second
)

// TokenSource yields the current identity token, or "" when there is no
// session.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) GetToken(ctx context.Context) (string, error) { return f(ctx) }

// MultipartFile is a single file sent as multipart/form-data.
type MultipartFile struct {
	Field       string
	Filename    string
	ContentType string
	Content     io.Reader
}

// RequestOptions describes one call. The zero value is a GET with no body.
type RequestOptions struct {
	Method    string
	Query     url.Values
	JSON      any
	Multipart *MultipartFile
	Header    http.Header
}

// Gateway sends requests to the Dispersed API.
type Gateway struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
}

type Option func(*Gateway)

// WithHTTPClient replaces the transport, mostly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.http = c }
}

// WithConnectTimeout bounds dialing and the TLS handshake. No overall request
// timeout is set.
func WithConnectTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.http = defaultClient(d) }
}

func WithLogger(l logging.Logger) Option {
	return func(g *Gateway) { g.log = logging.OrNop(l) }
}

// New returns a Gateway for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    defaultClient(defaultConnectTimeout),
		log:     logging.Nop{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func defaultClient(connectTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultTLSTimeout,
	}
	return &http.Client{Transport: transport}
}

// BaseURL returns the API root the gateway was built with.
func (g *Gateway) BaseURL() string { return g.baseURL }

// Request performs an unauthenticated call. A 204 response yields a nil
// result and a nil error.
func (g *Gateway) Request(ctx context.Context, endpoint string, opts RequestOptions) (json.RawMessage, error) {
	return g.do(ctx, endpoint, "", opts)
}

// AuthenticatedRequest resolves a token from tokens and sends it as a bearer
// credential. Without a token it fails with ErrAuthRequired before any
// network activity.
func (g *Gateway) AuthenticatedRequest(ctx context.Context, endpoint string, tokens TokenSource, opts RequestOptions) (json.RawMessage, error) {
	token, err := resolveToken(ctx, tokens)
	if err != nil {
		return nil, err
	}
	if token == "" {
		g.log.Debug(ctx, "no token, request not sent", "endpoint", endpoint)
		return nil, authRequiredError()
	}
	return g.do(ctx, endpoint, token, opts)
}

// optionalAuth attaches a token when one is available and otherwise sends
// the request anonymously.
func (g *Gateway) optionalAuth(ctx context.Context, endpoint string, tokens TokenSource, opts RequestOptions) (json.RawMessage, error) {
	token, err := resolveToken(ctx, tokens)
	if err != nil {
		return nil, err
	}
	return g.do(ctx, endpoint, token, opts)
}

func resolveToken(ctx context.Context, tokens TokenSource) (string, error) {
	if tokens == nil {
		return "", nil
	}
	token, err := tokens.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve token: %w", err)
	}
	return token, nil
}

func (g *Gateway) do(ctx context.Context, endpoint, token string, opts RequestOptions) (json.RawMessage, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	u := g.baseURL + endpoint
	if len(opts.Query) > 0 {
		u += "?" + opts.Query.Encode()
	}

	body, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set(common.ContentTypeHeaderName, contentType)
	req.Header.Set("Accept", common.JSONContentType)
	req.Header.Set("User-Agent", common.UserAgent)

	requestID := uuid.NewString()
	req.Header.Set(common.RequestIDHeaderName, requestID)

	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	log := g.log.With("method", method, "endpoint", endpoint, "request_id", requestID)

	resp, err := g.http.Do(req)
	if err != nil {
		log.Warn(ctx, "request failed", "error", err)
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	log.Debug(ctx, "response", "status", resp.StatusCode)

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn(ctx, "read body failed", "error", err)
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reqErr := httpError(resp.StatusCode, raw)
		log.Warn(ctx, "request rejected", "status", resp.StatusCode, "message", reqErr.Message)
		return nil, reqErr
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		log.Warn(ctx, "response is not JSON", "status", resp.StatusCode)
		return nil, transportError(fmt.Errorf("decode response: invalid JSON"))
	}
	return json.RawMessage(raw), nil
}

func encodeBody(opts RequestOptions) (io.Reader, string, error) {
	if opts.Multipart != nil {
		return encodeMultipart(opts.Multipart)
	}
	if opts.JSON == nil {
		return nil, common.JSONContentType, nil
	}
	b, err := json.Marshal(opts.JSON)
	if err != nil {
		return nil, "", fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(b), common.JSONContentType, nil
}

func encodeMultipart(f *MultipartFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
	if f.ContentType != "" {
		h.Set(common.ContentTypeHeaderName, f.ContentType)
	}
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("encode multipart: %w", err)
	}
	if _, err := io.Copy(part, f.Content); err != nil {
		return nil, "", fmt.Errorf("encode multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("encode multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// decode unmarshals a successful response into R. A nil response leaves R at
// its zero value.
func decode[R any](raw json.RawMessage, err error) (R, error) {
	var result R
	if err != nil {
		return result, err
	}
	if len(raw) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, transportError(fmt.Errorf("decode response: %w", err))
	}
	return result, nil
}
