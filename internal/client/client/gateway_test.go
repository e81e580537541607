package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/dispersed/internal/common"
)

func staticTokens(tok string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) { return tok, nil })
}

func newTestServer(t *testing.T, h http.HandlerFunc) (*Gateway, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, WithHTTPClient(srv.Client())), &hits
}

func TestRequest_Success(t *testing.T) {
	g, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, common.JSONContentType, r.Header.Get(common.ContentTypeHeaderName))
		assert.NotEmpty(t, r.Header.Get(common.RequestIDHeaderName))
		assert.Equal(t, common.UserAgent, r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get(common.AuthorizationHeaderName))
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	raw, err := g.Request(context.Background(), "/api/x", RequestOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestRequest_NoContent(t *testing.T) {
	g, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	raw, err := g.Request(context.Background(), "/api/x", RequestOptions{Method: http.MethodDelete})
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestRequest_HTTPErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		message  string
		sentinel error
	}{
		{"error field", http.StatusBadRequest, `{"error":"bad title"}`, "bad title", ErrHTTP},
		{"message field", http.StatusNotFound, `{"message":"nope"}`, "nope", ErrNotFound},
		{"no message", http.StatusInternalServerError, `{}`, MessageRequestFailed, ErrHTTP},
		{"not json", http.StatusBadGateway, `<html>`, MessageRequestFailed, ErrHTTP},
		{"forbidden", http.StatusForbidden, `{"error":"no"}`, "no", ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, "slow down", ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := g.Request(context.Background(), "/api/x", RequestOptions{})
			var re *RequestError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.status, re.Status)
			assert.Equal(t, tt.message, re.Message)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.NotErrorIs(t, err, ErrTransport)
			assert.Equal(t, tt.status, StatusOf(err))
		})
	}
}

func TestRequest_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Request(context.Background(), "/api/x", RequestOptions{})
	var re *RequestError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 0, re.Status)
	assert.Equal(t, MessageNetworkError, re.Message)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrHTTP)
}

func TestRequest_UndecodableSuccessIsTransportError(t *testing.T) {
	g, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	})

	_, err := g.Request(context.Background(), "/api/x", RequestOptions{})
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 0, StatusOf(err))
}

func TestRequest_ContextCanceled(t *testing.T) {
	g, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Request(ctx, "/api/x", RequestOptions{})
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequest_QueryAndJSONBody(t *testing.T) {
	g, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "b", r.URL.Query().Get("a"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"k":"v"}`, string(b))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{}`)
	})

	_, err := g.Request(context.Background(), "/api/x", RequestOptions{
		Method: http.MethodPost,
		Query:  map[string][]string{"a": {"b"}},
		JSON:   map[string]string{"k": "v"},
	})
	require.NoError(t, err)
}

func TestAuthenticatedRequest_NoTokenSkipsNetwork(t *testing.T) {
	g, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})

	for _, ts := range []TokenSource{nil, staticTokens("")} {
		_, err := g.AuthenticatedRequest(context.Background(), "/api/campsites", ts, RequestOptions{Method: http.MethodPost})
		var re *RequestError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, http.StatusUnauthorized, re.Status)
		assert.Equal(t, MessageAuthRequired, re.Message)
		assert.ErrorIs(t, err, ErrAuthRequired)
	}
	assert.Zero(t, hits.Load())
}

func TestAuthenticatedRequest_TokenSourceError(t *testing.T) {
	g, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	boom := errors.New("boom")

	_, err := g.AuthenticatedRequest(context.Background(), "/api/x",
		TokenSourceFunc(func(context.Context) (string, error) { return "", boom }), RequestOptions{})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, hits.Load())
}

func TestAuthenticatedRequest_BearerHeader(t *testing.T) {
	g, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get(common.AuthorizationHeaderName))
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := g.AuthenticatedRequest(context.Background(), "/api/x", staticTokens("tok"), RequestOptions{})
	require.NoError(t, err)
}

func TestRequest_MultipartOmitsJSONContentType(t *testing.T) {
	g, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get(common.ContentTypeHeaderName)
		assert.True(t, strings.HasPrefix(ct, "multipart/form-data; boundary="), ct)

		f, h, err := r.FormFile("photo")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "pixels", string(b))
		assert.Equal(t, "a.png", h.Filename)
		assert.Equal(t, "image/png", h.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"id":"p1"}`)
	})

	_, err := g.Request(context.Background(), "/api/x", RequestOptions{
		Method: http.MethodPost,
		Multipart: &MultipartFile{
			Field: "photo", Filename: "a.png", ContentType: "image/png", Content: strings.NewReader("pixels"),
		},
	})
	require.NoError(t, err)
}

func TestNew_TrimsBaseURL(t *testing.T) {
	assert.Equal(t, "http://h", New("http://h/").BaseURL())
}
