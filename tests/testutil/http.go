package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/roovies/concert-reservation/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// APIClient drives an http.Handler in-process and decodes the response
// envelope.
type APIClient struct {
	t       testing.TB
	handler http.Handler
}

// NewAPIClient wraps handler, usually a *gin.Engine.
func NewAPIClient(t testing.TB, handler http.Handler) *APIClient {
	return &APIClient{t: t, handler: handler}
}

// RequestOption mutates an outgoing request.
type RequestOption func(*http.Request)

// WithBearer sets the Authorization header.
func WithBearer(token string) RequestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

// WithHeader sets an arbitrary header.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// APIResponse is a recorded response.
type APIResponse struct {
	t        testing.TB
	Recorder *httptest.ResponseRecorder
}

// Do sends a request with body JSON-encoded when non-nil.
func (c *APIClient) Do(method, path string, body any, opts ...RequestOption) *APIResponse {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		reader = ToJSONReader(c.t, body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return &APIResponse{t: c.t, Recorder: rec}
}

func (c *APIClient) Get(path string, opts ...RequestOption) *APIResponse {
	return c.Do(http.MethodGet, path, nil, opts...)
}

func (c *APIClient) Post(path string, body any, opts ...RequestOption) *APIResponse {
	return c.Do(http.MethodPost, path, body, opts...)
}

func (c *APIClient) Delete(path string, opts ...RequestOption) *APIResponse {
	return c.Do(http.MethodDelete, path, nil, opts...)
}

// Status is the HTTP status code.
func (r *APIResponse) Status() int { return r.Recorder.Code }

// Envelope decodes the body as a dto.Response, leaving Data raw.
func (r *APIResponse) Envelope() (dto.Response, json.RawMessage) {
	r.t.Helper()

	var raw struct {
		dto.Response
		Data json.RawMessage `json:"data,omitempty"`
	}
	require.NoError(r.t, json.Unmarshal(r.Recorder.Body.Bytes(), &raw),
		"body is not a response envelope: %s", r.Recorder.Body.String())
	return raw.Response, raw.Data
}

// ErrorCode returns the envelope's error code, or "" on success.
func (r *APIResponse) ErrorCode() string {
	r.t.Helper()
	env, _ := r.Envelope()
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

// AssertStatus fails unless the request answered status.
func (r *APIResponse) AssertStatus(status int) *APIResponse {
	r.t.Helper()
	require.Equal(r.t, status, r.Status(), "body: %s", r.Recorder.Body.String())
	return r
}

// AssertSuccess fails unless the request answered status with success=true.
func (r *APIResponse) AssertSuccess(status int) *APIResponse {
	r.t.Helper()
	require.Equal(r.t, status, r.Status(), "body: %s", r.Recorder.Body.String())
	env, _ := r.Envelope()
	assert.True(r.t, env.Success)
	return r
}

// AssertError fails unless the request answered status with error code.
func (r *APIResponse) AssertError(status int, code string) *APIResponse {
	r.t.Helper()
	require.Equal(r.t, status, r.Status(), "body: %s", r.Recorder.Body.String())
	env, _ := r.Envelope()
	assert.False(r.t, env.Success)
	require.NotNil(r.t, env.Error)
	assert.Equal(r.t, code, env.Error.Code)
	return r
}

// DecodeData unmarshals the envelope's data field into T.
func DecodeData[T any](r *APIResponse) T {
	r.t.Helper()
	var out T
	_, data := r.Envelope()
	require.NotEmpty(r.t, data, "response has no data: %s", r.Recorder.Body.String())
	require.NoError(r.t, json.Unmarshal(data, &out))
	return out
}

// ToJSONReader marshals v for use as a request body.
func ToJSONReader(t testing.TB, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}
