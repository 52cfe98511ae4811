// Package testkit drives an http.Handler the way an API client would and
// decodes the response envelope for assertions.
//
//	api := testkit.New(t, handler)
//	res := api.As(token).Post("/api/cart/items", map[string]any{"productId": id})
//	res.AssertStatus(http.StatusCreated)
//	var cart models.Cart
//	res.Decode(&cart)
package testkit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// Client sends requests straight into a handler; no network is involved.
type Client struct {
	t       *testing.T
	handler http.Handler
	token   string
	headers http.Header
}

func New(t *testing.T, handler http.Handler) *Client {
	return &Client{t: t, handler: handler, headers: http.Header{}}
}

// As returns a copy that sends "Authorization: Bearer <token>".
func (c *Client) As(token string) *Client {
	cp := *c
	cp.token = token
	cp.headers = c.headers.Clone()
	return &cp
}

// WithHeader returns a copy that sends an extra header on every request.
func (c *Client) WithHeader(key, value string) *Client {
	cp := *c
	cp.headers = c.headers.Clone()
	cp.headers.Set(key, value)
	return &cp
}

func (c *Client) Get(path string) *Response             { return c.Do(http.MethodGet, path, nil) }
func (c *Client) Post(path string, body any) *Response  { return c.Do(http.MethodPost, path, body) }
func (c *Client) Patch(path string, body any) *Response { return c.Do(http.MethodPatch, path, body) }
func (c *Client) Delete(path string) *Response          { return c.Do(http.MethodDelete, path, nil) }

// Do sends one request. A []byte or string body is sent verbatim; anything
// else non-nil is JSON encoded.
func (c *Client) Do(method, path string, body any) *Response {
	c.t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rdr = bytes.NewReader(b)
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err, "testkit: encode %s %s body", method, path)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.Send(req)
}

// Send serves a prepared request, e.g. a multipart upload.
func (c *Client) Send(req *http.Request) *Response {
	c.t.Helper()
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return &Response{t: c.t, Code: rec.Code, Header: rec.Header(), Body: rec.Body.Bytes()}
}
