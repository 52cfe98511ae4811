package testkit

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Envelope mirrors response.Envelope with the payload left undecoded.
type Envelope struct {
	Status  int                 `json:"status"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

type Response struct {
	t      *testing.T
	Code   int
	Header http.Header
	Body   []byte
}

// Envelope decodes the body; the test fails if it is not an envelope.
func (r *Response) Envelope() Envelope {
	r.t.Helper()
	var env Envelope
	require.NoError(r.t, json.Unmarshal(r.Body, &env), "testkit: body is not an envelope: %s", r.Body)
	return env
}

// AssertStatus checks both the HTTP status and the envelope's status field.
func (r *Response) AssertStatus(code int) *Response {
	r.t.Helper()
	if !assert.Equal(r.t, code, r.Code, "unexpected status; body: %s", r.Body) {
		return r
	}
	assert.Equal(r.t, code, r.Envelope().Status, "envelope status")
	return r
}

func (r *Response) Message() string {
	r.t.Helper()
	return r.Envelope().Message
}

// FieldErrors returns the per-field validation messages.
func (r *Response) FieldErrors() map[string][]string {
	r.t.Helper()
	return r.Envelope().Errors
}

// Decode unmarshals the envelope's data into dest.
func (r *Response) Decode(dest any) {
	r.t.Helper()
	data := r.Envelope().Data
	require.NotEmpty(r.t, data, "testkit: envelope has no data: %s", r.Body)
	require.NoError(r.t, json.Unmarshal(data, dest), "testkit: decode data")
}

// AssertJSONData compares the envelope's data with expected JSON, ignoring
// key order and whitespace.
func (r *Response) AssertJSONData(expected string) {
	r.t.Helper()
	var want, got any
	require.NoError(r.t, json.Unmarshal([]byte(expected), &want), "testkit: expected is not JSON")
	require.NoError(r.t, json.Unmarshal(r.Envelope().Data, &got))
	assert.Equal(r.t, want, got)
}
