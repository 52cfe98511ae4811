package sse_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopkart/pkg/sse"
)

// wrapped hides Flush unless Unwrap is followed.
type wrapped struct{ http.ResponseWriter }

func (w wrapped) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func TestStreamFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)

	s, err := sse.New(wrapped{rec}, req)
	require.NoError(t, err)
	require.NoError(t, s.Comment("connected"))
	require.NoError(t, s.Send("order.placed", "abc", map[string]string{"status": "Pending"}))
	require.NoError(t, s.Send("tick", "", 1))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, rec.Flushed)
	assert.Equal(t,
		": connected\n\n"+
			"id: abc\nevent: order.placed\ndata: {\"status\":\"Pending\"}\n\n"+
			"event: tick\ndata: 1\n\n",
		rec.Body.String())
}

type noFlush struct{ header http.Header }

func (n *noFlush) Header() http.Header         { return n.header }
func (n *noFlush) Write(b []byte) (int, error) { return len(b), nil }
func (n *noFlush) WriteHeader(int)             {}

func TestStreamRequiresFlusher(t *testing.T) {
	_, err := sse.New(&noFlush{header: http.Header{}}, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, http.ErrNotSupported)
}
