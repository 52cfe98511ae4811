package ctx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	appctx "github.com/shashiranjanraj/shopkart/pkg/ctx"
)

type envelope struct {
	Status  int                 `json:"status"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	appctx.Wrap(func(c *appctx.Context) {
		c.Success(map[string]any{"id": 1})
	})(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, 200, env.Status)
	assert.JSONEq(t, `{"id":1}`, string(env.Data))
}

func TestFailMapsKinds(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{apperr.Missing("cart", "line item"), http.StatusNotFound, "line item not found"},
		{apperr.Denied("gate", "seller role required"), http.StatusForbidden, "seller role required"},
		{apperr.Transition("order", "cannot move Delivered to Pending"), http.StatusBadRequest, "cannot move Delivered to Pending"},
		{errors.New("mongo: connection reset"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		var written int
		appctx.Wrap(func(c *appctx.Context) {
			c.Fail(tc.err)
			written = c.WrittenStatus()
		})(rec, req)

		assert.Equal(t, tc.code, rec.Code)
		assert.Equal(t, tc.code, written)
		assert.Equal(t, tc.msg, decode(t, rec).Message)
	}
}

func TestBindJSONWritesValidationErrors(t *testing.T) {
	type in struct {
		Quantity int    `json:"quantity"   validate:"required,gte=1"`
		Product  string `json:"product_id" validate:"required,objectid"`
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":0,"product_id":"abc"}`))
	called := false
	appctx.Wrap(func(c *appctx.Context) {
		var body in
		if !c.BindJSON(&body) {
			return
		}
		called = true
	})(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Contains(t, env.Errors, "quantity")
	assert.Contains(t, env.Errors, "product_id")
}

func TestObjectIDParam(t *testing.T) {
	id := primitive.NewObjectID()
	r := chi.NewRouter()
	var got primitive.ObjectID
	r.Get("/orders/{id}", appctx.Wrap(func(c *appctx.Context) {
		v, ok := c.ObjectIDParam("id")
		if !ok {
			return
		}
		got = v
		c.Success(nil)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+id.Hex(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, got)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/not-an-id", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Errors, "id")
}

func TestSubjectFromContext(t *testing.T) {
	id := primitive.NewObjectID()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithSubject(req.Context(), id))

	appctx.Wrap(func(c *appctx.Context) {
		assert.Equal(t, id, c.Subject())
		sub, ok := c.OptionalSubject()
		assert.True(t, ok)
		assert.Equal(t, id, sub)
	})(httptest.NewRecorder(), req)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&size=-1", nil)
	appctx.Wrap(func(c *appctx.Context) {
		assert.Equal(t, 3, c.QueryInt("page", 1))
		assert.Equal(t, 10, c.QueryInt("size", 10))
		assert.Equal(t, 10, c.QueryInt("missing", 10))
	})(httptest.NewRecorder(), req)
}
