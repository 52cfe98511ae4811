// Package ctx provides the request context handed to controllers.
//
// Instead of accepting (http.ResponseWriter, *http.Request), a handler
// receives a single *Context:
//
//	func (c *CartController) Show(x *ctx.Context) {
//	    cart, err := c.carts.GetCart(x.Context(), x.Subject())
//	    if err != nil {
//	        x.Fail(err)
//	        return
//	    }
//	    x.Success(cart)
//	}
//
//	router.Get("/cart", "cart.show", ctx.Wrap(cartController.Show))
package ctx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/bind"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/response"
	"github.com/shashiranjanraj/shopkart/pkg/validate"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps a request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	mu     sync.RWMutex
	store  map[string]any
	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{store: make(map[string]any)} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	for k := range c.store {
		delete(c.store, k)
	}
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter ("/orders/{id}" → c.Param("id")).
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// ObjectIDParam parses a path parameter as an ObjectID. On a malformed id it
// writes a 400 with a field error and returns false.
func (c *Context) ObjectIDParam(key string) (primitive.ObjectID, bool) {
	raw := c.Param(key)
	if !validate.ObjectID(raw) {
		c.Fail(apperr.InvalidField("params", key, "The "+key+" must be a 24 character hex id."))
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		c.Fail(apperr.InvalidField("params", key, "The "+key+" must be a 24 character hex id."))
		return primitive.NilObjectID, false
	}
	return id, true
}

func (c *Context) Query(key string) string {
	return strings.TrimSpace(c.R.URL.Query().Get(key))
}

// QueryInt returns a positive integer query value, or def.
func (c *Context) QueryInt(key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// Context returns the underlying request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// Log returns the request-scoped logger.
func (c *Context) Log() *slog.Logger { return logger.WithCtx(c.Context()) }

// Subject returns the authenticated subject id. Only meaningful behind the
// Authenticate middleware.
func (c *Context) Subject() primitive.ObjectID {
	id, _ := auth.SubjectFrom(c.Context())
	return id
}

// OptionalSubject returns the subject when the request carried a valid token.
func (c *Context) OptionalSubject() (primitive.ObjectID, bool) {
	return auth.SubjectFrom(c.Context())
}

// ─── Per-request store ────────────────────────────────────────────────────────

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	c.store[key] = val
	c.mu.Unlock()
}

func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

// ─── Binding ──────────────────────────────────────────────────────────────────

// BindJSON decodes and validates the JSON body. On failure it writes the
// 400 response and returns false.
//
//	var in AddItemInput
//	if !c.BindJSON(&in) {
//	    return
//	}
func (c *Context) BindJSON(dest any) bool {
	if err := bind.JSON(c.R, dest); err != nil {
		c.Fail(err)
		return false
	}
	return true
}

// ─── Response helpers ─────────────────────────────────────────────────────────

func (c *Context) JSON(code int, v response.Envelope) {
	c.status = code
	response.Write(c.W, code, v)
}

// Success sends a 200 envelope.
func (c *Context) Success(data any) {
	c.JSON(http.StatusOK, response.Envelope{Status: http.StatusOK, Data: data})
}

// SuccessMessage sends a 200 envelope with a message.
func (c *Context) SuccessMessage(message string, data any) {
	c.JSON(http.StatusOK, response.Envelope{Status: http.StatusOK, Message: message, Data: data})
}

// Created sends a 201 envelope.
func (c *Context) Created(data any) {
	c.JSON(http.StatusCreated, response.Envelope{Status: http.StatusCreated, Data: data})
}

// CreatedMessage sends a 201 envelope with a message.
func (c *Context) CreatedMessage(message string, data any) {
	c.JSON(http.StatusCreated, response.Envelope{Status: http.StatusCreated, Message: message, Data: data})
}

// Error sends an error envelope.
func (c *Context) Error(code int, message string) {
	c.JSON(code, response.Envelope{Status: code, Message: message})
}

// Fail maps err to its response. Internal errors are logged with the
// request id; their cause never reaches the client.
func (c *Context) Fail(err error) {
	if apperr.KindOf(err) == apperr.Internal {
		c.Log().Error("request failed", "error", err, "method", c.R.Method, "path", c.R.URL.Path)
	}
	c.status = apperr.HTTPStatus(apperr.KindOf(err))
	response.Fail(c.W, err)
}

// WrittenStatus returns the status written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }
