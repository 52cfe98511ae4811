// Package rbac gates routes on the caller's role. The caller must already be
// authenticated; roles are read from the user store, never from the token.
package rbac

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/response"
)

// CheckFunc decides whether subject may proceed. A non-nil error is rendered
// through response.Fail, so apperr kinds pick the status code.
type CheckFunc func(ctx context.Context, subject primitive.ObjectID) error

// SellerChecker is satisfied by the identity service.
type SellerChecker interface {
	CheckSeller(ctx context.Context, subject primitive.ObjectID) error
}

// Seller admits only subjects flagged as sellers (403), and rejects subjects
// whose account no longer exists (404).
func Seller(c SellerChecker) func(http.Handler) http.Handler {
	return Require(c.CheckSeller)
}

// Require runs check against the authenticated subject before next.
func Require(check CheckFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := auth.SubjectFrom(r.Context())
			if !ok {
				response.Unauthorized(w, "Unauthorized")
				return
			}
			if err := check(r.Context(), subject); err != nil {
				response.Fail(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
