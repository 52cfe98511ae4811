package middleware

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/response"
)

// Authenticator resolves an Authorization header value to a subject id.
type Authenticator interface {
	Authenticate(credential string) (primitive.ObjectID, error)
	AuthenticateOptional(credential string) (primitive.ObjectID, bool)
}

// Authenticate rejects requests without a valid bearer token (401) and stores
// the subject in the request context.
func Authenticate(gate Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := gate.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				response.Fail(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSubject(r.Context(), subject)))
		})
	}
}

// OptionalAuth attaches the subject when the token is valid and otherwise lets
// the request through anonymously.
func OptionalAuth(gate Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subject, ok := gate.AuthenticateOptional(r.Header.Get("Authorization")); ok {
				r = r.WithContext(auth.WithSubject(r.Context(), subject))
			}
			next.ServeHTTP(w, r)
		})
	}
}
