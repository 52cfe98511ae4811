package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
)

// TokenIssuer signs and verifies access tokens.
type TokenIssuer interface {
	Issue(subject primitive.ObjectID) (string, time.Time, error)
	Verify(token string) (primitive.ObjectID, error)
}

// IdentityService turns bearer credentials into subject ids and answers
// role questions from the user store. Tokens carry no role.
type IdentityService struct {
	users  UserStore
	tokens TokenIssuer
}

func NewIdentityService(users UserStore, tokens TokenIssuer) *IdentityService {
	return &IdentityService{users: users, tokens: tokens}
}

// Authenticate verifies an Authorization header value of the form
// "Bearer <jwt>".
func (s *IdentityService) Authenticate(credential string) (primitive.ObjectID, error) {
	const op = "identity.authenticate"

	token, err := auth.ParseBearer(credential)
	if err != nil {
		if errors.Is(err, auth.ErrMissingCredential) {
			return primitive.NilObjectID, apperr.Unauthorized(op, "Authorization token required")
		}
		return primitive.NilObjectID, apperr.Unauthorized(op, "Invalid authorization header")
	}
	subject, err := s.tokens.Verify(token)
	if err != nil {
		return primitive.NilObjectID, apperr.Unauthorized(op, "Invalid or expired token")
	}
	return subject, nil
}

// AuthenticateOptional never fails; a missing or bad credential means no subject.
func (s *IdentityService) AuthenticateOptional(credential string) (primitive.ObjectID, bool) {
	subject, err := s.Authenticate(credential)
	return subject, err == nil
}

// AuthorizeSeller loads the subject and requires the seller flag.
func (s *IdentityService) AuthorizeSeller(ctx context.Context, subject primitive.ObjectID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	if !u.IsSeller {
		return nil, apperr.Denied("identity.authorize_seller", "Seller access required")
	}
	return u, nil
}

// CheckSeller is AuthorizeSeller for middleware that only needs the verdict.
func (s *IdentityService) CheckSeller(ctx context.Context, subject primitive.ObjectID) error {
	_, err := s.AuthorizeSeller(ctx, subject)
	return err
}

// IsSeller reports the subject's role. A vanished subject is NotFound.
func (s *IdentityService) IsSeller(ctx context.Context, subject primitive.ObjectID) (bool, error) {
	u, err := s.users.FindByID(ctx, subject)
	if err != nil {
		return false, err
	}
	return u.IsSeller, nil
}

// AccessToken is returned by login.
type AccessToken struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *IdentityService) Issue(u *models.User) (AccessToken, error) {
	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return AccessToken{}, apperr.Wrap("identity.issue", err)
	}
	return AccessToken{Token: token, TokenType: "Bearer", ExpiresAt: exp}, nil
}
