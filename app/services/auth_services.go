package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

type RegisterInput struct {
	Name     string `json:"name"     validate:"required,min=3,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=3,max=72"`
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	Name    *string         `json:"name"    validate:"nullable,min=3,max=100"`
	Address *models.Address `json:"address" validate:"nullable,dive"`
}

// AccountService covers registration, login and the caller's own profile.
type AccountService struct {
	users    UserStore
	identity *IdentityService
	now      func() time.Time
}

func NewAccountService(users UserStore, identity *IdentityService) *AccountService {
	return &AccountService{users: users, identity: identity, now: time.Now}
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "account.register"

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	now := s.now()
	u := &models.User{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Password:  hash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("user registered", "op", op, "user_id", u.ID.Hex())
	return u, nil
}

// Login checks the credentials and issues an access token. Unknown email and
// wrong password are reported the same way.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (AccessToken, error) {
	const op = "account.login"

	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return AccessToken{}, apperr.Unauthorized(op, "invalid email or password")
		}
		return AccessToken{}, err
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		return AccessToken{}, apperr.Unauthorized(op, "invalid email or password")
	}
	return s.identity.Issue(u)
}

func (s *AccountService) Profile(ctx context.Context, subject primitive.ObjectID) (*models.User, error) {
	return s.users.FindByID(ctx, subject)
}

// UpdateProfile changes the name and/or the saved shipping address.
func (s *AccountService) UpdateProfile(ctx context.Context, subject primitive.ObjectID, in ProfileInput) (*models.User, error) {
	if in.Name == nil && in.Address == nil {
		return nil, apperr.InvalidField("account.update_profile", "name", "Provide a name or an address to update.")
	}
	name := ""
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
	}
	return s.users.UpdateProfile(ctx, subject, name, in.Address)
}

// PromoteSeller grants (or revokes) the seller flag.
func (s *AccountService) PromoteSeller(ctx context.Context, email string, seller bool) (*models.User, error) {
	u, err := s.users.SetSeller(ctx, strings.ToLower(strings.TrimSpace(email)), seller)
	if err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("seller flag changed", "user_id", u.ID.Hex(), "is_seller", seller)
	return u, nil
}
