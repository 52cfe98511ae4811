// Package controllers adapts HTTP requests to service calls: decode and
// validate the input, call one service method, shape the JSON response.
package controllers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/ctx"
)

type Accounts interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, in services.LoginInput) (services.AccessToken, error)
	Profile(ctx context.Context, subject primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, subject primitive.ObjectID, in services.ProfileInput) (*models.User, error)
}

type AuthController struct {
	accounts Accounts
}

func NewAuthController(accounts Accounts) *AuthController {
	return &AuthController{accounts: accounts}
}

// Register POST /api/auth/register
func (c *AuthController) Register(x *ctx.Context) {
	var in services.RegisterInput
	if !x.BindJSON(&in) {
		return
	}
	u, err := c.accounts.Register(x.Context(), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.CreatedMessage("User registered successfully", u)
}

// Login POST /api/auth/login
func (c *AuthController) Login(x *ctx.Context) {
	var in services.LoginInput
	if !x.BindJSON(&in) {
		return
	}
	tok, err := c.accounts.Login(x.Context(), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.SuccessMessage("Login successful", tok)
}

// Profile GET /api/user
func (c *AuthController) Profile(x *ctx.Context) {
	u, err := c.accounts.Profile(x.Context(), x.Subject())
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(u)
}

// UpdateProfile PATCH /api/user
func (c *AuthController) UpdateProfile(x *ctx.Context) {
	var in services.ProfileInput
	if !x.BindJSON(&in) {
		return
	}
	u, err := c.accounts.UpdateProfile(x.Context(), x.Subject(), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.SuccessMessage("Profile updated", u)
}
