package services_test

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
)

func newAccounts() (*services.AccountService, *services.IdentityService, *fakeUsers) {
	users := newFakeUsers()
	gate, _ := newIdentity(users)
	return services.NewAccountService(users, gate), gate, users
}

func TestRegisterThenLogin(t *testing.T) {
	accounts, gate, _ := newAccounts()
	ctx := context.Background()
	email := gofakeit.Email()

	u, err := accounts.Register(ctx, services.RegisterInput{Name: gofakeit.Name(), Email: "  " + email, Password: "hunter2"})
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", u.Password)
	assert.False(t, u.IsSeller)

	tok, err := accounts.Login(ctx, services.LoginInput{Email: email, Password: "hunter2"})
	require.NoError(t, err)

	subject, err := gate.Authenticate("Bearer " + tok.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, subject)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	accounts, _, _ := newAccounts()
	ctx := context.Background()
	in := services.RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "pw1"}

	_, err := accounts.Register(ctx, in)
	require.NoError(t, err)

	in.Email = "ASHA@example.com"
	_, err = accounts.Register(ctx, in)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	accounts, _, users := newAccounts()
	u := users.add("Omar", false, nil)
	ctx := context.Background()

	_, wrongPassword := accounts.Login(ctx, services.LoginInput{Email: u.Email, Password: "nope"})
	_, unknownEmail := accounts.Login(ctx, services.LoginInput{Email: "ghost@example.com", Password: "secret"})

	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(wrongPassword))
	assert.Equal(t, apperr.PublicMessage(wrongPassword), apperr.PublicMessage(unknownEmail))
}

func TestUpdateProfile(t *testing.T) {
	accounts, _, users := newAccounts()
	u := users.add("Lena", false, nil)
	ctx := context.Background()

	_, err := accounts.UpdateProfile(ctx, u.ID, services.ProfileInput{})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	addr := &models.Address{Name: "Lena", Phone: "5550100", Street: "1 Main St", City: "Pune", State: "MH", PostalCode: "411001", Country: "India"}
	got, err := accounts.UpdateProfile(ctx, u.ID, services.ProfileInput{Name: lo.ToPtr(" Lena K "), Address: addr})
	require.NoError(t, err)
	assert.Equal(t, "Lena K", got.Name)
	assert.Equal(t, "Pune", got.Address.City)
}

func TestPromoteSeller(t *testing.T) {
	accounts, gate, users := newAccounts()
	u := users.add("Kai", false, nil)
	ctx := context.Background()

	_, err := accounts.PromoteSeller(ctx, u.Email, true)
	require.NoError(t, err)

	_, err = gate.AuthorizeSeller(ctx, u.ID)
	assert.NoError(t, err)

	_, err = accounts.PromoteSeller(ctx, "nobody@example.com", true)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
