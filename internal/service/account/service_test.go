package account

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type fixture struct {
	svc      *Service
	products domain.ProductRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	products := memory.NewProductRepository()
	svc := NewService(Dependencies{
		Users:        memory.NewUserRepository(),
		Addresses:    memory.NewAddressRepository(),
		Wishlists:    memory.NewWishlistRepository(),
		Products:     products,
		Hasher:       auth.NewPasswordHasher(4),
		AdminDomains: []string{"admin.storefront.test"},
	})
	return fixture{svc: svc, products: products}
}

func (f fixture) register(t *testing.T, email string) domain.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterInput{Username: "Abebe Kebede", Email: email, Password: "secret1"})
	require.NoError(t, err)
	return user
}

func TestRegister_ValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{name: "missing username", in: RegisterInput{Email: "a@b.test", Password: "secret1"}},
		{name: "missing password", in: RegisterInput{Username: "a", Email: "a@b.test"}},
		{name: "bad email", in: RegisterInput{Username: "a", Email: "not-an-email", Password: "secret1"}},
		{name: "short password", in: RegisterInput{Username: "a", Email: "a@b.test", Password: "123"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tc.in)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRegister_AssignsRoleAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	buyer := f.register(t, "buyer@mail.test")
	assert.False(t, buyer.IsAdmin)
	assert.NotEqual(t, "secret1", buyer.PasswordHash)

	admin := f.register(t, "boss@admin.storefront.test")
	assert.True(t, admin.IsAdmin)

	_, err := f.svc.Register(ctx, RegisterInput{Username: "x", Email: "buyer@mail.test", Password: "secret2"})
	require.ErrorIs(t, err, domain.ErrUserExists)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "buyer@mail.test")

	got, err := f.svc.Authenticate(ctx, "buyer@mail.test", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.svc.Authenticate(ctx, "buyer@mail.test", "wrong-pass")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.svc.Authenticate(ctx, "nobody@mail.test", "secret1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateProfile_PartialUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "buyer@mail.test")

	name := "Almaz Tadesse"
	updated, err := f.svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Username)
	assert.Equal(t, "buyer@mail.test", updated.Email)
	assert.Equal(t, user.PasswordHash, updated.PasswordHash)

	password := "brand-new"
	_, err = f.svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Password: &password})
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, "buyer@mail.test", "brand-new")
	require.NoError(t, err)

	short := "123"
	_, err = f.svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Password: &short})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.UpdateProfile(ctx, "missing", ProfileUpdate{Username: &name})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestListAndDeleteUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.register(t, "one@mail.test")
	f.register(t, "two@mail.test")

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	require.NoError(t, f.svc.DeleteUser(ctx, first.ID))
	require.ErrorIs(t, f.svc.DeleteUser(ctx, first.ID), domain.ErrNotFound)
}

func TestAddresses_OwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@mail.test")
	stranger := f.register(t, "stranger@mail.test")

	input := AddressInput{
		FullName:      "Abebe Kebede",
		PhoneNumber:   "+251900000000",
		StreetAddress: "Bole road 1",
		City:          "Addis Ababa",
		Country:       "Ethiopia",
		PostalCode:    "1000",
	}

	_, err := f.svc.AddAddress(ctx, owner.ID, AddressInput{FullName: "only name"})
	require.ErrorIs(t, err, domain.ErrValidation)

	address, err := f.svc.AddAddress(ctx, owner.ID, input)
	require.NoError(t, err)
	require.NotEmpty(t, address.ID)

	input.City = "Adama"
	_, err = f.svc.UpdateAddress(ctx, stranger.ID, address.ID, input)
	require.ErrorIs(t, err, domain.ErrAddressNotFound)

	updated, err := f.svc.UpdateAddress(ctx, owner.ID, address.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Adama", updated.City)

	list, err := f.svc.ListAddresses(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.ErrorIs(t, f.svc.DeleteAddress(ctx, stranger.ID, address.ID), domain.ErrAddressNotFound)
	require.NoError(t, f.svc.DeleteAddress(ctx, owner.ID, address.ID))

	list, err = f.svc.ListAddresses(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWishlist_Flow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "buyer@mail.test")

	now := time.Now().UTC()
	require.NoError(t, f.products.Create(ctx, domain.Product{
		ID: "sofa", Name: "Sofa", Price: decimal.NewFromInt(100), Stock: 1, CreatedAt: now, UpdatedAt: now,
	}))

	_, err := f.svc.Wishlist(ctx, user.ID)
	require.ErrorIs(t, err, domain.ErrWishlistNotFound)
	require.ErrorIs(t, f.svc.RemoveFromWishlist(ctx, user.ID, "sofa"), domain.ErrWishlistNotFound)

	_, err = f.svc.AddToWishlist(ctx, user.ID, "ghost")
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	view, err := f.svc.AddToWishlist(ctx, user.ID, "sofa")
	require.NoError(t, err)
	require.Len(t, view.Products, 1)

	view, err = f.svc.AddToWishlist(ctx, user.ID, "sofa")
	require.NoError(t, err)
	assert.Equal(t, []string{"sofa"}, view.Wishlist.ProductIDs)

	require.NoError(t, f.products.Delete(ctx, "sofa"))
	view, err = f.svc.Wishlist(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Products)
	assert.Len(t, view.Wishlist.ProductIDs, 1)

	require.NoError(t, f.svc.RemoveFromWishlist(ctx, user.ID, "sofa"))
	require.ErrorIs(t, f.svc.RemoveFromWishlist(ctx, user.ID, "sofa"), domain.ErrWishlistItemNotFound)
}
