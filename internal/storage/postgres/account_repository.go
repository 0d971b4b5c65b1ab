package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const userColumns = `id, username, email, password_hash, is_admin, created_at, updated_at`

type userRepository struct {
	store *Store
}

// NewUserRepository создаёт PostgreSQL-реализацию UserRepository.
func NewUserRepository(store *Store) domain.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) Create(ctx context.Context, u domain.User) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id string) (domain.User, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (r *userRepository) getBy(ctx context.Context, cond string, arg string) (domain.User, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var u domain.User
	err := r.store.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	rows, err := r.store.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	result := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return result, nil
}

func (r *userRepository) Update(ctx context.Context, u domain.User) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, is_admin = $5, updated_at = $6
		WHERE id = $1
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return affectedOrNotFound(res, domain.ErrUserNotFound)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return affectedOrNotFound(res, domain.ErrUserNotFound)
}

const addressColumns = `id, user_id, full_name, phone_number, street_address, city, country, postal_code, created_at, updated_at`

type addressRepository struct {
	store *Store
}

// NewAddressRepository создаёт PostgreSQL-реализацию AddressRepository.
func NewAddressRepository(store *Store) domain.AddressRepository {
	return &addressRepository{store: store}
}

func (r *addressRepository) Create(ctx context.Context, a domain.Address) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	if _, err := r.store.db.ExecContext(ctx, `
		INSERT INTO addresses (`+addressColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, a.ID, a.UserID, a.FullName, a.PhoneNumber, a.StreetAddress, a.City, a.Country, a.PostalCode, a.CreatedAt, a.UpdatedAt); err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func (r *addressRepository) Get(ctx context.Context, id string) (domain.Address, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	a, err := scanAddress(r.store.db.QueryRowContext(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Address{}, domain.ErrAddressNotFound
		}
		return domain.Address{}, fmt.Errorf("select address: %w", err)
	}
	return a, nil
}

func (r *addressRepository) ListByUser(ctx context.Context, userID string) ([]domain.Address, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate addresses: %w", err)
	}
	return result, nil
}

func (r *addressRepository) Update(ctx context.Context, a domain.Address) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `
		UPDATE addresses
		SET full_name = $2, phone_number = $3, street_address = $4, city = $5,
		    country = $6, postal_code = $7, updated_at = $8
		WHERE id = $1
	`, a.ID, a.FullName, a.PhoneNumber, a.StreetAddress, a.City, a.Country, a.PostalCode, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	return affectedOrNotFound(res, domain.ErrAddressNotFound)
}

func (r *addressRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	return affectedOrNotFound(res, domain.ErrAddressNotFound)
}

func scanAddress(row rowScanner) (domain.Address, error) {
	var a domain.Address
	err := row.Scan(&a.ID, &a.UserID, &a.FullName, &a.PhoneNumber, &a.StreetAddress, &a.City, &a.Country, &a.PostalCode, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

type wishlistRepository struct {
	store *Store
}

// NewWishlistRepository создаёт PostgreSQL-реализацию WishlistRepository.
func NewWishlistRepository(store *Store) domain.WishlistRepository {
	return &wishlistRepository{store: store}
}

func (r *wishlistRepository) Get(ctx context.Context, userID string) (domain.Wishlist, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var w domain.Wishlist
	arrays := newArrayScanner()
	err := r.store.db.QueryRowContext(ctx, `
		SELECT user_id, product_ids, created_at, updated_at FROM wishlists WHERE user_id = $1
	`, userID).Scan(&w.UserID, arrays.text(&w.ProductIDs), &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Wishlist{}, domain.ErrWishlistNotFound
		}
		return domain.Wishlist{}, fmt.Errorf("select wishlist: %w", err)
	}
	return w, nil
}

// Save делает upsert списка избранного пользователя.
func (r *wishlistRepository) Save(ctx context.Context, w domain.Wishlist) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	if _, err := r.store.db.ExecContext(ctx, `
		INSERT INTO wishlists (user_id, product_ids, created_at, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id) DO UPDATE
		SET product_ids = EXCLUDED.product_ids, updated_at = EXCLUDED.updated_at
	`, w.UserID, nonNil(w.ProductIDs), w.CreatedAt, w.UpdatedAt); err != nil {
		return fmt.Errorf("upsert wishlist: %w", err)
	}
	return nil
}

var (
	_ domain.UserRepository     = (*userRepository)(nil)
	_ domain.AddressRepository  = (*addressRepository)(nil)
	_ domain.WishlistRepository = (*wishlistRepository)(nil)
)
