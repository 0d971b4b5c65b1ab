package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// PasswordHasher хэширует и сверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}

// Dependencies: хранилища и настройки сервиса учётных записей.
type Dependencies struct {
	Users        domain.UserRepository
	Addresses    domain.AddressRepository
	Wishlists    domain.WishlistRepository
	Products     domain.ProductRepository
	Hasher       PasswordHasher
	AdminDomains []string
	Logger       *log.Entry
	Now          func() time.Time
}

// Service управляет пользователями, адресами и избранным.
type Service struct {
	users        domain.UserRepository
	addresses    domain.AddressRepository
	wishlists    domain.WishlistRepository
	products     domain.ProductRepository
	hasher       PasswordHasher
	adminDomains []string
	logger       *log.Entry
	now          func() time.Time
}

// NewService создаёт сервис учётных записей.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "account-service")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		users:        deps.Users,
		addresses:    deps.Addresses,
		wishlists:    deps.Wishlists,
		products:     deps.Products,
		hasher:       deps.Hasher,
		adminDomains: deps.AdminDomains,
		logger:       logger,
		now:          now,
	}
}

// RegisterInput: данные регистрации.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register создаёт пользователя. Администратором становится владелец email из adminDomains.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return domain.User{}, domain.NewValidationError("all fields are required")
	}
	if err := domain.ValidateEmail(email); err != nil {
		return domain.User{}, err
	}
	if len(in.Password) < domain.MinPasswordLength {
		return domain.User{}, domain.NewValidationError("password must be at least %d characters", domain.MinPasswordLength)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      domain.IsAdminEmail(email, s.adminDomains),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}

	s.logger.WithFields(log.Fields{"user_id": user.ID, "is_admin": user.IsAdmin}).Info("user registered")
	return user, nil
}

// Authenticate проверяет пару email/пароль.
func (s *Service) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, domain.NewValidationError("all fields are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("stored password hash is unreadable")
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if !ok {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Profile возвращает пользователя по идентификатору.
func (s *Service) Profile(ctx context.Context, userID string) (domain.User, error) {
	return s.users.Get(ctx, userID)
}

// ProfileUpdate: частичное обновление профиля; nil или пустое значение не меняет поле.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Password *string
}

// UpdateProfile применяет частичное обновление. Роль пользователя не меняется.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (domain.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	if v := trimmed(upd.Username); v != "" {
		user.Username = v
	}
	if v := trimmed(upd.Email); v != "" {
		if err := domain.ValidateEmail(v); err != nil {
			return domain.User{}, err
		}
		user.Email = v
	}
	if upd.Password != nil && *upd.Password != "" {
		if len(*upd.Password) < domain.MinPasswordLength {
			return domain.User{}, domain.NewValidationError("password must be at least %d characters", domain.MinPasswordLength)
		}
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return domain.User{}, err
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// DeleteUser удаляет пользователя.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("user_id", id).Info("user deleted")
	return nil
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
