package account

import (
	"context"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// AddressInput: поля адреса доставки; все обязательны.
type AddressInput struct {
	FullName      string
	PhoneNumber   string
	StreetAddress string
	City          string
	Country       string
	PostalCode    string
}

func (in AddressInput) apply(a *domain.Address) {
	a.FullName = in.FullName
	a.PhoneNumber = in.PhoneNumber
	a.StreetAddress = in.StreetAddress
	a.City = in.City
	a.Country = in.Country
	a.PostalCode = in.PostalCode
}

// ListAddresses возвращает адреса пользователя.
func (s *Service) ListAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	return s.addresses.ListByUser(ctx, userID)
}

// AddAddress создаёт адрес пользователя.
func (s *Service) AddAddress(ctx context.Context, userID string, in AddressInput) (domain.Address, error) {
	now := s.now().UTC()
	address := domain.Address{ID: uuid.NewString(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	in.apply(&address)
	if err := address.Validate(); err != nil {
		return domain.Address{}, err
	}
	if err := s.addresses.Create(ctx, address); err != nil {
		return domain.Address{}, err
	}
	return address, nil
}

// UpdateAddress заменяет поля адреса. Чужой адрес считается отсутствующим.
func (s *Service) UpdateAddress(ctx context.Context, userID, addressID string, in AddressInput) (domain.Address, error) {
	probe := domain.Address{}
	in.apply(&probe)
	if err := probe.Validate(); err != nil {
		return domain.Address{}, err
	}

	address, err := s.ownedAddress(ctx, userID, addressID)
	if err != nil {
		return domain.Address{}, err
	}
	in.apply(&address)
	address.UpdatedAt = s.now().UTC()
	if err := s.addresses.Update(ctx, address); err != nil {
		return domain.Address{}, err
	}
	return address, nil
}

// DeleteAddress удаляет адрес пользователя.
func (s *Service) DeleteAddress(ctx context.Context, userID, addressID string) error {
	if _, err := s.ownedAddress(ctx, userID, addressID); err != nil {
		return err
	}
	return s.addresses.Delete(ctx, addressID)
}

func (s *Service) ownedAddress(ctx context.Context, userID, addressID string) (domain.Address, error) {
	address, err := s.addresses.Get(ctx, addressID)
	if err != nil {
		return domain.Address{}, err
	}
	if address.UserID != userID {
		return domain.Address{}, domain.ErrAddressNotFound
	}
	return address, nil
}
