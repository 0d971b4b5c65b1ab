package domain

import (
	"net/mail"
	"strings"
	"time"
)

// MinPasswordLength — минимальная длина пароля.
const MinPasswordLength = 6

// User — учётная запись покупателя или администратора.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FirstName — первое слово имени пользователя.
func (u *User) FirstName() string {
	parts := strings.Fields(u.Username)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// LastName — остаток имени после первого слова.
func (u *User) LastName() string {
	parts := strings.Fields(u.Username)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}

// Identity — то, что Identity Provider сообщает о вызывающем.
type Identity struct {
	UserID  string
	IsAdmin bool
}

// CanActFor разрешает действие над ресурсом пользователя ownerID.
func (i Identity) CanActFor(ownerID string) bool {
	return i.IsAdmin || i.UserID == ownerID
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, " <>") {
		return NewValidationError("please use a valid email address")
	}
	return nil
}

// EmailDomain возвращает домен email в нижнем регистре.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// IsAdminEmail сообщает, входит ли домен email в список административных доменов.
func IsAdminEmail(email string, adminDomains []string) bool {
	domain := EmailDomain(email)
	if domain == "" {
		return false
	}
	for _, d := range adminDomains {
		if strings.EqualFold(strings.TrimSpace(d), domain) {
			return true
		}
	}
	return false
}

// Address — адрес доставки пользователя.
type Address struct {
	ID            string
	UserID        string
	FullName      string
	PhoneNumber   string
	StreetAddress string
	City          string
	Country       string
	PostalCode    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate требует заполнения всех полей адреса.
func (a *Address) Validate() error {
	for _, v := range []string{a.FullName, a.PhoneNumber, a.StreetAddress, a.City, a.Country, a.PostalCode} {
		if strings.TrimSpace(v) == "" {
			return NewValidationError("all fields are required")
		}
	}
	return nil
}

// Wishlist — избранные товары пользователя (множество).
type Wishlist struct {
	UserID     string
	ProductIDs []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Has проверяет наличие товара в избранном.
func (w *Wishlist) Has(productID string) bool {
	for _, id := range w.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// Add добавляет товар, если его ещё нет.
func (w *Wishlist) Add(productID string) bool {
	if w.Has(productID) {
		return false
	}
	w.ProductIDs = append(w.ProductIDs, productID)
	return true
}

// Remove удаляет товар и сообщает, был ли он в списке.
func (w *Wishlist) Remove(productID string) bool {
	for i, id := range w.ProductIDs {
		if id == productID {
			w.ProductIDs = append(w.ProductIDs[:i], w.ProductIDs[i+1:]...)
			return true
		}
	}
	return false
}
