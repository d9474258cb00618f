package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost стандартная сложность bcrypt
	DefaultBcryptCost = 12
	// MinLinkPasswordLength минимальная длина пароля ссылки
	MinLinkPasswordLength = 4
)

var ErrInvalidPassword = errors.New("invalid password")

// PasswordService хеширует и проверяет пароли ссылок
type PasswordService struct {
	cost int
}

// NewPasswordService создает новый сервис для работы с паролями
func NewPasswordService() *PasswordService {
	return NewPasswordServiceWithCost(DefaultBcryptCost)
}

// NewPasswordServiceWithCost создает новый сервис с заданной сложностью
func NewPasswordServiceWithCost(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordService{
		cost: cost,
	}
}

// Hash хеширует пароль с использованием bcrypt
func (s *PasswordService) Hash(password string) (string, error) {
	if len(password) == 0 {
		return "", ErrInvalidPassword
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// Verify проверяет соответствие пароля и хеша
func (s *PasswordService) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// IsValidLinkPassword проверяет пароль ссылки по базовым критериям
func IsValidLinkPassword(password string) error {
	if len(password) < MinLinkPasswordLength {
		return errors.New("password must be at least 4 characters long")
	}

	if len(password) > 72 {
		return errors.New("password must be no more than 72 characters long")
	}

	return nil
}
