package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// JWTConfig параметры проверки токенов
type JWTConfig struct {
	SecretKey           []byte
	AccessTokenDuration time.Duration
	Issuer              string
	Leeway              time.Duration // допустимый рассинхрон часов
}

// Claims идентичность запрашивающего; subject хранит ID пользователя
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTService проверяет токены, выпущенные внешним сервисом аутентификации.
// Выпуск нужен только операторской утилите и тестам.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

// NewJWTService создает новый JWT сервис
func NewJWTService(config *JWTConfig) *JWTService {
	return &JWTService{
		secret: config.SecretKey,
		issuer: config.Issuer,
		ttl:    config.AccessTokenDuration,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(config.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(config.Leeway),
		),
	}
}

// GenerateAccessToken подписывает HS256 токен для пользователя
func (s *JWTService) GenerateAccessToken(userID int64, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken проверяет подпись, издателя и срок действия
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	}

	// Старые токены без user_id: берем ID из subject
	if claims.UserID == 0 {
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil || id <= 0 {
			return nil, ErrInvalidToken
		}
		claims.UserID = id
	}

	return claims, nil
}

// ExtractTokenFromBearer извлекает токен из Bearer заголовка
func ExtractTokenFromBearer(authHeader string) string {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
