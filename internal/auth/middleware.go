package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"go.uber.org/zap"
)

// ContextKey тип для ключей контекста
type ContextKey string

const (
	// UserIDKey ключ для получения ID пользователя из контекста
	UserIDKey ContextKey = "user_id"
	// UserEmailKey ключ для получения email пользователя из контекста
	UserEmailKey ContextKey = "user_email"
)

// Middleware JWT middleware для HTTP обработчиков
type Middleware struct {
	jwtService     *JWTService
	allowedOrigins []string
	log            *zap.Logger
}

// NewMiddleware создает новый JWT middleware
func NewMiddleware(jwtService *JWTService, allowedOrigins []string, log *zap.Logger) *Middleware {
	return &Middleware{
		jwtService:     jwtService,
		allowedOrigins: allowedOrigins,
		log:            log,
	}
}

// RequireAuth пропускает запрос только с валидным Bearer токеном
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.log.Debug("missing authorization header")
			unauthorized(w, "Authorization required")
			return
		}

		tokenString := ExtractTokenFromBearer(authHeader)
		if tokenString == "" {
			m.log.Debug("invalid authorization header format")
			unauthorized(w, "Invalid authorization header")
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			m.log.Debug("invalid token", zap.Error(err))
			if errors.Is(err, ErrExpiredToken) {
				unauthorized(w, "Token expired")
			} else {
				unauthorized(w, "Invalid token")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID, claims.Email)))
	}
}

// OptionalAuth добавляет пользователя в контекст, если токен валиден; иначе запрос анонимный
func (m *Middleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := ExtractTokenFromBearer(r.Header.Get("Authorization"))
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			m.log.Debug("optional auth: invalid token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID, claims.Email)))
	}
}

// WithUser кладет идентификатор пользователя в контекст
func WithUser(ctx context.Context, userID int64, email string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserEmailKey, email)
}

// GetUserIDFromContext извлекает ID пользователя из контекста
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

// CORS middleware для обработки CORS запросов
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && slices.Contains(m.allowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		// Обработка preflight OPTIONS запросов
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
