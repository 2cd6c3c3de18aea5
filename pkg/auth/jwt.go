package auth

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Роли, которые выдает внешний провайдер идентичности
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	// ErrTokenExpired возвращается для токенов с истекшим сроком действия
	ErrTokenExpired = errors.New("token is expired")
	// ErrTokenInvalid возвращается для токенов с неверной подписью или форматом
	ErrTokenInvalid = errors.New("token is invalid")
)

// JWTCustomClaims содержит поля токена, выданного провайдером идентичности
type JWTCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`

	// CSRFSecret привязывает токен к CSRF cookie (double submit)
	CSRFSecret string `json:"csrf_secret,omitempty"`

	jwt.RegisteredClaims
}

// IsAdmin проверяет наличие роли администратора
func (c *JWTCustomClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// JWTService проверяет токены доступа. Выпуск и обновление токенов -
// ответственность внешнего сервиса аутентификации, здесь нужен только
// "текущий пользователь".
type JWTService struct {
	secret []byte
	issuer string
}

// NewJWTService создает сервис проверки токенов с общим HMAC-секретом
func NewJWTService(secret, issuer string) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required for JWTService")
	}
	return &JWTService{secret: []byte(secret), issuer: issuer}, nil
}

// GenerateToken подписывает токен для пользователя.
// Используется в тестах и локальной разработке вместо внешнего провайдера.
func (s *JWTService) GenerateToken(userID uint, username, role string, ttl time.Duration) (string, error) {
	return s.GenerateTokenWithCSRF(userID, username, role, "", ttl)
}

// GenerateTokenWithCSRF выпускает токен, привязанный к CSRF секрету
func (s *JWTService) GenerateTokenWithCSRF(userID uint, username, role, csrfSecret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &JWTCustomClaims{
		UserID:     userID,
		Username:   username,
		Role:       role,
		CSRFSecret: csrfSecret,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken проверяет подпись и срок действия токена
func (s *JWTService) ParseToken(tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		log.Printf("[JWT] Ошибка при разборе токена: %v", err)
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		log.Printf("[JWT] Неожиданный издатель токена: %q", claims.Issuer)
		return nil, ErrTokenInvalid
	}
	if claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
