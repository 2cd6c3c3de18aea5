package middleware

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/answerly-api/pkg/auth"
)

// Ключи контекста Gin, которые выставляет AuthMiddleware
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextIsAdmin  = "is_admin"

	// ContextTokenRejected выставляется OptionalAuth, если токен передан, но не прошел проверку
	ContextTokenRejected = "token_rejected"

	// ContextCookieAuth выставляется, если токен взят из cookie, а не из заголовка
	ContextCookieAuth = "cookie_auth"

	// contextCSRFSecret - CSRF секрет из claims токена
	contextCSRFSecret = "csrf_secret"
)

// AccessTokenCookie - имя cookie, в которой провайдер идентичности хранит токен доступа
const AccessTokenCookie = "access_token"

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware создает новый middleware
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// extractToken достает токен из cookie или заголовка Authorization: Bearer {token}.
// fromCookie сообщает, что токен пришел в cookie.
func extractToken(c *gin.Context) (token string, fromCookie bool, err error) {
	if cookie, cookieErr := c.Cookie(AccessTokenCookie); cookieErr == nil && cookie != "" {
		return cookie, true, nil
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false, errors.New("token missing")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false, errors.New("Authorization header format must be Bearer {token}")
	}
	return parts[1], false, nil
}

func (m *AuthMiddleware) setClaims(c *gin.Context, claims *auth.JWTCustomClaims, fromCookie bool) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextIsAdmin, claims.IsAdmin())
	c.Set(ContextCookieAuth, fromCookie)
	c.Set(contextCSRFSecret, claims.CSRFSecret)
}

// RequireAuth проверяет, аутентифицирован ли пользователь
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, fromCookie, err := extractToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
			return
		}

		claims, err := m.jwtService.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			return
		}

		m.setClaims(c, claims, fromCookie)
		c.Next()
	}
}

// OptionalAuth выставляет пользователя в контекст, если передан валидный токен.
// Невалидный или просроченный токен не мешает публичному чтению: запрос
// продолжается анонимно с флагом ContextTokenRejected.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, fromCookie, err := extractToken(c)
		if err != nil {
			c.Next()
			return
		}

		claims, err := m.jwtService.ParseToken(token)
		if err != nil {
			c.Set(ContextTokenRejected, true)
			c.Next()
			return
		}

		m.setClaims(c, claims, fromCookie)
		c.Next()
	}
}

// RejectInvalidToken отклоняет запрос, если OptionalAuth не принял переданный токен.
// Применяется к отправке ответов, чтобы пользователь с истекшей сессией
// не отправил ответы анонимно по ошибке.
func (m *AuthMiddleware) RejectInvalidToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool(ContextTokenRejected) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			return
		}
		c.Next()
	}
}

// RequireCSRF проверяет CSRF токен для state-changing методов (Double Submit Cookie).
// Проверка нужна только при аутентификации через cookie: заголовок Authorization
// браузер не подставляет в межсайтовые запросы. Должен применяться ПОСЛЕ RequireAuth или OptionalAuth.
func (m *AuthMiddleware) RequireCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions || method == http.MethodTrace {
			c.Next()
			return
		}
		if !c.GetBool(ContextCookieAuth) {
			c.Next()
			return
		}

		header := c.GetHeader(auth.CSRFHeader)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "CSRF token missing from header", "error_type": "csrf_token_missing"})
			return
		}

		secret, err := c.Cookie(auth.CSRFSecretCookie)
		if err != nil || secret == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "CSRF secret cookie missing or invalid", "error_type": "csrf_secret_cookie_invalid"})
			return
		}

		if tokenSecret := c.GetString(contextCSRFSecret); tokenSecret != "" && tokenSecret != secret {
			log.Printf("[CSRF Middleware] CSRF secret mismatch for path %s", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "CSRF secret mismatch (cookie vs token)", "error_type": "csrf_secret_mismatch"})
			return
		}

		expected := auth.HashCSRFSecret(secret)
		if subtle.ConstantTimeCompare([]byte(header), []byte(expected)) != 1 {
			log.Printf("[CSRF Middleware] Invalid CSRF token, path %s", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid CSRF token (hash mismatch)", "error_type": "csrf_token_invalid"})
			return
		}
		c.Next()
	}
}

// AdminOnly проверяет, является ли пользователь администратором.
// Должен применяться ПОСЛЕ RequireAuth.
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin rights required"})
			return
		}
		c.Next()
	}
}

// CurrentUserID возвращает ID аутентифицированного пользователя
func CurrentUserID(c *gin.Context) (uint, bool) {
	raw, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}
	id, ok := raw.(uint)
	return id, ok && id > 0
}

// CurrentUsername возвращает имя пользователя из токена (может быть пустым)
func CurrentUsername(c *gin.Context) string {
	return c.GetString(ContextUsername)
}

// IsAdmin проверяет флаг администратора в контексте
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextIsAdmin)
}
