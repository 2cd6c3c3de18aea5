package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	// CSRFHeader - заголовок с CSRF токеном (хешем секрета)
	CSRFHeader = "X-CSRF-Token"
	// CSRFSecretCookie - HttpOnly cookie с CSRF секретом, которую выставляет провайдер идентичности
	CSRFSecretCookie = "__Host-csrf-secret"
)

// HashCSRFSecret возвращает CSRF токен для секрета (hex SHA-256)
func HashCSRFSecret(secret string) string {
	hasher := sha256.New()
	hasher.Write([]byte(secret))
	return hex.EncodeToString(hasher.Sum(nil))
}
