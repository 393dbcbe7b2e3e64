package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// applyPepper применяет HMAC-SHA256 с перцем в качестве ключа.
func applyPepper(password, pepper string) []byte {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(password))
	return h.Sum(nil)
}

// HashPassword возвращает bcrypt-хеш пароля с перцем.
func HashPassword(password, pepper string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(applyPepper(password, pepper), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPasswordHash(password, hash, pepper string) bool {
	// bcrypt сам извлечет соль из хеша
	return bcrypt.CompareHashAndPassword([]byte(hash), applyPepper(password, pepper)) == nil
}
