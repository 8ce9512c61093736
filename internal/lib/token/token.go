// Package token выпускает одноразовые токены для ссылок из писем.
// В базе хранится только sha256 от токена.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const size = 32

// New возвращает случайный токен в hex и его хэш для хранения.
func New() (raw, hash string, err error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	raw = hex.EncodeToString(b)
	return raw, Hash(raw), nil
}

// Hash хэш токена, под которым он лежит в базе.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
