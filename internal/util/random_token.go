package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const opaqueTokenBytes = 32

// GenerateOpaqueToken : генерирует непрозрачный токен из 32 случайных байт (base64url)
func GenerateOpaqueToken() (string, error) {
	bytes := make([]byte, opaqueTokenBytes)

	if _, err := rand.Read(bytes); err != nil {
		return "", LogError("[util] ошибка генерации токена", err)
	}

	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// HashToken : sha256 от токена, в хранилище попадает только хэш
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
