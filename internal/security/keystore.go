package security

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"internship-auth/internal/ports"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	s3Scheme       = "s3://"
	privateKeyFile = "private.pem"
	publicKeyFile  = "public.pem"
)

// KeyStore : пара RSA-ключей для подписи и проверки access-токенов.
// После старта только читается
type KeyStore struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	keyID      string
}

// NewKeyStore проверяет, что публичный ключ соответствует приватному
func NewKeyStore(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey) (*KeyStore, error) {
	if privateKey == nil || publicKey == nil {
		return nil, errors.New("[KeyStore] ключ не задан")
	}
	if !privateKey.PublicKey.Equal(publicKey) {
		return nil, errors.New("[KeyStore] публичный ключ не соответствует приватному")
	}

	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("[KeyStore] ошибка кодирования публичного ключа: %w", err)
	}
	sum := sha256.Sum256(der)

	return &KeyStore{
		privateKey: privateKey,
		publicKey:  publicKey,
		keyID:      hex.EncodeToString(sum[:8]),
	}, nil
}

// LoadKeyStore загружает PEM-ключи. Расположение задается путем к файлу или s3://bucket/key
func LoadKeyStore(ctx context.Context, privateLocation, publicLocation string, objects ports.ObjectReader) (*KeyStore, error) {
	privatePEM, err := readLocation(ctx, privateLocation, objects)
	if err != nil {
		return nil, fmt.Errorf("[KeyStore] не удалось прочитать приватный ключ: %w", err)
	}
	publicPEM, err := readLocation(ctx, publicLocation, objects)
	if err != nil {
		return nil, fmt.Errorf("[KeyStore] не удалось прочитать публичный ключ: %w", err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("[KeyStore] некорректный приватный ключ: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("[KeyStore] некорректный публичный ключ: %w", err)
	}

	return NewKeyStore(privateKey, publicKey)
}

// GenerateKeyStore создает новую пару ключей
func GenerateKeyStore(bits int) (*KeyStore, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("[KeyStore] ошибка генерации ключа: %w", err)
	}
	return NewKeyStore(privateKey, &privateKey.PublicKey)
}

// WritePEM сохраняет ключи в dir/private.pem (PKCS#8) и dir/public.pem (PKIX)
func (k *KeyStore) WritePEM(dir string) error {
	privateDER, err := x509.MarshalPKCS8PrivateKey(k.privateKey)
	if err != nil {
		return fmt.Errorf("[KeyStore] ошибка кодирования приватного ключа: %w", err)
	}
	publicDER, err := x509.MarshalPKIXPublicKey(k.publicKey)
	if err != nil {
		return fmt.Errorf("[KeyStore] ошибка кодирования публичного ключа: %w", err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[KeyStore] не удалось создать каталог: %w", err)
	}

	privateBlock := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateDER})
	if err := os.WriteFile(filepath.Join(dir, privateKeyFile), privateBlock, 0o600); err != nil {
		return fmt.Errorf("[KeyStore] не удалось записать приватный ключ: %w", err)
	}
	publicBlock := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})
	if err := os.WriteFile(filepath.Join(dir, publicKeyFile), publicBlock, 0o644); err != nil {
		return fmt.Errorf("[KeyStore] не удалось записать публичный ключ: %w", err)
	}

	return nil
}

func (k *KeyStore) PrivateKey() *rsa.PrivateKey { return k.privateKey }

func (k *KeyStore) PublicKey() *rsa.PublicKey { return k.publicKey }

// KeyID : идентификатор ключа для заголовка kid
func (k *KeyStore) KeyID() string { return k.keyID }

func readLocation(ctx context.Context, location string, objects ports.ObjectReader) ([]byte, error) {
	if location == "" {
		return nil, errors.New("расположение ключа не указано")
	}

	if !strings.HasPrefix(location, s3Scheme) {
		return os.ReadFile(location)
	}

	if objects == nil {
		return nil, fmt.Errorf("S3 не настроен для %s", location)
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("некорректный адрес %s: %w", location, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("некорректный адрес %s: ожидается s3://bucket/key", location)
	}

	return objects.ReadObject(ctx, u.Host, key)
}

// IsS3Location : ключ нужно читать из S3
func IsS3Location(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}
