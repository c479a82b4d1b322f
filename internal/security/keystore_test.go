package security_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"internship-auth/internal/security"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	keysOnce   sync.Once
	sharedKeys *security.KeyStore
	otherKeys  *security.KeyStore
)

// testKeys : генерация RSA медленная, поэтому пары ключей общие для всех тестов пакета
func testKeys(t *testing.T) (*security.KeyStore, *security.KeyStore) {
	t.Helper()
	keysOnce.Do(func() {
		var err error
		sharedKeys, err = security.GenerateKeyStore(2048)
		if err != nil {
			panic(err)
		}
		otherKeys, err = security.GenerateKeyStore(2048)
		if err != nil {
			panic(err)
		}
	})
	return sharedKeys, otherKeys
}

type MockObjectReader struct {
	mock.Mock
}

func (m *MockObjectReader) ReadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestKeyStore_WriteAndLoadPEM(t *testing.T) {
	keys, _ := testKeys(t)
	dir := t.TempDir()

	require.NoError(t, keys.WritePEM(dir))

	info, err := os.Stat(filepath.Join(dir, "private.pem"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := security.LoadKeyStore(context.Background(),
		filepath.Join(dir, "private.pem"), filepath.Join(dir, "public.pem"), nil)
	require.NoError(t, err)
	assert.True(t, keys.PrivateKey().Equal(loaded.PrivateKey()))
	assert.True(t, keys.PublicKey().Equal(loaded.PublicKey()))
	assert.Equal(t, keys.KeyID(), loaded.KeyID())
	assert.Len(t, loaded.KeyID(), 16)
}

func TestKeyStore_LoadPKCS1(t *testing.T) {
	keys, _ := testKeys(t)
	dir := t.TempDir()

	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(keys.PrivateKey())})
	publicDER, err := x509.MarshalPKIXPublicKey(keys.PublicKey())
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "private.pem"), privatePEM, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public.pem"), publicPEM, 0o600))

	loaded, err := security.LoadKeyStore(context.Background(),
		filepath.Join(dir, "private.pem"), filepath.Join(dir, "public.pem"), nil)
	require.NoError(t, err)
	assert.Equal(t, keys.KeyID(), loaded.KeyID())
}

func TestKeyStore_MismatchedPair(t *testing.T) {
	keys, other := testKeys(t)

	_, err := security.NewKeyStore(keys.PrivateKey(), other.PublicKey())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "не соответствует")

	_, err = security.NewKeyStore(nil, keys.PublicKey())
	assert.Error(t, err)
}

func TestKeyStore_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a key"), 0o600))

	tests := []struct {
		name    string
		private string
		public  string
		wantErr string
	}{
		{name: "empty location", private: "", public: garbage, wantErr: "приватный ключ"},
		{name: "missing file", private: filepath.Join(dir, "missing.pem"), public: garbage, wantErr: "приватный ключ"},
		{name: "not pem", private: garbage, public: garbage, wantErr: "некорректный приватный ключ"},
		{name: "s3 without client", private: "s3://bucket/private.pem", public: garbage, wantErr: "S3 не настроен"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := security.LoadKeyStore(context.Background(), tt.private, tt.public, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestKeyStore_LoadFromS3(t *testing.T) {
	keys, _ := testKeys(t)
	ctx := context.Background()

	privateDER, err := x509.MarshalPKCS8PrivateKey(keys.PrivateKey())
	require.NoError(t, err)
	publicDER, err := x509.MarshalPKIXPublicKey(keys.PublicKey())
	require.NoError(t, err)

	objects := new(MockObjectReader)
	objects.On("ReadObject", ctx, "auth-keys", "prod/private.pem").
		Return(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateDER}), nil)
	objects.On("ReadObject", ctx, "auth-keys", "prod/public.pem").
		Return(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER}), nil)

	loaded, err := security.LoadKeyStore(ctx, "s3://auth-keys/prod/private.pem", "s3://auth-keys/prod/public.pem", objects)
	require.NoError(t, err)
	assert.Equal(t, keys.KeyID(), loaded.KeyID())
	objects.AssertExpectations(t)
}

func TestKeyStore_LoadFromS3Error(t *testing.T) {
	ctx := context.Background()
	objects := new(MockObjectReader)
	objects.On("ReadObject", ctx, "auth-keys", "private.pem").Return(nil, errors.New("access denied"))

	_, err := security.LoadKeyStore(ctx, "s3://auth-keys/private.pem", "s3://auth-keys/public.pem", objects)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	_, err = security.LoadKeyStore(ctx, "s3://auth-keys", "s3://auth-keys/public.pem", objects)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://bucket/key")
}

func TestIsS3Location(t *testing.T) {
	assert.True(t, security.IsS3Location("s3://bucket/key.pem"))
	assert.False(t, security.IsS3Location("/etc/keys/key.pem"))
}

func TestGenerateKeyStore_DistinctKeys(t *testing.T) {
	keys, other := testKeys(t)
	assert.NotEqual(t, keys.KeyID(), other.KeyID())

	small, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	store, err := security.NewKeyStore(small, &small.PublicKey)
	require.NoError(t, err)
	assert.NotEmpty(t, store.KeyID())
}
