package ports

import "context"

// ObjectReader : чтение объекта из S3-совместимого хранилища
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, key string) ([]byte, error)
}
