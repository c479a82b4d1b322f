package ports

import (
	"context"
	"internship-auth/internal/model"
	"time"
)

// BucketStore : атомарное чтение-изменение-запись бакета по ключу
type BucketStore interface {
	TakeToken(ctx context.Context, key string, capacity int64, refillPerSecond float64, now time.Time) (*model.BucketState, error)
}

type Admitter interface {
	Admit(ctx context.Context, key string) (*model.AdmissionDecision, error)
}
