package model

// BucketState : состояние бакета сразу после попытки взять токен
type BucketState struct {
	Allowed bool
	Tokens  float64
}

// AdmissionDecision : решение rate limiter по одному запросу.
// Remaining < 0 означает, что остаток неизвестен (хранилище недоступно, fail open)
type AdmissionDecision struct {
	Allowed           bool
	Remaining         int64
	RetryAfterSeconds int64
}
