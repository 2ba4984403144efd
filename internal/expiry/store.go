package expiry

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidKey = errors.New("invalid_expiry_key")

// Store holds expiry timestamps. GetOrCreate must be atomic: of any number of
// concurrent callers for one key exactly one reports created. Stored values
// never lapse, so an expired preview stays expired.
type Store interface {
	GetOrCreate(ctx context.Context, key string, value time.Time) (stored time.Time, created bool, err error)
	Delete(ctx context.Context, key string) error
}
