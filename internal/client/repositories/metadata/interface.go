package metadata

import "context"

// Well-known metadata keys.
const (
	KeyLastSyncTime = "last_sync_time"
	KeyDeviceID     = "device_id"
)

// Repository is a small key/value store for engine bookkeeping that does
// not belong to any domain collection (last successful sync time, device
// identity, and similar).
type Repository interface {
	// Get returns the value for key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
