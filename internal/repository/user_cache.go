package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/notifyhub/xnft-notify/internal/domain"
)

// UserCache is an append-only record of resolved user ids.
//
// Load never fails: any read or decode error is logged and reported as an
// empty cache. Append adds ids after the existing ones; duplicates across
// runs are kept. The file implementation is in file_user_cache.go, the
// PostgreSQL one in pg_user_cache.go and the Redis one in redis_user_cache.go.
// Tests use a hand-written mock (mock_user_cache.go).
type UserCache interface {
	Load(ctx context.Context) []domain.UserID
	Append(ctx context.Context, ids []domain.UserID) error
}

// ReadUserIDs strictly reads a JSON array of strings from path.
// Anything else (null, objects, numbers in the array) is
// domain.ErrInvalidReplayList.
func ReadUserIDs(path string) ([]domain.UserID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var ids []domain.UserID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidReplayList, err)
	}
	if ids == nil {
		return nil, fmt.Errorf("%w: got null", domain.ErrInvalidReplayList)
	}
	return ids, nil
}
