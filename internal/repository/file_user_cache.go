package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/notifyhub/xnft-notify/internal/domain"
)

// FileUserCache keeps the cache as a JSON array of strings in a single file.
//
// Append rewrites the whole file in place. It is not atomic: a crash while
// writing can leave a truncated file, which the next Load treats as empty.
type FileUserCache struct {
	path   string
	logger *zap.Logger
}

func NewFileUserCache(path string, logger *zap.Logger) *FileUserCache {
	return &FileUserCache{path: path, logger: logger}
}

func (c *FileUserCache) Load(_ context.Context) []domain.UserID {
	ids, err := ReadUserIDs(c.path)
	switch {
	case err == nil:
		return ids
	case errors.Is(err, fs.ErrNotExist):
		c.logger.Info("user cache not found, starting empty", zap.String("path", c.path))
	default:
		c.logger.Warn("error loading user cache", zap.String("path", c.path), zap.Error(err))
	}
	return []domain.UserID{}
}

func (c *FileUserCache) Append(ctx context.Context, ids []domain.UserID) error {
	cache := append(c.Load(ctx), ids...)

	data, err := json.Marshal(cache)
	if err != nil {
		return fmt.Errorf("marshal user cache: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create user cache dir: %w", err)
		}
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write user cache: %w", err)
	}
	return nil
}

var _ UserCache = (*FileUserCache)(nil)
