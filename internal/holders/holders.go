// Package holders produces the list of xNFT holder addresses a run notifies,
// either from a live getProgramAccounts scan or from a JSON snapshot.
package holders

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/notifyhub/xnft-notify/internal/domain"
)

// Source yields holders in a stable order. An error is fatal for the run.
type Source interface {
	Holders(ctx context.Context) ([]domain.HolderID, error)
}

// SnapshotSource reads a precomputed JSON array of addresses.
type SnapshotSource struct {
	Path string
}

func NewSnapshotSource(path string) *SnapshotSource {
	return &SnapshotSource{Path: path}
}

func (s *SnapshotSource) Holders(_ context.Context) ([]domain.HolderID, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read holder snapshot: %w", err)
	}
	var holders []domain.HolderID
	if err := json.Unmarshal(data, &holders); err != nil {
		return nil, fmt.Errorf("parse holder snapshot %s: %w", s.Path, err)
	}
	return holders, nil
}

var _ Source = (*SnapshotSource)(nil)
