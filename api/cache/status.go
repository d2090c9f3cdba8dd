package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rasterTiler/api/database"
)

const (
	statusKeyPrefix = "job:status:"
	statusTTL       = 24 * time.Hour
)

var ErrNoSnapshot = errors.New("no status snapshot")

// Snapshot is the single persisted status record per job id. Every
// transition overwrites it in place; readers only ever see the latest state.
type Snapshot struct {
	Status      string          `json:"status"`
	Progress    int             `json:"progress"`
	Message     string          `json:"message"`
	Timestamp   time.Time       `json:"timestamp"`
	StartTime   *time.Time      `json:"start_time,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	FailedAt    *time.Time      `json:"failed_at,omitempty"`
	OutputDir   string          `json:"output_dir,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	TileURL     string          `json:"tile_url,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type StatusCache struct {
	cache *database.Cache
}

func NewStatusCache(cache *database.Cache) *StatusCache {
	return &StatusCache{cache: cache}
}

func (sc *StatusCache) Get(ctx context.Context, jobID string) (*Snapshot, error) {
	key := fmt.Sprintf("%s%s", statusKeyPrefix, jobID)

	data, err := sc.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decode status snapshot: %w", err)
	}

	return &snap, nil
}

func (sc *StatusCache) Set(ctx context.Context, jobID string, snap *Snapshot) error {
	key := fmt.Sprintf("%s%s", statusKeyPrefix, jobID)

	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	return sc.cache.Set(ctx, key, data, statusTTL)
}

func (sc *StatusCache) Delete(ctx context.Context, jobID string) error {
	key := fmt.Sprintf("%s%s", statusKeyPrefix, jobID)
	return sc.cache.Del(ctx, key)
}
