package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statusKeyPrefix = "job:status:"
	statusTTL       = 24 * time.Hour
)

// Snapshot duplicates the API-side status record; both services agree on
// the wire format through the JSON tags.
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
	client *redis.Client
}

func NewStatusCache(client *redis.Client) *StatusCache {
	return &StatusCache{client: client}
}

// Set overwrites the single status record for jobID.
func (c *StatusCache) Set(ctx context.Context, jobID string, snap *Snapshot) error {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, statusKeyPrefix+jobID, data, statusTTL).Err()
}
