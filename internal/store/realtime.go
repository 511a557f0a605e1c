package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RealtimeValue 数据点实时值（缓存内容）
type RealtimeValue struct {
	Value          float64   `json:"value"`
	CollectionTime time.Time `json:"collection_time"`
}

// RealtimeCache 数据点当前值缓存
// key: {prefix}{point_id}
type RealtimeCache struct {
	kv     KV
	prefix string
	ttl    time.Duration
}

func NewRealtimeCache(kv KV, prefix string, ttl time.Duration) *RealtimeCache {
	return &RealtimeCache{kv: kv, prefix: prefix, ttl: ttl}
}

func (c *RealtimeCache) key(pointID string) string {
	return c.prefix + pointID
}

// Put 写入当前值（覆盖）
func (c *RealtimeCache) Put(ctx context.Context, pointID string, v RealtimeValue) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime value: %w", err)
	}
	if err := c.kv.Set(ctx, c.key(pointID), string(b), c.ttl); err != nil {
		return fmt.Errorf("failed to set realtime value for %s: %w", pointID, err)
	}
	return nil
}

// Get 读取当前值，未命中返回 ErrMiss
func (c *RealtimeCache) Get(ctx context.Context, pointID string) (*RealtimeValue, error) {
	raw, err := c.kv.Get(ctx, c.key(pointID))
	if err != nil {
		return nil, err
	}
	var v RealtimeValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal realtime value: %w", err)
	}
	return &v, nil
}

// Invalidate 删除缓存（数据点删除时调用）
func (c *RealtimeCache) Invalidate(ctx context.Context, pointID string) error {
	return c.kv.Del(ctx, c.key(pointID))
}
