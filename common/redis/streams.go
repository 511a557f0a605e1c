package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// StreamMessage Redis Streams 消息
type StreamMessage struct {
	Stream string
	ID     string
	Values map[string]interface{}
}

// PublishJSONToStream 发布 JSON 消息到 Redis Streams
// 字段：data（JSON 字符串）、timestamp（Unix 秒）、以及附加的 tags
// maxLen > 0 时按近似长度裁剪 stream
func PublishJSONToStream(ctx context.Context, client *redis.Client, stream string, data interface{}, maxLen int64, tags map[string]string) (string, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal stream payload: %w", err)
	}

	values := map[string]interface{}{
		"data":      string(jsonBytes),
		"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
	}
	for k, v := range tags {
		values[k] = v
	}

	args := &redis.XAddArgs{Stream: stream, Values: values}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return client.XAdd(ctx, args).Result()
}

// ReadRange 按 ID 范围读取消息（不使用消费者组）
func ReadRange(ctx context.Context, client *redis.Client, stream, start, stop string, count int64) ([]StreamMessage, error) {
	msgs, err := client.XRangeN(ctx, stream, start, stop, count).Result()
	if err != nil {
		if err == redis.Nil {
			return []StreamMessage{}, nil
		}
		return nil, err
	}
	out := make([]StreamMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, StreamMessage{Stream: stream, ID: m.ID, Values: m.Values})
	}
	return out, nil
}
