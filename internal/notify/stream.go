package notify

import (
	"context"
	"fmt"

	commonredis "github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/common/redis"

	"github.com/go-redis/redis/v8"
)

// StreamNotifier 发布报警到 Redis Stream，由下游通知服务消费
type StreamNotifier struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamNotifier(client *redis.Client, stream string, maxLen int64) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream, maxLen: maxLen}
}

var _ Notifier = (*StreamNotifier)(nil)

func (s *StreamNotifier) Notify(ctx context.Context, n AlarmNotification) error {
	tags := map[string]string{
		"alarm_level":   string(n.AlarmLevel),
		"data_point_id": n.DataPointID,
	}
	if _, err := commonredis.PublishJSONToStream(ctx, s.client, s.stream, n, s.maxLen, tags); err != nil {
		return fmt.Errorf("failed to publish alarm %s to stream %s: %w", n.RecordID, s.stream, err)
	}
	return nil
}
