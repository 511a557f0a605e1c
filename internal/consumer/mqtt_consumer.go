package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqttcommon "github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/common/mqtt"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/service"

	"go.uber.org/zap"
)

// TelemetryRecorder 采样写入（service.TelemetryService 实现）
type TelemetryRecorder interface {
	RecordSampleByCode(ctx context.Context, pointCode string, req service.RecordSampleRequest) (*service.IngestResult, error)
}

// PointMessage 采集消息体
// timestamp 为 unix 秒或毫秒，缺省取接收时间
type PointMessage struct {
	Value     *float64 `json:"value"`
	Timestamp int64    `json:"timestamp,omitempty"`
	Remark    string   `json:"remark,omitempty"`
}

// MQTTConsumer MQTT 采集消费者
// 主题格式: monitor/points/{point_code}/data，通配符 "+" 所在层为 point_code
type MQTTConsumer struct {
	subscriber mqttcommon.Subscriber
	recorder   TelemetryRecorder
	topic      string
	qos        byte
	codeIndex  int
	logger     *zap.Logger
}

// NewMQTTConsumer 创建 MQTT 消费者；topic 必须且只能含一个 "+"
func NewMQTTConsumer(subscriber mqttcommon.Subscriber, recorder TelemetryRecorder, topic string, qos byte, logger *zap.Logger) (*MQTTConsumer, error) {
	idx := -1
	for i, part := range strings.Split(topic, "/") {
		if part != "+" {
			continue
		}
		if idx >= 0 {
			return nil, fmt.Errorf("topic %s has more than one wildcard", topic)
		}
		idx = i
	}
	if idx < 0 {
		return nil, fmt.Errorf("topic %s has no point code wildcard", topic)
	}
	return &MQTTConsumer{
		subscriber: subscriber,
		recorder:   recorder,
		topic:      topic,
		qos:        qos,
		codeIndex:  idx,
		logger:     logger,
	}, nil
}

// Start 订阅采集主题，阻塞直到 ctx 取消
func (c *MQTTConsumer) Start(ctx context.Context) error {
	handler := func(topic string, payload []byte) error {
		return c.handleMessage(ctx, topic, payload)
	}
	if err := c.subscriber.Subscribe(c.topic, c.qos, handler); err != nil {
		return fmt.Errorf("failed to subscribe to telemetry topic: %w", err)
	}

	c.logger.Info("MQTT consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop() error {
	if err := c.subscriber.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
		return err
	}
	c.logger.Info("MQTT consumer stopped")
	return nil
}

func (c *MQTTConsumer) handleMessage(ctx context.Context, topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	parts := strings.Split(topic, "/")
	if len(parts) <= c.codeIndex || parts[c.codeIndex] == "" {
		return fmt.Errorf("invalid topic format: %s", topic)
	}
	pointCode := parts[c.codeIndex]

	var msg PointMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.Value == nil {
		return fmt.Errorf("message for %s has no value", pointCode)
	}

	req := service.RecordSampleRequest{
		Value:  *msg.Value,
		Source: domain.SourceAuto,
		Remark: msg.Remark,
	}
	if msg.Timestamp > 0 {
		at := parseTimestamp(msg.Timestamp)
		req.CollectionTime = &at
	}

	res, err := c.recorder.RecordSampleByCode(ctx, pointCode, req)
	if err != nil {
		return fmt.Errorf("failed to record sample for %s: %w", pointCode, err)
	}
	if n := len(res.TriggeredAlarms); n > 0 {
		c.logger.Info("Telemetry triggered alarms",
			zap.String("point_code", pointCode),
			zap.Int("alarm_count", n),
		)
	}
	return nil
}

// 大于 1e12 视为毫秒
func parseTimestamp(ts int64) time.Time {
	if ts > 1e12 {
		return time.UnixMilli(ts)
	}
	return time.Unix(ts, 0)
}
