package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier POST 报警到 NotifyReceivers 中的 http(s) 地址
// 非 URL 的接收人（如用户 ID）忽略
type WebhookNotifier struct {
	httpClient *resty.Client
}

func NewWebhookNotifier(timeout time.Duration) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &WebhookNotifier{httpClient: client}
}

var _ Notifier = (*WebhookNotifier)(nil)

func (w *WebhookNotifier) Notify(ctx context.Context, n AlarmNotification) error {
	var errs []error
	for _, target := range n.Receivers {
		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			continue
		}
		resp, err := w.httpClient.R().
			SetContext(ctx).
			SetBody(n).
			Post(target)
		if err != nil {
			errs = append(errs, fmt.Errorf("webhook %s: %w", target, err))
			continue
		}
		if resp.IsError() {
			errs = append(errs, fmt.Errorf("webhook %s: status %d", target, resp.StatusCode()))
		}
	}
	return errors.Join(errs...)
}
