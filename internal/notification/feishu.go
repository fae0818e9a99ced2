package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// FeishuNotifier sends notifications to a Feishu group bot webhook.
type FeishuNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// FeishuConfig holds Feishu configuration
type FeishuConfig struct {
	WebhookURL string
	Enabled    bool
}

// NewFeishuNotifier creates a new Feishu notifier
func NewFeishuNotifier(config FeishuConfig) *FeishuNotifier {
	return &FeishuNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *FeishuNotifier) Name() string {
	return "feishu"
}

func (f *FeishuNotifier) IsEnabled() bool {
	return f.enabled
}

func (f *FeishuNotifier) Send(notification *Notification) error {
	if !f.enabled {
		return nil
	}

	text := fmt.Sprintf("【%s】%s\n\n%s",
		notification.Title,
		notification.Timestamp.Format("2006-01-02 15:04:05"),
		notification.Message)

	payload := map[string]interface{}{
		"msg_type": "text",
		"content": map[string]string{
			"text": text,
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal feishu payload: %w", err)
	}

	resp, err := f.client.Post(f.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send feishu message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feishu webhook returned status %d", resp.StatusCode)
	}

	// The webhook replies 200 with a JSON body carrying its own status code.
	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.Code != 0 {
		return fmt.Errorf("feishu webhook error %d: %s", result.Code, result.Msg)
	}

	return nil
}
