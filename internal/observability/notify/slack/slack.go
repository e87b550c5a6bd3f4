package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/target/mmk-bulkval/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// AdminURL links alerts for a validation job to the admin validation page.
	AdminURL string
}

// Client delivers task failure alerts to a Slack webhook.
type Client struct {
	webhookURL string
	channel    string
	username   string
	retryLimit int
	adminURL   string
	client     *http.Client
}

// NewClient builds a Slack webhook client.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		webhookURL: webhookURL,
		channel:    strings.TrimSpace(cfg.Channel),
		username:   fallbackString(strings.TrimSpace(cfg.Username), "mmk-bulkval"),
		retryLimit: max(cfg.RetryLimit, 0),
		adminURL:   strings.TrimRight(strings.TrimSpace(cfg.AdminURL), "/"),
		client:     hc,
	}, nil
}

// SendTaskFailure posts a formatted message to Slack, retrying with linear backoff.
func (c *Client) SendTaskFailure(ctx context.Context, payload notify.TaskFailurePayload) error {
	body, err := json.Marshal(c.formatMessage(payload))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	backoff := retry.WithMaxRetries(uint64(c.retryLimit), retry.NewConstant(200*time.Millisecond)) //nolint:gosec // retryLimit is clamped to >= 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.post(ctx, body); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (c *Client) formatMessage(payload notify.TaskFailurePayload) map[string]any {
	timestamp := payload.OccurredAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var text strings.Builder
	text.WriteString("*Task failure alert*")
	if payload.TaskID != "" {
		text.WriteString(" `" + payload.TaskID + "`")
	}
	if payload.TaskType != "" {
		text.WriteString(" (" + payload.TaskType + ")")
	}
	text.WriteByte('\n')

	appendField(&text, "Severity", fallbackString(payload.Severity, notify.SeverityCritical))
	appendField(&text, "Validation job", c.jobValue(payload.JobID))
	appendField(&text, "Error class", payload.ErrorClass)
	appendField(&text, "Error", escapeSlackText(payload.Error))
	appendMetadata(&text, payload.Metadata)
	text.WriteString("• Timestamp: " + timestamp.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

func (c *Client) jobValue(jobID int64) string {
	if jobID <= 0 {
		return ""
	}
	id := strconv.FormatInt(jobID, 10)
	if c.adminURL == "" {
		return id
	}
	return fmt.Sprintf("<%s|%s>", c.adminURL, id)
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("slack webhook %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func escapeSlackText(value string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(value)
}

func appendField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• " + label + ": " + value + "\n")
}

func appendMetadata(text *strings.Builder, metadata map[string]string) {
	if len(metadata) == 0 {
		return
	}
	text.WriteString("• Metadata:\n")
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		text.WriteString("    • " + k + ": " + metadata[k] + "\n")
	}
}
