package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-bulkval/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestFormatMessageIncludesFields(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
		Channel:    "#alerts",
		Username:   "bot",
		AdminURL:   "https://addons.example.com/admin/validation/",
	})
	require.NoError(t, err)

	msg := client.formatMessage(notify.TaskFailurePayload{
		TaskID:     "3f7c",
		TaskType:   "validate_file",
		JobID:      12,
		Error:      "validator exited 2 <stderr>",
		ErrorClass: "retryable_external",
		Metadata:   map[string]string{"result_id": "99"},
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, "bot", msg["username"])
	assert.Equal(t, "#alerts", msg["channel"])
	text, ok := msg["text"].(string)
	require.True(t, ok)
	for _, want := range []string{
		"Task failure alert", "3f7c", "validate_file",
		"<https://addons.example.com/admin/validation|12>",
		"&lt;stderr&gt;", "retryable_external", "result_id: 99", "2024-01-01T00:00:00Z",
	} {
		assert.Contains(t, text, want)
	}
}

func TestSendTaskFailureRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL, RetryLimit: 2})
	require.NoError(t, err)

	require.NoError(t, client.SendTaskFailure(context.Background(), notify.TaskFailurePayload{TaskID: "1"}))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendTaskFailureGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL})
	require.NoError(t, err)

	err = client.SendTaskFailure(context.Background(), notify.TaskFailurePayload{TaskID: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}
