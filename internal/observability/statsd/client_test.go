package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, name, want string
	}{
		{"", " task/duration ", "task_duration"},
		{"mmk", "foo..bar", "mmk.foo.bar"},
		{"mmk", "..", ""},
		{"", "multi  space", "multi__space"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, metricName(tt.prefix, tt.name), tt.name)
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " bulkval "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	assert.Equal(t, "|#env:stage,result:success,service:bulkval", formatTags(global, local))
	assert.Empty(t, formatTags(nil, nil))
}

func TestClientWritesDatagrams(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     ".mmk_bulkval.",
		GlobalTags: map[string]string{"env": "test"},
	})
	require.NoError(t, err)
	defer client.Close()
	require.True(t, client.Enabled())

	client.Timing("task.duration", 1500*time.Microsecond, map[string]string{"task_type": "expand"})

	buf := make([]byte, 512)
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "mmk_bulkval.task.duration:1.5|ms|#env:test,task_type:expand", string(buf[:n]))
}

func TestClientDisabledAndClose(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	client.Count("ignored", 1, nil)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	nilClient.Gauge("ignored", 1, nil)
	require.NoError(t, nilClient.Close())
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statsd dial")
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	r.Count("a", 2, nil)
	r.Timing("b", 3*time.Millisecond, map[string]string{"k": "v"})

	require.Len(t, r.Metrics(), 2)
	got := r.Named("b")
	require.Len(t, got, 1)
	assert.InDelta(t, 3.0, got[0].Value, 0.001)
}
