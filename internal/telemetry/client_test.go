package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_DisabledByEnvVar(t *testing.T) {
	t.Setenv("STASH_TELEMETRY_TRACKING_ENABLED", "false")

	client := New()
	_, ok := client.(*noopClient)
	assert.True(t, ok, "Should return noopClient when disabled")
}

func TestNew_DisabledWithoutAPIKey(t *testing.T) {
	originalKey := PostHogAPIKey
	PostHogAPIKey = ""
	defer func() { PostHogAPIKey = originalKey }()

	client := New()
	_, ok := client.(*noopClient)
	assert.True(t, ok, "Should return noopClient without API key")
}

func TestNoopClient_DoesNotPanic(t *testing.T) {
	client := &noopClient{}

	client.Track("test_event", map[string]interface{}{"key": "value"})
	client.TrackLinkSaved(true, "safari")
	client.TrackSyncCompleted("manual", 3, 1, 5, 2, 1200)
	client.TrackSyncFailed("background", "inbound")
	client.TrackCacheMaintenance(2, 1, 4096)
	client.TrackLinkRetried(3)
	client.TrackCLICommandExecuted("save", true, 100)
	client.TrackCLIError("sync", "network_error")
	client.Close()
}

func TestWithBase_MergesProperties(t *testing.T) {
	props := withBase(map[string]interface{}{"pushed": 4})
	assert.Equal(t, 4, props["pushed"])
	assert.Contains(t, props, "app_version")
	assert.Contains(t, props, "os")
}
