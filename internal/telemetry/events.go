package telemetry

import (
	"runtime"

	"github.com/asteroid-belt/stash/pkg/version"
)

// Event names
const (
	EventLinkSaved          = "link_saved"
	EventSyncCompleted      = "sync_completed"
	EventSyncFailed         = "sync_failed"
	EventCacheMaintenance   = "cache_maintenance"
	EventLinkRetried        = "link_retried"
	EventCLICommandExecuted = "cli_command_executed"
	EventCLIErrorOccurred   = "cli_error_occurred"
)

// baseProperties returns properties attached to every event.
func baseProperties() map[string]interface{} {
	return map[string]interface{}{
		"app_version": version.Short(),
		"os":          runtime.GOOS,
		"arch":        runtime.GOARCH,
	}
}

// withBase merges event-specific properties over the base set.
func withBase(props map[string]interface{}) map[string]interface{} {
	merged := baseProperties()
	for k, v := range props {
		merged[k] = v
	}
	return merged
}

// TrackLinkSaved records a save from the share intake path. Only the
// source app name travels; never the URL or its content.
func (c *posthogClient) TrackLinkSaved(duplicate bool, sourceApp string) {
	c.Track(EventLinkSaved, withBase(map[string]interface{}{
		"duplicate":  duplicate,
		"source_app": sourceApp,
	}))
}

// TrackSyncCompleted records the outcome counts of one sync pass.
func (c *posthogClient) TrackSyncCompleted(reason string, pushed, pushFailed, merged, created int, durationMs int64) {
	c.Track(EventSyncCompleted, withBase(map[string]interface{}{
		"reason":      reason,
		"pushed":      pushed,
		"push_failed": pushFailed,
		"merged":      merged,
		"created":     created,
		"duration_ms": durationMs,
	}))
}

// TrackSyncFailed records a phase-level sync failure.
func (c *posthogClient) TrackSyncFailed(reason, phase string) {
	c.Track(EventSyncFailed, withBase(map[string]interface{}{
		"reason": reason,
		"phase":  phase,
	}))
}

// TrackCacheMaintenance records a prefetch-and-evict pass.
func (c *posthogClient) TrackCacheMaintenance(downloaded, evicted int, totalBytes int64) {
	c.Track(EventCacheMaintenance, withBase(map[string]interface{}{
		"downloaded":  downloaded,
		"evicted":     evicted,
		"total_bytes": totalBytes,
	}))
}

// TrackLinkRetried records a manual retry of failed links.
func (c *posthogClient) TrackLinkRetried(count int) {
	c.Track(EventLinkRetried, withBase(map[string]interface{}{
		"count": count,
	}))
}

// TrackCLICommandExecuted records a CLI command run.
func (c *posthogClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {
	c.Track(EventCLICommandExecuted, withBase(map[string]interface{}{
		"command":     commandName,
		"has_flags":   hasFlags,
		"duration_ms": durationMs,
	}))
}

// TrackCLIError records a classified CLI error.
func (c *posthogClient) TrackCLIError(commandName, errorType string) {
	c.Track(EventCLIErrorOccurred, withBase(map[string]interface{}{
		"command":    commandName,
		"error_type": errorType,
	}))
}

// noop implementations

func (c *noopClient) TrackLinkSaved(duplicate bool, sourceApp string) {}
func (c *noopClient) TrackSyncCompleted(reason string, pushed, pushFailed, merged, created int, durationMs int64) {
}
func (c *noopClient) TrackSyncFailed(reason, phase string)                             {}
func (c *noopClient) TrackCacheMaintenance(downloaded, evicted int, totalBytes int64)  {}
func (c *noopClient) TrackLinkRetried(count int)                                       {}
func (c *noopClient) TrackCLICommandExecuted(name string, hasFlags bool, durMs int64)  {}
func (c *noopClient) TrackCLIError(commandName, errorType string)                      {}
