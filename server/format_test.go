package server

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pasinskim/mender-mcp/mender"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "longer ...", truncate("longer than ten", 10))
}

func TestFormatDevice(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	out := formatDevice(mender.Device{
		ID:         "d-1",
		Status:     "accepted",
		DeviceType: "raspberrypi4",
		CreatedTS:  timePtr(created),
		Attributes: []mender.InventoryItem{
			{Name: "kernel", Value: "5.15.0"},
		},
	})

	assert.Contains(t, out, "Device ID: d-1")
	assert.Contains(t, out, "Status: accepted")
	assert.Contains(t, out, "Device Type: raspberrypi4")
	assert.Contains(t, out, "Created: 2024-03-01T09:00:00Z")
	assert.Contains(t, out, "  - kernel: 5.15.0")
}

func TestFormatDevices(t *testing.T) {
	assert.Equal(t, "No devices found.", formatDevices(nil))

	out := formatDevices([]mender.Device{
		{ID: "d-1", Status: "accepted"},
		{ID: "d-2", Status: "pending", DeviceType: "gateway"},
	})
	assert.Contains(t, out, "Found 2 device(s):")
	assert.Contains(t, out, "• d-1")
	assert.Contains(t, out, "  Type: gateway")
}

func TestFormatDeployment(t *testing.T) {
	out := formatDeployment(mender.Deployment{
		ID:           "dep-1",
		Name:         "rollout",
		ArtifactName: "app-v2",
		Status:       "finished",
		DeviceCount:  5,
		Statistics:   map[string]any{"success": 5},
	})

	assert.Contains(t, out, "Deployment ID: dep-1")
	assert.Contains(t, out, "Artifact: app-v2")
	assert.Contains(t, out, "Device Count: 5")
	assert.Contains(t, out, "  success: 5")
}

func TestFormatRelease(t *testing.T) {
	out := formatRelease(mender.Release{
		Name:           "app-v2.0",
		ArtifactsCount: 1,
		Tags:           []mender.ReleaseTag{{Key: "env", Value: "production"}},
		Artifacts: []mender.Artifact{
			{
				ID:                    "a-1",
				Name:                  "app-v2.0",
				Size:                  4 * 1024 * 1024,
				Signed:                true,
				DeviceTypesCompatible: []string{"rpi4", "rpi5"},
			},
		},
	})

	assert.Contains(t, out, "Release Name: app-v2.0")
	assert.Contains(t, out, "Artifacts Count: 1")
	assert.Contains(t, out, "  - env: production")
	assert.Contains(t, out, "    Size: 4.0 MB")
	assert.Contains(t, out, "    Signed: true")
	assert.Contains(t, out, "    Device Types: rpi4, rpi5")
}

func TestFormatDeviceTypes(t *testing.T) {
	t.Run("short list inline", func(t *testing.T) {
		out := formatDeviceTypes([]string{"a", "b", "c"})
		assert.Equal(t, "    Device Types: a, b, c\n", out)
	})

	t.Run("long list wraps to bullets", func(t *testing.T) {
		out := formatDeviceTypes([]string{"a", "b", "c", "d"})
		assert.Contains(t, out, "Device Types (4):")
		assert.Contains(t, out, "      • a\n")
	})

	t.Run("oversized entry truncated", func(t *testing.T) {
		long := strings.Repeat("x", 100)
		out := formatDeviceTypes([]string{"a", "b", "c", long})
		assert.Contains(t, out, "...")
		assert.NotContains(t, out, long)
	})
}

func TestFormatTagList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", formatTagList(nil))
	})

	t.Run("short list inline", func(t *testing.T) {
		out := formatTagList([]mender.ReleaseTag{{Key: "env", Value: "prod"}})
		assert.Equal(t, "  Tags: env:prod\n", out)
	})

	t.Run("long list wraps", func(t *testing.T) {
		tags := []mender.ReleaseTag{
			{Key: "a", Value: "1"}, {Key: "b", Value: "2"},
			{Key: "c", Value: "3"}, {Key: "d", Value: "4"},
		}
		out := formatTagList(tags)
		assert.Contains(t, out, "Tags (4):")
		assert.Contains(t, out, "    • a:1\n")
	})
}

func TestFormatDeviceInventory(t *testing.T) {
	t.Run("with group and attributes", func(t *testing.T) {
		out := formatDeviceInventory(mender.DeviceInventory{
			DeviceID: "d-1",
			Attributes: []mender.InventoryItem{
				{Name: "kernel", Value: "5.15.0"},
			},
		}, "production")

		assert.Contains(t, out, "Device ID: d-1")
		assert.Contains(t, out, "Group: production")
		assert.Contains(t, out, "Inventory Attributes (1):")
		assert.Contains(t, out, "  • kernel: 5.15.0")
	})

	t.Run("no attributes", func(t *testing.T) {
		out := formatDeviceInventory(mender.DeviceInventory{DeviceID: "d-1"}, "")
		assert.Contains(t, out, "No inventory attributes found.")
		assert.NotContains(t, out, "Group:")
	})
}

func TestFormatInventories(t *testing.T) {
	out := formatInventories([]mender.DeviceInventory{
		{
			DeviceID: "d-1",
			Attributes: []mender.InventoryItem{
				{Name: "a", Value: 1}, {Name: "b", Value: 2},
				{Name: "c", Value: 3}, {Name: "d", Value: 4}, {Name: "e", Value: 5},
			},
		},
	})

	assert.Contains(t, out, "Found 1 device inventories:")
	assert.Contains(t, out, "  Attributes: 5")
	assert.Contains(t, out, "    - c: 3")
	assert.NotContains(t, out, "- d: 4")
	assert.Contains(t, out, "    ... and 2 more")
}

func TestFormatDeploymentLog(t *testing.T) {
	t.Run("entries rendered", func(t *testing.T) {
		ts := time.Date(2023, 8, 27, 12, 30, 45, 0, time.UTC)
		out := formatDeploymentLog(mender.DeploymentLog{
			DeploymentID: "dep-1",
			DeviceID:     "d-1",
			RetrievedAt:  ts,
			Entries: []mender.DeploymentLogEntry{
				{Timestamp: &ts, Level: "INFO", Message: "starting"},
				{Message: "bare line"},
			},
		})

		assert.Contains(t, out, "Deployment ID: dep-1")
		assert.Contains(t, out, "Log Entries: 2")
		assert.Contains(t, out, "2023-08-27 12:30:45 [INFO] starting")
		assert.Contains(t, out, "bare line")
	})

	t.Run("empty log carries hint", func(t *testing.T) {
		out := formatDeploymentLog(mender.DeploymentLog{DeploymentID: "dep-1", DeviceID: "d-1"})
		assert.Contains(t, out, "No log entries found.")
		assert.Contains(t, out, "may only be available for failed deployments")
	})
}

func TestFormatDeploymentLogs(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		out := formatDeploymentLogs(nil)
		assert.Contains(t, out, "No deployment logs found.")
		assert.Contains(t, out, "may only be available for failed deployments")
	})

	t.Run("previews capped at three entries", func(t *testing.T) {
		entries := []mender.DeploymentLogEntry{
			{Message: "one"}, {Message: "two"}, {Message: "three"}, {Message: "four"},
		}
		out := formatDeploymentLogs([]mender.DeploymentLog{
			{DeviceID: "d-1", Entries: entries},
		})

		assert.Contains(t, out, "Found logs for 1 device(s):")
		assert.Contains(t, out, "• Device: d-1")
		assert.Contains(t, out, "    three\n")
		assert.NotContains(t, out, "    four\n")
		assert.Contains(t, out, "... and 1 more entries")
		assert.Contains(t, out, "get_deployment_device_log")
	})
}

func TestFormatAuditLogs(t *testing.T) {
	assert.Equal(t, "No audit log entries found.", formatAuditLogs(nil))

	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	out := formatAuditLogs([]mender.AuditLogEntry{
		{
			Time:       timePtr(ts),
			User:       "admin@example.com",
			Action:     "create",
			ObjectType: "deployment",
			ObjectID:   "dep-1",
			Result:     "success",
		},
	})

	assert.Contains(t, out, "Found 1 audit log entries:")
	assert.Contains(t, out, "• create")
	assert.Contains(t, out, "  Time: 2024-01-15T10:30:00Z")
	assert.Contains(t, out, "  User: admin@example.com")
	assert.Contains(t, out, "  Object: deployment dep-1")
	assert.Contains(t, out, "  Result: success")
}
