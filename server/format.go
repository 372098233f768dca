package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/pasinskim/mender-mcp/mender"
)

// Text renderers for tool and resource output. All output is plain text
// aimed at humans; long values are truncated and lists over three items
// collapse to previews or wrapped bullet lists.

const wrapColumn = 64

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func formatDevice(device mender.Device) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Device ID: %s\n", device.ID)
	fmt.Fprintf(&b, "Status: %s\n", device.Status)

	if device.DeviceType != "" {
		fmt.Fprintf(&b, "Device Type: %s\n", device.DeviceType)
	}
	if ts := formatTime(device.CreatedTS); ts != "" {
		fmt.Fprintf(&b, "Created: %s\n", ts)
	}
	if ts := formatTime(device.UpdatedTS); ts != "" {
		fmt.Fprintf(&b, "Last Updated: %s\n", ts)
	}
	fmt.Fprintf(&b, "Decommissioning: %t\n", device.Decommissioning)

	if len(device.Attributes) > 0 {
		b.WriteString("Attributes:\n")
		for _, attr := range device.Attributes {
			fmt.Fprintf(&b, "  - %s: %v\n", attr.Name, attr.Value)
		}
	}
	return b.String()
}

func formatDevices(devices []mender.Device) string {
	if len(devices) == 0 {
		return "No devices found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d device(s):\n\n", len(devices))
	for _, device := range devices {
		fmt.Fprintf(&b, "• %s\n", device.ID)
		fmt.Fprintf(&b, "  Status: %s\n", device.Status)
		if device.DeviceType != "" {
			fmt.Fprintf(&b, "  Type: %s\n", device.DeviceType)
		}
		if ts := formatTime(device.UpdatedTS); ts != "" {
			fmt.Fprintf(&b, "  Last Updated: %s\n", ts)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatDeployment(deployment mender.Deployment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deployment ID: %s\n", deployment.ID)
	fmt.Fprintf(&b, "Name: %s\n", deployment.Name)
	fmt.Fprintf(&b, "Artifact: %s\n", deployment.ArtifactName)
	fmt.Fprintf(&b, "Status: %s\n", deployment.Status)

	if ts := formatTime(deployment.Created); ts != "" {
		fmt.Fprintf(&b, "Created: %s\n", ts)
	}
	if ts := formatTime(deployment.Finished); ts != "" {
		fmt.Fprintf(&b, "Finished: %s\n", ts)
	}
	if deployment.DeviceCount > 0 {
		fmt.Fprintf(&b, "Device Count: %d\n", deployment.DeviceCount)
	}
	if len(deployment.Statistics) > 0 {
		b.WriteString("Statistics:\n")
		for key, value := range deployment.Statistics {
			fmt.Fprintf(&b, "  %s: %v\n", key, value)
		}
	}
	return b.String()
}

func formatDeployments(deployments []mender.Deployment) string {
	if len(deployments) == 0 {
		return "No deployments found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d deployment(s):\n\n", len(deployments))
	for _, deployment := range deployments {
		fmt.Fprintf(&b, "• %s (ID: %s)\n", deployment.Name, deployment.ID)
		fmt.Fprintf(&b, "  Status: %s\n", deployment.Status)
		fmt.Fprintf(&b, "  Artifact: %s\n", deployment.ArtifactName)
		if ts := formatTime(deployment.Created); ts != "" {
			fmt.Fprintf(&b, "  Created: %s\n", ts)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatArtifacts(artifacts []mender.Artifact) string {
	if len(artifacts) == 0 {
		return "No artifacts found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d artifact(s):\n\n", len(artifacts))
	for _, artifact := range artifacts {
		fmt.Fprintf(&b, "• %s (ID: %s)\n", artifact.Name, artifact.ID)
		if artifact.Description != "" {
			fmt.Fprintf(&b, "  Description: %s\n", artifact.Description)
		}
		if len(artifact.DeviceTypesCompatible) > 0 {
			fmt.Fprintf(&b, "  Compatible Types: %s\n", strings.Join(artifact.DeviceTypesCompatible, ", "))
		}
		if artifact.Size > 0 {
			fmt.Fprintf(&b, "  Size: %d bytes\n", artifact.Size)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatRelease(release mender.Release) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Release Name: %s\n", release.Name)

	if ts := formatTime(release.Modified); ts != "" {
		fmt.Fprintf(&b, "Last Modified: %s\n", ts)
	}
	if release.ArtifactsCount > 0 {
		fmt.Fprintf(&b, "Artifacts Count: %d\n", release.ArtifactsCount)
	}
	if release.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", release.Notes)
	}
	if len(release.Tags) > 0 {
		b.WriteString("Tags:\n")
		for _, tag := range release.Tags {
			fmt.Fprintf(&b, "  - %s: %s\n", tag.Key, tag.Value)
		}
	}

	if len(release.Artifacts) > 0 {
		fmt.Fprintf(&b, "Artifacts (%d):\n", len(release.Artifacts))
		for _, artifact := range release.Artifacts {
			fmt.Fprintf(&b, "  • %s\n", artifact.Name)
			if artifact.ID != "" {
				fmt.Fprintf(&b, "    ID: %s\n", artifact.ID)
			}
			if artifact.Size > 0 {
				fmt.Fprintf(&b, "    Size: %.1f MB\n", float64(artifact.Size)/(1024*1024))
			}
			fmt.Fprintf(&b, "    Signed: %t\n", artifact.Signed)
			if len(artifact.DeviceTypesCompatible) > 0 {
				b.WriteString(formatDeviceTypes(artifact.DeviceTypesCompatible))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// formatDeviceTypes renders compatible device types inline for short lists
// and as a wrapped bullet list beyond three entries.
func formatDeviceTypes(deviceTypes []string) string {
	if len(deviceTypes) == 0 {
		return ""
	}
	if len(deviceTypes) <= 3 {
		return fmt.Sprintf("    Device Types: %s\n", strings.Join(deviceTypes, ", "))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "    Device Types (%d):\n", len(deviceTypes))
	const prefix = "      • "
	for _, deviceType := range deviceTypes {
		if len(prefix)+len(deviceType) <= wrapColumn {
			fmt.Fprintf(&b, "%s%s\n", prefix, deviceType)
		} else {
			fmt.Fprintf(&b, "%s%s...\n", prefix, deviceType[:wrapColumn-len(prefix)-3])
		}
	}
	return b.String()
}

func formatTagList(tags []mender.ReleaseTag) string {
	if len(tags) == 0 {
		return ""
	}

	tagStrings := make([]string, 0, len(tags))
	for _, tag := range tags {
		tagStrings = append(tagStrings, fmt.Sprintf("%s:%s", tag.Key, tag.Value))
	}
	if len(tagStrings) <= 3 {
		return fmt.Sprintf("  Tags: %s\n", strings.Join(tagStrings, ", "))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  Tags (%d):\n", len(tagStrings))
	const prefix = "    • "
	for _, tagString := range tagStrings {
		if len(prefix)+len(tagString) <= wrapColumn {
			fmt.Fprintf(&b, "%s%s\n", prefix, tagString)
		} else {
			fmt.Fprintf(&b, "%s%s...\n", prefix, tagString[:wrapColumn-len(prefix)-3])
		}
	}
	return b.String()
}

func formatReleases(releases []mender.Release) string {
	if len(releases) == 0 {
		return "No releases found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d release(s):\n\n", len(releases))
	for _, release := range releases {
		fmt.Fprintf(&b, "• %s\n", release.Name)
		if ts := formatTime(release.Modified); ts != "" {
			fmt.Fprintf(&b, "  Last Modified: %s\n", ts)
		}
		if release.ArtifactsCount > 0 {
			fmt.Fprintf(&b, "  Artifacts: %d\n", release.ArtifactsCount)
		}
		if release.Notes != "" {
			fmt.Fprintf(&b, "  Notes: %s\n", release.Notes)
		}
		b.WriteString(formatTagList(release.Tags))
		if len(release.Artifacts) > 0 {
			artifact := release.Artifacts[0]
			if artifact.Size > 0 {
				fmt.Fprintf(&b, "  Size: %.1f MB\n", float64(artifact.Size)/(1024*1024))
			}
			fmt.Fprintf(&b, "  Signed: %t\n", artifact.Signed)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatDeviceInventory(inventory mender.DeviceInventory, group string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Device ID: %s\n", inventory.DeviceID)
	if ts := formatTime(inventory.UpdatedTS); ts != "" {
		fmt.Fprintf(&b, "Last Updated: %s\n", ts)
	}
	if group != "" {
		fmt.Fprintf(&b, "Group: %s\n", group)
	}

	if len(inventory.Attributes) == 0 {
		b.WriteString("No inventory attributes found.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\nInventory Attributes (%d):\n", len(inventory.Attributes))
	for _, attr := range inventory.Attributes {
		fmt.Fprintf(&b, "  • %s: %s\n", attr.Name, truncate(fmt.Sprintf("%v", attr.Value), 60))
	}
	return b.String()
}

func formatInventories(inventories []mender.DeviceInventory) string {
	if len(inventories) == 0 {
		return "No device inventories found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d device inventories:\n\n", len(inventories))
	for _, inventory := range inventories {
		fmt.Fprintf(&b, "• %s\n", inventory.DeviceID)
		if ts := formatTime(inventory.UpdatedTS); ts != "" {
			fmt.Fprintf(&b, "  Last Updated: %s\n", ts)
		}

		if len(inventory.Attributes) == 0 {
			b.WriteString("  No attributes\n\n")
			continue
		}
		fmt.Fprintf(&b, "  Attributes: %d\n", len(inventory.Attributes))
		preview := inventory.Attributes
		if len(preview) > 3 {
			preview = preview[:3]
		}
		for _, attr := range preview {
			fmt.Fprintf(&b, "    - %s: %s\n", attr.Name, truncate(fmt.Sprintf("%v", attr.Value), 30))
		}
		if rest := len(inventory.Attributes) - 3; rest > 0 {
			fmt.Fprintf(&b, "    ... and %d more\n", rest)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatInventoryGroups(groups []mender.InventoryGroup) string {
	if len(groups) == 0 {
		return "No inventory groups found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d inventory groups:\n\n", len(groups))
	for _, group := range groups {
		name := group.Group
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&b, "• %s\n", name)
		if group.DeviceCount > 0 {
			fmt.Fprintf(&b, "  Devices: %d\n", group.DeviceCount)
		} else {
			b.WriteString("  No devices\n")
		}
		if len(group.Attributes) > 0 {
			fmt.Fprintf(&b, "  Group Attributes: %d\n", len(group.Attributes))
			for key, value := range group.Attributes {
				fmt.Fprintf(&b, "    - %s: %s\n", key, truncate(fmt.Sprintf("%v", value), 40))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

const emptyLogHint = "Note: Deployment logs may only be available for failed deployments\n" +
	"or may not be enabled for this Mender configuration.\n"

func formatDeploymentLog(log mender.DeploymentLog) string {
	var b strings.Builder
	b.WriteString("Deployment Log\n")
	b.WriteString("================\n")
	fmt.Fprintf(&b, "Deployment ID: %s\n", log.DeploymentID)
	fmt.Fprintf(&b, "Device ID: %s\n", log.DeviceID)
	if !log.RetrievedAt.IsZero() {
		fmt.Fprintf(&b, "Retrieved: %s\n", log.RetrievedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Log Entries: %d\n\n", len(log.Entries))

	if len(log.Entries) == 0 {
		b.WriteString("No log entries found.\n")
		b.WriteString(emptyLogHint)
		return b.String()
	}

	b.WriteString("Log Details:\n")
	b.WriteString("------------\n")
	for _, entry := range log.Entries {
		var line strings.Builder
		if entry.Timestamp != nil {
			line.WriteString(entry.Timestamp.Format("2006-01-02 15:04:05"))
			line.WriteString(" ")
		}
		if entry.Level != "" {
			fmt.Fprintf(&line, "[%s] ", entry.Level)
		}
		line.WriteString(truncate(entry.Message, 200))
		b.WriteString(strings.TrimSpace(line.String()))
		b.WriteString("\n")
	}
	return b.String()
}

func formatDeploymentLogs(logs []mender.DeploymentLog) string {
	if len(logs) == 0 {
		return "No deployment logs found.\n" + emptyLogHint
	}

	var b strings.Builder
	b.WriteString("Deployment Logs Summary\n")
	b.WriteString("======================\n")
	fmt.Fprintf(&b, "Found logs for %d device(s):\n\n", len(logs))

	for _, log := range logs {
		fmt.Fprintf(&b, "• Device: %s\n", log.DeviceID)
		fmt.Fprintf(&b, "  Log Entries: %d\n", len(log.Entries))

		if len(log.Entries) == 0 {
			b.WriteString("    No log entries\n\n")
			continue
		}
		preview := log.Entries
		if len(preview) > 3 {
			preview = preview[:3]
		}
		for _, entry := range preview {
			if entry.Level != "" {
				fmt.Fprintf(&b, "    [%s] %s\n", entry.Level, truncate(entry.Message, 80))
			} else {
				fmt.Fprintf(&b, "    %s\n", truncate(entry.Message, 80))
			}
		}
		if rest := len(log.Entries) - 3; rest > 0 {
			fmt.Fprintf(&b, "    ... and %d more entries\n", rest)
		}
		b.WriteString("\n")
	}

	b.WriteString("Use 'get_deployment_device_log' for complete logs of specific devices.\n")
	return b.String()
}

func formatAuditLogs(entries []mender.AuditLogEntry) string {
	if len(entries) == 0 {
		return "No audit log entries found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d audit log entries:\n\n", len(entries))
	for _, entry := range entries {
		header := entry.Action
		if header == "" {
			header = "unknown action"
		}
		fmt.Fprintf(&b, "• %s\n", header)
		if ts := formatTime(entry.Time); ts != "" {
			fmt.Fprintf(&b, "  Time: %s\n", ts)
		}
		if entry.User != "" {
			fmt.Fprintf(&b, "  User: %s\n", entry.User)
		}
		if entry.ObjectType != "" || entry.ObjectID != "" {
			fmt.Fprintf(&b, "  Object: %s %s\n", entry.ObjectType, entry.ObjectID)
		}
		if entry.Result != "" {
			fmt.Fprintf(&b, "  Result: %s\n", truncate(entry.Result, 80))
		}
		if entry.RemoteAddr != "" {
			fmt.Fprintf(&b, "  Remote Address: %s\n", entry.RemoteAddr)
		}
		if len(entry.Details) > 0 {
			fmt.Fprintf(&b, "  Details: %d field(s)\n", len(entry.Details))
			for key, value := range entry.Details {
				fmt.Fprintf(&b, "    - %s: %s\n", key, truncate(fmt.Sprintf("%v", value), 60))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
