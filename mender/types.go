package mender

import "time"

// Device represents a device known to the device authentication service.
type Device struct {
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	CreatedTS       *time.Time      `json:"created_ts,omitempty"`
	UpdatedTS       *time.Time      `json:"updated_ts,omitempty"`
	DeviceType      string          `json:"device_type,omitempty"`
	Decommissioning bool            `json:"decommissioning"`
	Attributes      []InventoryItem `json:"attributes,omitempty"`
}

// Deployment represents a software deployment to a set of devices.
type Deployment struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	ArtifactName string         `json:"artifact_name"`
	Status       string         `json:"status"`
	Created      *time.Time     `json:"created,omitempty"`
	Finished     *time.Time     `json:"finished,omitempty"`
	DeviceCount  int            `json:"device_count,omitempty"`
	MaxDevices   int            `json:"max_devices,omitempty"`
	Statistics   map[string]any `json:"statistics,omitempty"`
}

// Artifact represents a deployable software image.
type Artifact struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	Description           string     `json:"description,omitempty"`
	DeviceTypesCompatible []string   `json:"device_types_compatible,omitempty"`
	Signed                bool       `json:"signed"`
	Size                  int64      `json:"size,omitempty"`
	Modified              *time.Time `json:"modified,omitempty"`
}

// ReleaseTag is one key/value tag attached to a release.
type ReleaseTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Release is the canonical release record. Both upstream API generations
// are normalized into this one shape via ReleaseFromV1 / ReleaseFromV2.
type Release struct {
	Name           string
	Modified       *time.Time
	Artifacts      []Artifact
	ArtifactsCount int
	Tags           []ReleaseTag
	Notes          string
}

// ReleaseData is the wire shape shared by both release API generations.
// Fields absent in the older generation simply stay at their zero value.
type ReleaseData struct {
	Name           string       `json:"name"`
	Modified       *time.Time   `json:"modified"`
	Artifacts      []Artifact   `json:"artifacts"`
	ArtifactsCount int          `json:"artifacts_count"`
	Tags           []ReleaseTag `json:"tags"`
	Notes          string       `json:"notes"`
}

// ReleaseFromV1 builds a canonical release from a v1 response. The v1 API
// has no artifacts_count field, so the count is derived from the artifact
// list itself.
func ReleaseFromV1(data ReleaseData) Release {
	return Release{
		Name:           data.Name,
		Modified:       data.Modified,
		Artifacts:      data.Artifacts,
		ArtifactsCount: len(data.Artifacts),
		Tags:           data.Tags,
		Notes:          data.Notes,
	}
}

// ReleaseFromV2 builds a canonical release from a v2 response, falling back
// to the artifact list length when artifacts_count is absent.
func ReleaseFromV2(data ReleaseData) Release {
	count := data.ArtifactsCount
	if count == 0 {
		count = len(data.Artifacts)
	}
	return Release{
		Name:           data.Name,
		Modified:       data.Modified,
		Artifacts:      data.Artifacts,
		ArtifactsCount: count,
		Tags:           data.Tags,
		Notes:          data.Notes,
	}
}

// InventoryItem is a single named inventory attribute.
type InventoryItem struct {
	Name        string `json:"name"`
	Value       any    `json:"value"`
	Description string `json:"description,omitempty"`
}

// DeviceInventory is the complete reported inventory of one device.
type DeviceInventory struct {
	DeviceID   string
	Attributes []InventoryItem
	UpdatedTS  *time.Time
}

// InventoryGroup is a named device group with optional metadata.
type InventoryGroup struct {
	Group       string         `json:"group"`
	DeviceCount int            `json:"device_count"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// DeploymentLogEntry is one parsed log line. Message is the only required
// field; timestamp and level are best-effort extracted from heterogeneous
// upstream formats.
type DeploymentLogEntry struct {
	Timestamp *time.Time
	Level     string
	Message   string
}

// DeploymentLog is the full log of one device within one deployment.
type DeploymentLog struct {
	DeploymentID string
	DeviceID     string
	Entries      []DeploymentLogEntry
	RetrievedAt  time.Time
}

// AuditLogEntry is one normalized audit trail record.
type AuditLogEntry struct {
	Time       *time.Time
	User       string
	Action     string
	ObjectType string
	ObjectID   string
	Result     string
	Details    map[string]any
	RemoteAddr string
}
