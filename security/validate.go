package security

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// ValidationError reports a caller-supplied parameter that violates its
// schema. It is raised before any network call is issued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

const (
	maxIdentifierLength  = 128
	maxReleaseNameLength = 256

	// MaxLimit bounds every list operation's page size.
	MaxLimit = 500
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	deviceTypePattern = regexp.MustCompile(`^[A-Za-z0-9._\- ]+$`)

	deviceStatuses = map[string]bool{
		"accepted": true,
		"rejected": true,
		"pending":  true,
		"noauth":   true,
		"preauth":  true,
	}

	deploymentStatuses = map[string]bool{
		"inprogress": true,
		"pending":    true,
		"finished":   true,
	}
)

// ValidateDeviceID checks a device identifier against the identifier schema.
func ValidateDeviceID(id string) error {
	return validateIdentifier("device_id", id)
}

// ValidateDeploymentID checks a deployment identifier against the identifier schema.
func ValidateDeploymentID(id string) error {
	return validateIdentifier("deployment_id", id)
}

func validateIdentifier(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if len(value) > maxIdentifierLength {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", maxIdentifierLength)}
	}
	if !identifierPattern.MatchString(value) {
		return &ValidationError{Field: field, Reason: "must contain only letters, digits, hyphens, underscores or dots"}
	}
	// Path-traversal guards, independent of the character class above.
	if strings.Contains(value, "..") || strings.HasPrefix(value, "/") || strings.HasSuffix(value, "/") {
		return &ValidationError{Field: field, Reason: "must not contain path traversal sequences"}
	}
	return nil
}

// ValidateReleaseName checks a release name. Release names allow a wider
// character set than identifiers but still reject path traversal.
func ValidateReleaseName(name string) error {
	if name == "" {
		return &ValidationError{Field: "release_name", Reason: "must not be empty"}
	}
	if len(name) > maxReleaseNameLength {
		return &ValidationError{Field: "release_name", Reason: fmt.Sprintf("must be at most %d characters", maxReleaseNameLength)}
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
		return &ValidationError{Field: "release_name", Reason: "must not contain path traversal sequences"}
	}
	return nil
}

// ValidateLimit checks a list page-size bound.
func ValidateLimit(limit int) error {
	if limit < 1 || limit > MaxLimit {
		return &ValidationError{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d", MaxLimit)}
	}
	return nil
}

// ValidateDeviceStatus checks a device status filter against the allow-list.
func ValidateDeviceStatus(status string) error {
	if !deviceStatuses[status] {
		return &ValidationError{Field: "status", Reason: "must be one of accepted, rejected, pending, noauth, preauth"}
	}
	return nil
}

// ValidateDeploymentStatus checks a deployment status filter against the allow-list.
func ValidateDeploymentStatus(status string) error {
	if !deploymentStatuses[status] {
		return &ValidationError{Field: "status", Reason: "must be one of inprogress, pending, finished"}
	}
	return nil
}

// ValidateDeviceType checks a device type filter.
func ValidateDeviceType(deviceType string) error {
	if deviceType == "" {
		return &ValidationError{Field: "device_type", Reason: "must not be empty"}
	}
	if len(deviceType) > maxIdentifierLength {
		return &ValidationError{Field: "device_type", Reason: fmt.Sprintf("must be at most %d characters", maxIdentifierLength)}
	}
	if !deviceTypePattern.MatchString(deviceType) {
		return &ValidationError{Field: "device_type", Reason: "must contain only letters, digits, spaces, hyphens, underscores or dots"}
	}
	return nil
}

// ValidateAttributeName checks an inventory attribute name filter.
func ValidateAttributeName(name string) error {
	if name == "" {
		return &ValidationError{Field: "has_attribute", Reason: "must not be empty"}
	}
	if len(name) > maxIdentifierLength {
		return &ValidationError{Field: "has_attribute", Reason: fmt.Sprintf("must be at most %d characters", maxIdentifierLength)}
	}
	if !identifierPattern.MatchString(name) {
		return &ValidationError{Field: "has_attribute", Reason: "must contain only letters, digits, hyphens, underscores or dots"}
	}
	return nil
}

// ValidateAuditFilter checks a free-form audit log filter value (user,
// action, object type). Printable text only, bounded length.
func ValidateAuditFilter(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if len(value) > maxIdentifierLength {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", maxIdentifierLength)}
	}
	for _, r := range value {
		if !unicode.IsPrint(r) {
			return &ValidationError{Field: field, Reason: "must contain only printable characters"}
		}
	}
	return nil
}

// ParseAuditTime parses an RFC 3339 timestamp used as an audit log range bound.
func ParseAuditTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Reason: "must be an RFC 3339 timestamp"}
	}
	return t, nil
}
