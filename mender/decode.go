package mender

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// payloadFormat tags the decoded shape of a response body. Format detection
// is explicit: the declared content type is consulted first and content
// sniffing resolves absent or misleading declarations.
type payloadFormat int

const (
	formatEmpty payloadFormat = iota
	formatJSON
	formatText
	formatBinary
)

// payload is one successful response body plus its detected format.
type payload struct {
	format payloadFormat
	body   []byte
}

// detectPayload classifies a response body. Empty bodies are a distinct
// format so callers can return empty results instead of decode errors.
func detectPayload(contentType string, body []byte) payload {
	if len(body) == 0 {
		return payload{format: formatEmpty}
	}

	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "text/") || strings.Contains(ct, "application/text") {
		return payload{format: formatText, body: body}
	}

	// JSON either by declaration or by sniffing; a declared JSON body that
	// does not parse falls through to the text/binary checks.
	if json.Valid(body) {
		return payload{format: formatJSON, body: body}
	}
	if utf8.Valid(body) {
		return payload{format: formatText, body: body}
	}
	return payload{format: formatBinary, body: body}
}

// decodeInto unmarshals a JSON payload onto the target record. Empty
// payloads leave the target untouched. Any decode failure surfaces as the
// generic invalid-response error, never the parser's own message.
func decodeInto(p payload, target any) error {
	switch p.format {
	case formatEmpty:
		return nil
	case formatJSON:
		if err := json.Unmarshal(p.body, target); err != nil {
			return &APIError{Message: msgInvalidResponse}
		}
		return nil
	default:
		return &APIError{Message: msgInvalidResponse}
	}
}

// text renders the payload as display text. Binary bodies reduce to a size
// summary so raw bytes never leak into caller-visible output.
func (p payload) text() string {
	switch p.format {
	case formatEmpty:
		return ""
	case formatBinary:
		return fmt.Sprintf("Binary content (%d bytes)", len(p.body))
	default:
		return string(p.body)
	}
}

var (
	logTimestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})?`)
	logLevelPattern     = regexp.MustCompile(`(?i)\b(DEBUG|INFO|WARN|WARNING|ERROR|FATAL|TRACE)\b`)
)

var logTimestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

// logEntryData is the structured wire shape some log endpoints return.
type logEntryData struct {
	Timestamp *time.Time `json:"timestamp"`
	Level     string     `json:"level"`
	Message   string     `json:"message"`
}

// parseDeploymentLog turns a heterogeneous log response (JSON array, JSON
// object, plain text or binary) into one DeploymentLog. It never fails: a
// shape that matches nothing structured becomes a single text entry.
func parseDeploymentLog(p payload, deploymentID, deviceID string) DeploymentLog {
	log := DeploymentLog{
		DeploymentID: deploymentID,
		DeviceID:     deviceID,
		RetrievedAt:  time.Now().UTC(),
	}

	if p.format == formatJSON {
		if entries, ok := parseStructuredLog(p.body); ok {
			log.Entries = entries
			return log
		}
	}

	for _, line := range strings.Split(strings.TrimSpace(p.text()), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		log.Entries = append(log.Entries, parseLogLine(line))
	}
	return log
}

// parseStructuredLog tries the known JSON log shapes in order: a bare entry
// array, then an object wrapping "entries" or "messages".
func parseStructuredLog(body []byte) ([]DeploymentLogEntry, bool) {
	var list []logEntryData
	if err := json.Unmarshal(body, &list); err == nil {
		entries := make([]DeploymentLogEntry, 0, len(list))
		for _, e := range list {
			if e.Message == "" {
				continue
			}
			entries = append(entries, DeploymentLogEntry{
				Timestamp: e.Timestamp,
				Level:     strings.ToUpper(e.Level),
				Message:   e.Message,
			})
		}
		return entries, true
	}

	var lines []string
	if err := json.Unmarshal(body, &lines); err == nil {
		entries := make([]DeploymentLogEntry, 0, len(lines))
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			entries = append(entries, parseLogLine(line))
		}
		return entries, true
	}

	var wrapped struct {
		Entries  []logEntryData `json:"entries"`
		Messages []string       `json:"messages"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, false
	}
	if len(wrapped.Entries) > 0 {
		entries := make([]DeploymentLogEntry, 0, len(wrapped.Entries))
		for _, e := range wrapped.Entries {
			entries = append(entries, DeploymentLogEntry{
				Timestamp: e.Timestamp,
				Level:     strings.ToUpper(e.Level),
				Message:   e.Message,
			})
		}
		return entries, true
	}
	if len(wrapped.Messages) > 0 {
		entries := make([]DeploymentLogEntry, 0, len(wrapped.Messages))
		for _, m := range wrapped.Messages {
			entries = append(entries, DeploymentLogEntry{Message: m})
		}
		return entries, true
	}
	return nil, false
}

// parseLogLine extracts a timestamp and level from one raw text line.
// Handles "2023-08-27T12:30:45Z INFO: message", "INFO: message" and bare
// messages; anything unparseable stays in the message verbatim.
func parseLogLine(line string) DeploymentLogEntry {
	entry := DeploymentLogEntry{}
	message := strings.TrimSpace(line)

	if match := logTimestampPattern.FindString(message); match != "" {
		if ts, ok := parseLogTimestamp(match); ok {
			entry.Timestamp = &ts
			message = strings.TrimSpace(strings.Replace(message, match, "", 1))
		}
	}

	if match := logLevelPattern.FindString(message); match != "" {
		entry.Level = strings.ToUpper(match)
		message = strings.Replace(message, match, "", 1)
		message = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(message), ":"))
	}

	if message == "" {
		message = strings.TrimSpace(line)
	}
	entry.Message = message
	return entry
}

func parseLogTimestamp(value string) (time.Time, bool) {
	for _, layout := range logTimestampFormats {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
