package databases

import (
	"encoding/json"
	"fmt"
	"sort"
)

// textPayloadKeys is the fixed priority order for locating the passage text
// inside a point payload. Corpora indexed by different tools disagree on the
// field name.
var textPayloadKeys = []string{"text", "content", "body", "paragraph", "chunk"}

// labelPayloadKeys locate a human-readable source label.
var labelPayloadKeys = []string{"title", "source"}

// ExtractText extracts the passage text from a point payload. It is total:
// for any payload, including nil and empty maps, it returns a string, and
// for a non-empty payload the result is never empty. Resolution order:
// the known text keys, then the first string-valued field (stable order),
// then a JSON dump of the payload.
func ExtractText(payload map[string]interface{}) string {
	if len(payload) == 0 {
		return ""
	}

	for _, key := range textPayloadKeys {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := payload[k].(string); ok && s != "" {
			return s
		}
	}

	dump, err := json.Marshal(payload)
	if err != nil {
		// Unmarshalable payloads (channels, cycles) cannot come off the
		// wire, but stay total regardless.
		return fmt.Sprintf("%v", payload)
	}
	return string(dump)
}

// SourceLabel returns a display label for the point's origin, or false when
// the payload carries none; callers substitute a positional "Result N".
func SourceLabel(payload map[string]interface{}) (string, bool) {
	for _, key := range labelPayloadKeys {
		if s, ok := payload[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}
