package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// transcriptTextKeys is the preference order for pulling a line of text out of
// a transcript entry. First populated key wins.
var transcriptTextKeys = []string{"text", "content", "utterance", "transcript", "message"}

// NormalizeTranscript flattens whatever shape the provider delivered a
// transcript in down to plain text. It is total: any input yields either nil
// (for absent input) or some text, falling back to a serialized form rather
// than failing.
//
// Supported shapes: plain string (passthrough), a mapping (first populated
// key from transcriptTextKeys, else the whole mapping serialized), and an
// ordered sequence (each element normalized to one line, joined with
// newlines, order preserved).
func NormalizeTranscript(value interface{}) *string {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case string:
		return &v
	case []interface{}:
		lines := make([]string, 0, len(v))
		for _, item := range v {
			lines = append(lines, normalizeEntry(item))
		}
		joined := strings.Join(lines, "\n")
		return &joined
	default:
		text := normalizeEntry(value)
		return &text
	}
}

// normalizeEntry renders a single transcript element as one line.
func normalizeEntry(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]interface{}:
		for _, key := range transcriptTextKeys {
			if text, ok := v[key].(string); ok && text != "" {
				return text
			}
		}
		return serializeFallback(v)
	default:
		return serializeFallback(value)
	}
}

// serializeFallback produces a deterministic textual form for values with no
// recognized text field.
func serializeFallback(value interface{}) string {
	if data, err := json.Marshal(value); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", value)
}
