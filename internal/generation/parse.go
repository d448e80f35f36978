package generation

import (
	"encoding/json"
	"regexp"
	"strings"
)

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// parseJSON decodes a model reply into v. It accepts bare JSON, JSON in a
// markdown code block, or the outermost open..close span of the text.
func parseJSON(raw string, v any, openTok, closeTok string) bool {
	// Try direct parse first
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), v); err == nil {
		return true
	}

	// Try extracting from markdown code block
	if matches := codeBlockRe.FindStringSubmatch(raw); len(matches) > 1 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(matches[1])), v); err == nil {
			return true
		}
	}

	start := strings.Index(raw, openTok)
	end := strings.LastIndex(raw, closeTok)
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), v); err == nil {
			return true
		}
	}

	return false
}

func parseObject(raw string, v any) bool {
	return parseJSON(raw, v, "{", "}")
}

func parseArray(raw string, v any) bool {
	return parseJSON(raw, v, "[", "]")
}
