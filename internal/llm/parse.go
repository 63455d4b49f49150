package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls the first JSON value out of model output. It tries the
// text as-is, then the contents of a fenced code block, then the widest
// brace- or bracket-delimited span. Returns nil when nothing parses.
func ExtractJSON(text string) json.RawMessage {
	text = strings.TrimSpace(text)

	if raw := tryJSON(text); raw != nil {
		return raw
	}
	if fenced := stripFences(text); fenced != text {
		if raw := tryJSON(fenced); raw != nil {
			return raw
		}
	}
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(text, pair[0])
		end := strings.LastIndexByte(text, pair[1])
		if start >= 0 && end > start {
			if raw := tryJSON(text[start : end+1]); raw != nil {
				return raw
			}
		}
	}
	return nil
}

func tryJSON(s string) json.RawMessage {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	switch v.(type) {
	case map[string]any, []any:
		return json.RawMessage(s)
	}
	return nil
}

// stripFences removes a surrounding ``` / ```json code fence if present.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.SplitN(text, "\n", 2)
	if len(lines) < 2 {
		return text
	}
	body := lines[1]
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
