package statement

import "strings"

// CleanModelJSON strips Markdown fences and any prose around the outermost
// JSON object or array of a model reply.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return strings.Trim(s, "` ")
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = strings.TrimSpace(s[:idx])
	}

	open, closer := "{", "}"
	obj := strings.Index(s, "{")
	arr := strings.Index(s, "[")
	if arr != -1 && (obj == -1 || arr < obj) {
		open, closer = "[", "]"
	}
	if start := strings.Index(s, open); start != -1 {
		if end := strings.LastIndex(s, closer); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
