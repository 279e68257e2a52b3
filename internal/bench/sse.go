package bench

import (
	"encoding/json"
	"strings"
)

// sseChunk is the slice of the streaming chat-completion event the
// benchmark cares about.
type sseChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// parseSSELine extracts the delta content from one SSE line. done reports
// the [DONE] sentinel. Non-data lines, unparsable payloads and empty
// deltas yield ("", false).
func parseSSELine(line string) (content string, done bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "data:") {
		return "", false
	}
	payload := strings.TrimSpace(line[len("data:"):])
	if payload == "[DONE]" {
		return "", true
	}
	var chunk sseChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", false
	}
	if len(chunk.Choices) == 0 {
		return "", false
	}
	return chunk.Choices[0].Delta.Content, false
}

// ParseSSETokens extracts all content tokens from a complete SSE body.
func ParseSSETokens(body string) []string {
	var tokens []string
	for _, line := range strings.Split(body, "\n") {
		content, done := parseSSELine(line)
		if done {
			break
		}
		if content != "" {
			tokens = append(tokens, content)
		}
	}
	return tokens
}

// CountTokensApprox estimates the token count of generated text by
// whitespace splitting. Good enough for throughput numbers; not a
// tokenizer.
func CountTokensApprox(text string) int {
	return len(strings.Fields(text))
}
