package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DecodeError reports a model response that could not be turned into a typed
// result, keeping a snippet of the offending text for logs.
type DecodeError struct {
	Snippet string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode model response: %v (response: %q)", e.Err, e.Snippet)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// decodeJSONObject unmarshals a JSON object that may be embedded in free text.
// If the response as a whole is not valid JSON, the first balanced {...}
// substring is extracted and parsed instead.
func decodeJSONObject(response string, v any) error {
	trimmed := strings.TrimSpace(response)
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	extracted, ok := extractJSONObject(trimmed)
	if !ok {
		return &DecodeError{Snippet: snippet(trimmed), Err: fmt.Errorf("no JSON object found")}
	}
	if err := json.Unmarshal([]byte(extracted), v); err != nil {
		return &DecodeError{Snippet: snippet(extracted), Err: err}
	}
	return nil
}

// extractJSONObject returns the first balanced top-level {...} substring,
// tracking string literals and escapes so braces inside values don't count.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

func snippet(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// truncateString cuts s to at most maxLength bytes, backing up to a rune
// boundary so multi-byte text is never split mid-sequence.
func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
