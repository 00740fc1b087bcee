// Package salvage recovers a JSON document from raw model output. Structured
// output requests still come back wrapped in prose or truncated mid-token when
// the model hits its output cap, so the caller gets a best-effort repair pass
// before parsing is declared hopeless.
package salvage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoStructure means the text contains no '{' or '[' at all.
	ErrNoStructure = errors.New("no JSON structure found in response")

	// ErrMalformed means strict parsing failed even after repair.
	ErrMalformed = errors.New("malformed JSON in response")
)

// Extract locates the first JSON container in text, trims surrounding prose,
// and returns valid JSON bytes. If strict parsing fails it attempts Repair
// once and re-parses. The recovery is a heuristic for output truncated at a
// string or container boundary; arbitrarily corrupted input still fails with
// ErrMalformed.
func Extract(text string) ([]byte, error) {
	brace := strings.IndexByte(text, '{')
	bracket := strings.IndexByte(text, '[')

	start := bracket
	if brace != -1 && (bracket == -1 || brace < bracket) {
		start = brace
	}
	if start == -1 {
		return nil, ErrNoStructure
	}

	candidate := strings.TrimSpace(text[start:])

	// Drop trailing prose or partial tokens after the last closer. When no
	// closer exists the output was cut before any container ended, and the
	// whole candidate goes to the repair pass instead.
	if end := strings.LastIndexAny(candidate, "}]"); end != -1 {
		candidate = candidate[:end+1]
	}

	if json.Valid([]byte(candidate)) {
		return []byte(candidate), nil
	}

	repaired := Repair(candidate)
	if err := strictParse(repaired); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return []byte(repaired), nil
}

// Repair closes a dangling string literal and any unclosed containers.
// Running it on an already-balanced document returns the input unchanged,
// so the function is idempotent.
func Repair(s string) string {
	if strings.Count(s, `"`)%2 != 0 {
		s += `"`
	}

	var stack []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '[':
			stack = append(stack, s[i])
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var closers strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			closers.WriteByte('}')
		} else {
			closers.WriteByte(']')
		}
	}
	return s + closers.String()
}

func strictParse(s string) error {
	var v any
	return json.Unmarshal([]byte(s), &v)
}
