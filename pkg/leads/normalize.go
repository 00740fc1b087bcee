package leads

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Normalize maps salvaged JSON bytes plus the original query into a typed
// Result. The input must already be valid JSON (the salvage layer guarantees
// that); this function does no repair of its own.
//
// The mode field is uppercased. When it is missing or empty it is inferred
// exactly once: a non-empty leads array means LEAD, anything else TEXT.
// Every other field passes through as-is — absent fields stay absent and
// scores are not clamped.
func Normalize(raw []byte, query string) (*Result, error) {
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}

	res.Mode = Mode(strings.ToUpper(string(res.Mode)))
	if res.Mode == "" {
		if len(res.Leads) > 0 {
			res.Mode = ModeLead
		} else {
			res.Mode = ModeText
		}
	}

	// The upstream response never carries the query reliably.
	res.Query = query

	return &res, nil
}
