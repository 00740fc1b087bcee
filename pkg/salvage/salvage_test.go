package salvage

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"Clean object", `{"mode":"TEXT"}`, `{"mode":"TEXT"}`, nil},
		{"Clean array", `[1,2,3]`, `[1,2,3]`, nil},
		{"Leading prose", "Here is the data:\n{\"mode\":\"LEAD\"}", `{"mode":"LEAD"}`, nil},
		{"Trailing prose", `{"mode":"TEXT"} hope that helps!`, `{"mode":"TEXT"}`, nil},
		{"Prose on both sides", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`, nil},
		{"Two documents with prose between", `[{"a":1}] then {"b":2}`, "", ErrMalformed},
		{"Unterminated string and object", `{"mode":"TEXT","summary":"Hello`, `{"mode":"TEXT","summary":"Hello"}`, nil},
		{"Truncated nested containers", `{"leads":[{"name":"Acme"`, `{"leads":[{"name":"Acme"}]}`, nil},
		{"Truncated after closer", `{"leads":[{"name":"Acme"}],"explan`, `{"leads":[{"name":"Acme"}]}`, nil},
		{"No structure", "I cannot answer that.", "", ErrNoStructure},
		{"Empty input", "", "", ErrNoStructure},
		{"Unrepairable", `{"a": truncval`, "", ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Extract(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract(%q) unexpected error: %v", tt.input, err)
			}
			if string(got) != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractPreservesEmbeddedValue(t *testing.T) {
	// A valid document wrapped in arbitrary prose must come back unchanged.
	doc := `{"mode":"LEAD","leads":[{"name":"Nimbus Labs","matchScore":91.5}],"followUps":["expand to EU"]}`
	wrapped := "Sure! Based on your query I found the following.\n\n" + doc + "\n\nLet me know if you need more."

	got, err := Extract(wrapped)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	var want, have any
	if err := json.Unmarshal([]byte(doc), &want); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(got, &have); err != nil {
		t.Fatalf("extracted bytes are not valid JSON: %v", err)
	}
	if !reflect.DeepEqual(want, have) {
		t.Errorf("embedded value changed: got %v, want %v", have, want)
	}
}

func TestExtractTruncationsBalanceOrFail(t *testing.T) {
	// Cutting a valid document at any point after the opening token must
	// either produce balanced JSON or fail with ErrMalformed. Nothing may
	// succeed with unbalanced output.
	doc := `{"mode":"LEAD","leads":[{"name":"Acme","growthSignals":[{"activity":"raised seed","date":"2024-01"}]}],"explanation":"two signals"}`

	for i := 2; i < len(doc); i++ {
		got, err := Extract(doc[:i])
		if err != nil {
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("cut at %d: error = %v, want ErrMalformed", i, err)
			}
			continue
		}
		var v any
		if err := json.Unmarshal(got, &v); err != nil {
			t.Fatalf("cut at %d: Extract returned invalid JSON %q: %v", i, got, err)
		}
	}
}

func TestRepairIdempotent(t *testing.T) {
	inputs := []string{
		`{"mode":"TEXT","summary":"Hello`,
		`{"leads":[{"name":"Acme"`,
		`[[{"a":1}`,
		`{"done":true}`,
	}
	for _, in := range inputs {
		once := Repair(in)
		twice := Repair(once)
		if once != twice {
			t.Errorf("Repair not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestRepairMismatchedClosersIgnored(t *testing.T) {
	// A closer that doesn't match the top of the stack must not pop it.
	got := Repair(`{"a":[1]]`)
	if got != `{"a":[1]]}` {
		t.Errorf("Repair() = %q, want %q", got, `{"a":[1]]}`)
	}
}
