package leads

import "testing"

func TestContactURL(t *testing.T) {
	tests := []struct {
		name  string
		kind  string
		value string
		want  string
	}{
		{"Email", ContactEmail, "jane@acme.io", "mailto:jane@acme.io"},
		{"Phone", ContactPhone, "+49 30 1234", "tel:+49 30 1234"},
		{"Website bare domain", "Website", "acme.io", "https://acme.io"},
		{"Website with scheme", "Website", "https://acme.io", "https://acme.io"},
		{"LinkedIn with http scheme", "LinkedIn", "http://linkedin.com/in/jane", "http://linkedin.com/in/jane"},
		{"Empty value is no-op", ContactEmail, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContactURL(tt.kind, tt.value); got != tt.want {
				t.Errorf("ContactURL(%q, %q) = %q, want %q", tt.kind, tt.value, got, tt.want)
			}
		})
	}
}
