package leads

import "strings"

// Contact type tags understood by ContactURL. Anything else is treated as a
// generic web link.
const (
	ContactEmail = "Email"
	ContactPhone = "Phone"
)

// ContactURL turns a contact type tag and value into an openable URL:
// mailto: for Email, tel: for Phone, and an https URL for everything else
// (prefixing the scheme when the value lacks one). An empty value yields an
// empty string, which callers treat as a no-op.
func ContactURL(kind, value string) string {
	if value == "" {
		return ""
	}
	switch kind {
	case ContactEmail:
		return "mailto:" + value
	case ContactPhone:
		return "tel:" + value
	default:
		if strings.HasPrefix(value, "http") {
			return value
		}
		return "https://" + value
	}
}
