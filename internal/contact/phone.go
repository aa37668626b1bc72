// Package contact extracts and canonicalizes phone numbers and emails from
// raw listing text. Everything here is pure string work on text the provider
// already fetched; no I/O.
package contact

import (
	"strings"

	"github.com/hacost/leads/internal/model"
)

// phoneSentinels are raw values the page provider emits when a phone field
// could not be read. Compared case-insensitively after trimming.
var phoneSentinels = map[string]bool{
	"":      true,
	"n/a":   true,
	"error": true,
	"none":  true,
	"nan":   true,
}

// NormalizePhone canonicalizes free-form phone text to a 10-digit national
// number, or model.Unknown when no valid number can be recovered.
//
// Mexican mobile prefixes ("521", "52") are stripped when the remainder is
// longer than 10 digits. Results shorter than 10 digits are rejected, longer
// ones are truncated to their last 10. Numbers starting with "1000" are
// parsing artifacts from the listing markup, not real numbers.
func NormalizePhone(raw string) string {
	if phoneSentinels[strings.ToLower(strings.TrimSpace(raw))] {
		return model.Unknown
	}

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	cleaned := digits.String()

	if strings.HasPrefix(cleaned, "521") && len(cleaned) > 10 {
		cleaned = cleaned[3:]
	} else if strings.HasPrefix(cleaned, "52") && len(cleaned) > 10 {
		cleaned = cleaned[2:]
	}

	if len(cleaned) < 10 {
		return model.Unknown
	}
	cleaned = cleaned[len(cleaned)-10:]

	if strings.HasPrefix(cleaned, "1000") {
		return model.Unknown
	}
	return cleaned
}
