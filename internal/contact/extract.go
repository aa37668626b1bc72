package contact

import (
	"regexp"
	"strings"

	"github.com/hacost/leads/internal/model"
)

var (
	phoneTokenRe = regexp.MustCompile(`\+?\d{0,4}?[-.\s]?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{4}`)
	waLinkRe     = regexp.MustCompile(`(?:phone=|wa\.me/|send\?phone=)(\d+)`)
	emailRe      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// introMarkers identify the profile/introduction block among the free-text
// blocks of a listing. Matched verbatim, first block wins.
var introMarkers = []string{"Intro", "Información"}

// minIntroChars is the minimum length for an intro block to be trusted as
// the email search scope; shorter blocks fall back to the full visible text.
const minIntroChars = 20

// maxPostBlocks bounds the post-text phone scan. Scanning the whole page is
// slow and picks up phone-shaped noise from unrelated content.
const maxPostBlocks = 3

// ExtractContact runs the extraction cascade over an expanded listing and
// returns a canonical phone and email, either of which may be model.Unknown.
//
// Phone stages, first hit wins: explicit tel: links, the intro block,
// WhatsApp deep links, then the first few post-like text blocks. Email is
// searched independently of phone success.
func ExtractContact(l model.RawListing) (phone, email string) {
	return extractPhone(l), extractEmail(l)
}

func extractPhone(l model.RawListing) string {
	// Stage 1: explicit tel: links. Unambiguous when present.
	for _, link := range l.LinkCandidates {
		if !strings.HasPrefix(strings.ToLower(link), "tel:") {
			continue
		}
		if p := NormalizePhone(link); p != model.Unknown {
			return p
		}
	}

	// Stage 2: phone-shaped tokens in the intro block.
	intro, introIdx := introBlock(l.FreeText)
	if introIdx >= 0 {
		if p := scanPhoneTokens(intro); p != model.Unknown {
			return p
		}
	}

	// Stage 3: WhatsApp deep links carry the number in the path or query.
	for _, link := range l.LinkCandidates {
		m := waLinkRe.FindStringSubmatch(link)
		if m == nil {
			continue
		}
		if p := NormalizePhone(m[1]); p != model.Unknown {
			return p
		}
	}

	// Stage 4: bounded scan over post-like blocks.
	scanned := 0
	for i, block := range l.FreeText {
		if i == introIdx {
			continue
		}
		if scanned == maxPostBlocks {
			break
		}
		scanned++
		if p := scanPhoneTokens(block); p != model.Unknown {
			return p
		}
	}

	return model.Unknown
}

// scanPhoneTokens normalizes every phone-shaped token in text and returns
// the first that survives normalization.
func scanPhoneTokens(text string) string {
	for _, tok := range phoneTokenRe.FindAllString(text, -1) {
		if p := NormalizePhone(tok); p != model.Unknown {
			return p
		}
	}
	return model.Unknown
}

// introBlock returns the first free-text block carrying an intro marker and
// its index, or ("", -1) when the listing has no recognizable intro section.
func introBlock(blocks []string) (string, int) {
	for i, b := range blocks {
		for _, marker := range introMarkers {
			if strings.Contains(b, marker) {
				return b, i
			}
		}
	}
	return "", -1
}

func extractEmail(l model.RawListing) string {
	scope, idx := introBlock(l.FreeText)
	if idx < 0 || len(scope) < minIntroChars {
		scope = strings.Join(l.FreeText, "\n")
	}

	for _, m := range emailRe.FindAllString(scope, -1) {
		if validEmail(m) {
			return strings.TrimSpace(m)
		}
	}
	return model.Unknown
}

// validEmail rejects matches that are image filenames or placeholder
// addresses rather than real contacts.
func validEmail(s string) bool {
	lower := strings.ToLower(s)
	for _, bad := range []string{".png", ".jpg", ".jpeg", ".gif", "example.com"} {
		if strings.Contains(lower, bad) {
			return false
		}
	}
	return true
}
