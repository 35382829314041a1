package media

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackArchiveName is used when a session has neither title nor child name.
const FallbackArchiveName = "little-image-photos.zip"

// Slugify lower-cases s, strips accents and joins the remaining words with
// hyphens. Characters other than ASCII letters and digits separate words.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '\'' || r == '’':
			// apostrophes join: "emma's" -> "emmas"
		default:
			pendingDash = true
		}
	}
	return b.String()
}

// ArchiveName names the download of a session's finals:
// "<slug>-photos.zip" from the title, else the child's name, else a fixed
// fallback.
func ArchiveName(title, childName string) string {
	for _, candidate := range []string{title, childName} {
		if slug := Slugify(candidate); slug != "" {
			return slug + "-photos.zip"
		}
	}
	return FallbackArchiveName
}
