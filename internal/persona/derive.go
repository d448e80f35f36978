package persona

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const avatarURLFormat = "https://picsum.photos/seed/%s/200/200"

// Slug turns a display name into a lower-case, dash separated key.
// Diacritics are folded so "Émile Durkheim" and "Emile Durkheim" agree.
func Slug(name string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case unicode.IsSpace(r) || r == '-' || r == '_':
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// NewID builds a roster id that cannot collide with the default roster or
// with an earlier summon of the same name
func NewID(name string, at time.Time) string {
	slug := Slug(name)
	if slug == "" {
		slug = "persona"
	}
	return fmt.Sprintf("%s-%d", slug, at.UnixMilli())
}

// AvatarURL returns a placeholder portrait seeded by the name
func AvatarURL(name string) string {
	return fmt.Sprintf(avatarURLFormat, strings.Join(strings.Fields(name), ""))
}

// VoiceForGender picks a prebuilt voice from a gender hint
func VoiceForGender(gender string) string {
	if strings.EqualFold(strings.TrimSpace(gender), "female") {
		return VoiceKore
	}
	return VoicePuck
}

// NormalizeArchetype title-cases an archetype label, defaulting when empty
func NormalizeArchetype(archetype string) string {
	archetype = strings.TrimSpace(archetype)
	if archetype == "" {
		return DefaultArchetype
	}
	return cases.Title(language.English, cases.NoLower).String(archetype)
}
