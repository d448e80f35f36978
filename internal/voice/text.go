package voice

import "strings"

var emphasisReplacer = strings.NewReplacer("*", "", "#", "")

// StripEmphasis removes markdown emphasis and heading markers so the
// synthesizer does not read them aloud
func StripEmphasis(text string) string {
	return strings.TrimSpace(emphasisReplacer.Replace(text))
}
