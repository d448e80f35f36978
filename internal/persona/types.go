package persona

// Persona is one member of the council. A persona is never edited in place;
// the roster swaps in a whole new record instead.
type Persona struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	Quote     string `json:"quote"`
	Archetype string `json:"archetype"`
	Bio       string `json:"bio"`
	Style     string `json:"style"` // Roleplay directive, only read by prompt builders
	Voice     string `json:"voice"` // Prebuilt voice name: Puck, Charon, Kore, Fenrir, Zephyr
}

// Sender ids that never belong to a persona
const (
	UserID    = "user"
	SystemID  = "system"
	UnknownID = "unknown"
)

// Prebuilt voice names
const (
	VoicePuck   = "Puck"
	VoiceCharon = "Charon"
	VoiceKore   = "Kore"
	VoiceFenrir = "Fenrir"
	VoiceZephyr = "Zephyr"
)

// DefaultArchetype is used when a generated persona has none
const DefaultArchetype = "The Thinker"
