package persona

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrDuplicateID is returned when a persona would share its id with another member
var ErrDuplicateID = errors.New("persona id already seated")

// Roster is an ordered, immutable list of personas
type Roster struct {
	members []Persona
}

// NewRoster creates a roster from the given personas, keeping their order
func NewRoster(members ...Persona) Roster {
	return Roster{members: append([]Persona(nil), members...)}
}

// DefaultRoster returns the five philosophers the council starts with
func DefaultRoster() Roster {
	return NewRoster(
		Persona{
			ID:        "socrates",
			Name:      "Socrates",
			Avatar:    AvatarURL("socrates"),
			Quote:     "The unexamined life is not worth living.",
			Archetype: "The Gadfly",
			Bio:       "The father of Western philosophy. He questions everything to find the truth.",
			Style:     "You are Socrates. You answer with questions (Socratic method). You are humble yet incisive. You expose contradictions in thought. Focus on ethics and virtue.",
			Voice:     VoiceFenrir,
		},
		Persona{
			ID:        "nietzsche",
			Name:      "Friedrich Nietzsche",
			Avatar:    AvatarURL("nietzsche"),
			Quote:     "That which does not kill us makes us stronger.",
			Archetype: "The Iconoclast",
			Bio:       "A radical critic of traditional morality and religion. He believes in the will to power.",
			Style:     "You are Nietzsche. You are bold, poetic, and sometimes aggressive. You talk about the Übermensch, the Will to Power, and overcoming oneself. You despise mediocrity and herd mentality.",
			Voice:     VoiceCharon,
		},
		Persona{
			ID:        "aurelius",
			Name:      "Marcus Aurelius",
			Avatar:    AvatarURL("aurelius"),
			Quote:     "You have power over your mind - not outside events.",
			Archetype: "The Stoic",
			Bio:       "Roman Emperor and Stoic philosopher. He focuses on duty, reason, and emotional control.",
			Style:     "You are Marcus Aurelius. You are calm, stoic, and rational. You focus on what you can control. You advise acceptance of nature and fate. Your tone is dignified and reflective.",
			Voice:     VoicePuck,
		},
		Persona{
			ID:        "beauvoir",
			Name:      "Simone de Beauvoir",
			Avatar:    AvatarURL("beauvoir"),
			Quote:     "One is not born, but rather becomes, a woman.",
			Archetype: "The Existentialist",
			Bio:       "Existentialist philosopher and feminist. She explores freedom, responsibility, and ambiguity.",
			Style:     "You are Simone de Beauvoir. You focus on existential freedom, oppression, and the social construction of identity. You are articulate, sharp, and focus on human agency.",
			Voice:     VoiceKore,
		},
		Persona{
			ID:        "kant",
			Name:      "Immanuel Kant",
			Avatar:    AvatarURL("kant"),
			Quote:     "Sapere aude! Dare to know!",
			Archetype: "The Rationalist",
			Bio:       "Enlightenment thinker. He believes in the categorical imperative and moral duty.",
			Style:     "You are Immanuel Kant. You are rigorous, logical, and systematic. You talk about duty, the categorical imperative, and universal laws. You value reason above all else.",
			Voice:     VoiceZephyr,
		},
	)
}

// List returns a copy of the roster members in order
func (r Roster) List() []Persona {
	return append([]Persona(nil), r.members...)
}

// Len returns the number of personas
func (r Roster) Len() int {
	return len(r.members)
}

// Find looks up a persona by id
func (r Roster) Find(id string) (Persona, bool) {
	for _, p := range r.members {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}

// FindByName resolves a display name to a persona. An exact match wins;
// otherwise names are compared ignoring case and surrounding whitespace.
func (r Roster) FindByName(name string) (Persona, bool) {
	for _, p := range r.members {
		if p.Name == name {
			return p, true
		}
	}
	folded := strings.TrimSpace(name)
	if folded == "" {
		return Persona{}, false
	}
	for _, p := range r.members {
		if strings.EqualFold(p.Name, folded) {
			return p, true
		}
	}
	return Persona{}, false
}

// Names returns the display names in roster order
func (r Roster) Names() []string {
	names := make([]string, len(r.members))
	for i, p := range r.members {
		names[i] = p.Name
	}
	return names
}

// Replace substitutes the persona stored under id with p, keeping its slot.
// An unknown id leaves the roster as it is. Replacing with an id held by
// another member fails with ErrDuplicateID.
func (r Roster) Replace(id string, p Persona) (Roster, error) {
	slot := -1
	for i, m := range r.members {
		switch m.ID {
		case id:
			slot = i
		case p.ID:
			return r, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
	}
	if slot < 0 {
		log.Debug().Str("id", id).Msg("Persona to replace not found")
		return r, nil
	}

	members := r.List()
	members[slot] = p
	log.Debug().Str("old", id).Str("new", p.ID).Msg("Replaced persona")
	return Roster{members: members}, nil
}
