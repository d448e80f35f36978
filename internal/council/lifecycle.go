package council

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/daikw/agora/internal/persona"
)

// ReplaceAndAnnounce generates a persona for name and swaps it in for the
// persona stored under id, announcing the arrival. Messages already in the
// transcript keep the sender names they were recorded with.
func (o *Orchestrator) ReplaceAndAnnounce(ctx context.Context, name, userContext, id string) (persona.Persona, error) {
	if err := o.startSummon(id); err != nil {
		return persona.Persona{}, err
	}

	p, err := o.gen.RequestPersona(ctx, name, userContext)

	defer o.flush()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summoning = false

	if err != nil {
		log.Warn().Err(err).Str("name", name).Msg("Failed to summon persona")
		return persona.Persona{}, fmt.Errorf("%w %q: %w", ErrSummonFailed, name, err)
	}

	roster, err := o.roster.Replace(id, p)
	if err != nil {
		log.Warn().Err(err).Str("name", name).Msg("Summoned persona clashes with the council")
		return persona.Persona{}, fmt.Errorf("%w %q: %w", ErrSummonFailed, name, err)
	}
	o.roster = roster
	o.emitLocked(EventRosterChanged, nil)

	line := o.systemLine(fmt.Sprintf("%s (%s) has joined the Council.", p.Name, p.Archetype))
	o.transcript, _ = o.transcript.Append(line)
	o.emitLocked(EventMessageAppended, line)

	log.Debug().Str("replaced", id).Str("id", p.ID).Msg("Persona joined the council")
	return p, nil
}

func (o *Orchestrator) startSummon(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase == PhaseProcessing || o.summoning {
		return ErrBusy
	}
	if _, ok := o.roster.Find(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPersona, id)
	}
	o.summoning = true
	return nil
}
