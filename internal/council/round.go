package council

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/daikw/agora/internal/persona"
	"github.com/daikw/agora/internal/transcript"
	"github.com/daikw/agora/internal/voice"
)

// Round is one accepted submission waiting to be deliberated
type Round struct {
	o         *Orchestrator
	topic     string
	addressee string
	roster    persona.Roster
	prior     transcript.Transcript
	history   string
	user      transcript.User
	started   atomic.Bool
}

// Topic returns the submitted text
func (r *Round) Topic() string { return r.topic }

// Addressee returns the persona id forced to give the verdict, if any
func (r *Round) Addressee() string { return r.addressee }

// Submit accepts topic and runs the whole round
func (o *Orchestrator) Submit(ctx context.Context, topic string) error {
	return o.SubmitAddressed(ctx, topic, "")
}

// SubmitAddressed runs a whole round whose verdict is given by id
func (o *Orchestrator) SubmitAddressed(ctx context.Context, topic, id string) error {
	round, err := o.BeginAddressed(topic, id)
	if err != nil {
		return err
	}
	return round.Run(ctx)
}

// Run deliberates the submission and leaves the council finished, or in
// error when a phase fails. It returns once the verdict is recorded; its
// speech is synthesized in the background.
func (r *Round) Run(ctx context.Context) (err error) {
	if !r.started.CompareAndSwap(false, true) {
		return ErrRoundStarted
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("round panicked: %v", p)
		}
		if err != nil {
			r.o.fail(err)
		}
	}()

	verdict, err := r.deliberate(ctx)
	if err != nil {
		return err
	}

	r.o.finish()

	if u, ok := verdict.(transcript.Utterance); ok {
		r.speak(context.WithoutCancel(ctx), u)
	}
	return nil
}

func (r *Round) deliberate(ctx context.Context) (transcript.Message, error) {
	opinions, err := r.gatherOpinions(ctx)
	if err != nil {
		return nil, fmt.Errorf("opinion phase: %w", err)
	}

	turns, err := r.debate(ctx, opinions)
	if err != nil {
		return nil, fmt.Errorf("debate phase: %w", err)
	}

	if err := r.o.completeDeliberation(); err != nil {
		return nil, err
	}

	history := r.prior.Messages()
	history = append(history, r.user)
	for _, op := range opinions {
		history = append(history, op)
	}
	for _, turn := range turns {
		history = append(history, turn)
	}

	summary := r.o.gen.RequestSummary(ctx, r.topic, history)
	verdict := r.o.gen.RequestVerdict(ctx, r.topic, summary, r.roster, r.addressee)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("verdict phase: %w", err)
	}

	if u, ok := verdict.(transcript.Utterance); ok {
		u.AudioPending = true
		verdict = u
	}
	if err := r.o.appendVerdict(verdict); err != nil {
		return nil, err
	}
	return verdict, nil
}

// gatherOpinions asks every persona at once. The addressee is revealed as
// soon as it answers, the others after a pacing delay. The result keeps
// roster order whatever the arrival order.
func (r *Round) gatherOpinions(ctx context.Context) ([]transcript.Utterance, error) {
	members := r.roster.List()
	opinions := make([]transcript.Utterance, len(members))
	errs := make([]error, len(members))

	var wg conc.WaitGroup
	for i, p := range members {
		wg.Go(func() {
			addressed := p.ID == r.addressee
			op := r.o.gen.RequestOpinion(ctx, p, r.topic, r.history, addressed)
			opinions[i] = op

			if !addressed {
				if err := sleep(ctx, r.o.pacer.RevealDelay()); err != nil {
					errs[i] = err
					return
				}
			}
			errs[i] = r.o.appendTurn(op)
		})
	}

	if recovered := wg.WaitAndRecover(); recovered != nil {
		return nil, recovered.AsError()
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return opinions, nil
}

// debate opens the debate and reveals the generated script turn by turn
func (r *Round) debate(ctx context.Context, opinions []transcript.Utterance) ([]transcript.Utterance, error) {
	if err := r.o.setStatus(transcript.StatusDebating); err != nil {
		return nil, err
	}
	if err := r.o.appendTurn(r.o.systemLine(DebateOpeningText)); err != nil {
		return nil, err
	}

	turns := r.o.gen.RequestDebateRound(ctx, opinions, r.roster)
	for _, turn := range turns {
		if err := sleep(ctx, r.o.pacer.DebateStep()); err != nil {
			return nil, err
		}
		if err := r.o.appendTurn(turn); err != nil {
			return nil, err
		}
	}
	return turns, nil
}

// speak synthesizes the verdict in its speaker's voice and patches it in.
// A speaker missing from the roster only clears the pending flag.
func (r *Round) speak(ctx context.Context, verdict transcript.Utterance) {
	r.o.background.Add(1)
	go func() {
		defer r.o.background.Done()
		defer func() {
			if p := recover(); p != nil {
				log.Error().Interface("panic", p).Str("id", verdict.ID).Msg("Speech synthesis panicked")
				r.o.patchAudio(verdict.ID, nil)
			}
		}()

		var clip *voice.Audio
		if p, ok := r.roster.Find(verdict.SenderID); ok {
			clip = r.o.gen.RequestSpeech(ctx, verdict.Text, p.Voice)
		} else {
			log.Debug().Str("speaker", verdict.SenderID).Msg("Verdict speaker has no voice")
		}
		r.o.patchAudio(verdict.ID, clip)
	}()
}
