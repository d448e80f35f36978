package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/daikw/agora/internal/council"
	"github.com/daikw/agora/internal/persona"
	"github.com/daikw/agora/internal/render"
	"github.com/daikw/agora/internal/transcript"
	"github.com/daikw/agora/internal/voice"
)

func handleAsk(ctx context.Context, c *cli.Command) error {
	topic := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if topic == "" {
		return fmt.Errorf("a question is required")
	}

	withSpeech := c.Bool("speak") || c.String("output") != ""
	_, s, err := openSession(ctx, c, withSpeech, c.Bool("no-pacing"))
	if err != nil {
		return err
	}
	defer s.Close()

	var addressee string
	if target := c.String("address"); target != "" {
		if addressee, err = resolveMember(s.council.Roster(), target); err != nil {
			return err
		}
	}

	printer := render.NewPrinter(os.Stdout, c.Bool("plain"))
	if !c.Bool("json") {
		cancel := s.council.Subscribe(printer.Follow())
		defer cancel()
	}

	if err := s.council.SubmitAddressed(ctx, topic, addressee); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("the council could not deliberate: %w", err)
	}

	// Speech runs in the background after the verdict
	s.council.Wait()
	tr := s.council.Snapshot().Transcript

	if c.Bool("json") {
		data, err := json.MarshalIndent(tr, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode transcript: %w", err)
		}
		fmt.Println(string(data))
	}

	if !withSpeech {
		return nil
	}
	clip := verdictAudio(tr)
	if clip.Empty() {
		log.Warn().Msg("The verdict has no audio")
		return nil
	}
	if path := c.String("output"); path != "" {
		return writeWAV(path, clip)
	}
	return voice.NewPlayer().Play(ctx, clip)
}

// resolveMember accepts a persona id or a display name
func resolveMember(roster persona.Roster, target string) (string, error) {
	if p, ok := roster.Find(target); ok {
		return p.ID, nil
	}
	if p, ok := roster.FindByName(target); ok {
		return p.ID, nil
	}
	return "", fmt.Errorf("%w: %s (seated: %s)", council.ErrUnknownPersona, target, strings.Join(roster.Names(), ", "))
}

func verdictAudio(tr transcript.Transcript) *voice.Audio {
	last, ok := tr.Last()
	if !ok {
		return nil
	}
	u, ok := last.(transcript.Utterance)
	if !ok || !u.Verdict {
		return nil
	}
	return u.Audio
}

func writeWAV(path string, clip *voice.Audio) error {
	data, err := clip.WAV()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info().Str("path", path).Dur("duration", clip.Duration()).Msg("Audio written")
	return nil
}

func handleCouncil(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	roster, err := loadRoster(cfg.RosterFile)
	if err != nil {
		return err
	}

	render.NewPrinter(os.Stdout, c.Bool("plain")).Roster(roster.List(), "")
	return nil
}

func handleTopics(ctx context.Context, c *cli.Command) error {
	render.NewPrinter(os.Stdout, true).Topics(council.SuggestedTopics)
	return nil
}

func handleSummon(ctx context.Context, c *cli.Command) error {
	name := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if name == "" {
		return fmt.Errorf("the name of a philosopher is required")
	}

	cfg, s, err := openSession(ctx, c, false, true)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := resolveMember(s.council.Roster(), c.String("replace"))
	if err != nil {
		return err
	}

	log.Info().Str("name", name).Str("replace", id).Msg("Summoning philosopher")
	p, err := s.council.ReplaceAndAnnounce(ctx, name, c.String("context"), id)
	if err != nil {
		return err
	}

	path := c.String("roster")
	if path == "" {
		path = cfg.RosterFile
	}
	if path == "" {
		log.Warn().Msg("No roster file configured, the new council member is not saved")
	} else {
		if err := persona.SaveRoster(path, s.council.Roster()); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("Roster saved")
	}

	render.NewPrinter(os.Stdout, false).Roster([]persona.Persona{p}, "")
	return nil
}
