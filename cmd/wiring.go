package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/daikw/agora/internal/config"
	"github.com/daikw/agora/internal/council"
	"github.com/daikw/agora/internal/events"
	"github.com/daikw/agora/internal/generation"
	"github.com/daikw/agora/internal/llm"
	"github.com/daikw/agora/internal/persona"
	"github.com/daikw/agora/internal/voice"
	"github.com/daikw/agora/internal/voice/provider"
)

func loadConfig(c *cli.Command) (*config.Config, error) {
	workDir, _ := os.Getwd()
	cfg, err := config.NewLoader().Load(c.String("config"), workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func speechConfig(cfg *config.Config) provider.Config {
	return provider.Config{
		Provider:        cfg.Speech.Provider,
		APIKey:          cfg.Speech.APIKey,
		Model:           cfg.Speech.Model,
		Region:          cfg.Speech.Region,
		ProjectID:       cfg.Speech.ProjectID,
		CredentialsFile: cfg.Speech.CredentialsFile,
		BaseURL:         cfg.Speech.BaseURL,
		Voices:          cfg.Speech.Voices,
	}
}

// newSynthesizer returns nil when the configured provider is "none"
func newSynthesizer(ctx context.Context, cfg *config.Config) (voice.Synthesizer, error) {
	synth, err := provider.New(ctx, speechConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create speech provider: %w", err)
	}
	if synth == nil {
		return nil, nil
	}
	log.Debug().Str("provider", synth.Provider().Name()).Msg("Speech enabled")
	return synth, nil
}

// newGenerator builds the generation client. Speech is only wired when
// withSpeech is set, so rounds that nobody listens to skip synthesis.
func newGenerator(ctx context.Context, cfg *config.Config, withSpeech bool) (*generation.Client, error) {
	svc, err := llm.NewFromConfig(llm.Config{
		Backend: cfg.Generation.Backend,
		APIKey:  cfg.Generation.APIKey,
		Model:   cfg.Generation.Model,
		BaseURL: cfg.Generation.BaseURL,
		Timeout: cfg.Generation.Timeout.Std(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generation backend: %w", err)
	}

	var speech voice.Synthesizer
	if withSpeech {
		if speech, err = newSynthesizer(ctx, cfg); err != nil {
			return nil, err
		}
	}

	return generation.NewClient(svc, speech, generation.WithTimeout(cfg.Generation.Timeout.Std())), nil
}

func loadRoster(path string) (persona.Roster, error) {
	if path == "" {
		return persona.DefaultRoster(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Debug().Str("path", path).Msg("Roster file not found, using default council")
		return persona.DefaultRoster(), nil
	}
	return persona.LoadRoster(path)
}

func newCouncil(gen council.Generator, cfg *config.Config, noPacing bool) (*council.Orchestrator, error) {
	roster, err := loadRoster(cfg.RosterFile)
	if err != nil {
		return nil, err
	}

	var pacer council.Pacer = council.NewPacer(
		cfg.Pacing.RevealJitter.Std(),
		cfg.Pacing.DebateStep.Std(),
		cfg.Pacing.Highlight.Std(),
	)
	if noPacing || cfg.Pacing.Disabled {
		pacer = council.NoPacing
	}

	return council.New(gen,
		council.WithRoster(roster),
		council.WithPacer(pacer),
		council.WithHistoryLines(cfg.HistoryLines),
	), nil
}

// attachSinks forwards council events to the configured sinks. It returns
// nil when no sink is configured.
func attachSinks(o *council.Orchestrator, cfg *config.Config) (*events.Forwarder, error) {
	var sinks []events.Sink
	if cfg.Events.Log {
		sinks = append(sinks, events.NewLogSink(log.Logger))
	}
	if len(cfg.Events.Brokers) > 0 {
		kafka, err := events.NewKafkaSink(cfg.Events.Brokers, cfg.Events.Topic)
		if err != nil {
			return nil, fmt.Errorf("failed to connect event sink: %w", err)
		}
		sinks = append(sinks, kafka)
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	return events.Attach(o, sinks...), nil
}

func closeSinks(f *events.Forwarder) {
	if f == nil {
		return
	}
	if err := f.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close event sinks")
	}
}

// session bundles a council with everything that must be released after it
type session struct {
	council   *council.Orchestrator
	forwarder *events.Forwarder
}

func openSession(ctx context.Context, c *cli.Command, withSpeech, noPacing bool) (*config.Config, *session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	for _, problem := range cfg.Validate() {
		log.Warn().Str("problem", problem).Msg("Configuration problem")
	}

	gen, err := newGenerator(ctx, cfg, withSpeech)
	if err != nil {
		return nil, nil, err
	}
	o, err := newCouncil(gen, cfg, noPacing)
	if err != nil {
		return nil, nil, err
	}
	f, err := attachSinks(o, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, &session{council: o, forwarder: f}, nil
}

func (s *session) Close() {
	s.council.Wait()
	closeSinks(s.forwarder)
}
