package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/daikw/agora/internal/voice"
	"github.com/daikw/agora/internal/voice/provider"
)

func handleSpeak(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	speech := speechConfig(cfg)
	if name := c.String("provider"); name != "" {
		speech.Provider = name
	}

	synth, err := provider.New(ctx, speech)
	if err != nil {
		return fmt.Errorf("failed to create speech provider: %w", err)
	}
	if synth == nil {
		return fmt.Errorf("speech is disabled (provider %q), available: %s",
			speech.Provider, strings.Join(provider.ListProviders(), ", "))
	}
	if closer, ok := synth.Provider().(io.Closer); ok {
		defer func() {
			_ = closer.Close()
		}()
	}

	if c.Bool("list-voices") {
		voices, err := synth.Provider().ListVoices(ctx)
		if err != nil {
			return fmt.Errorf("failed to list voices: %w", err)
		}
		if len(voices) == 0 {
			fmt.Println("No voices available")
			return nil
		}

		fmt.Printf("Available voices for provider '%s':\n", synth.Provider().Name())
		for _, v := range voices {
			fmt.Printf("  - %s (%s) - %s\n", v.ID, v.Language, v.Description)
		}
		return nil
	}

	text, err := speakText(c)
	if err != nil {
		return err
	}

	log.Debug().Str("provider", synth.Provider().Name()).Str("voice", c.String("voice")).Msg("Synthesizing")
	clip, err := synth.Synthesize(ctx, text, c.String("voice"))
	if err != nil {
		return fmt.Errorf("failed to synthesize: %w", err)
	}

	if path := c.String("output"); path != "" {
		return writeWAV(path, clip)
	}
	return voice.NewPlayer().Play(ctx, clip)
}

// speakText reads the arguments, or stdin when there are none
func speakText(c *cli.Command) (string, error) {
	text := strings.Join(c.Args().Slice(), " ")
	if text == "" {
		stat, _ := os.Stdin.Stat()
		if stat != nil && (stat.Mode()&os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(bufio.NewReader(os.Stdin))
			if err != nil {
				return "", fmt.Errorf("failed to read stdin: %w", err)
			}
			text = string(data)
		}
	}

	text = voice.StripEmphasis(text)
	if text == "" {
		return "", fmt.Errorf("no text to speak")
	}
	return text, nil
}
