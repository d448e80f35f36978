package voice

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// Player plays clips on the local machine
type Player struct {
	lookPath func(string) (string, error)
}

// NewPlayer creates a player that uses the first audio command found on PATH
func NewPlayer() *Player {
	return &Player{lookPath: exec.LookPath}
}

// playerCommand picks an available audio command for the file
func (p *Player) playerCommand(file string) (string, []string, error) {
	switch {
	case p.available("afplay"):
		// macOS
		return "afplay", []string{file}, nil
	case p.available("aplay"):
		// Linux with ALSA
		return "aplay", []string{"-q", file}, nil
	case p.available("paplay"):
		// Linux with PulseAudio
		return "paplay", []string{file}, nil
	case p.available("ffplay"):
		// Cross-platform with ffmpeg
		return "ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet", file}, nil
	default:
		return "", nil, fmt.Errorf("no audio player found")
	}
}

func (p *Player) available(cmd string) bool {
	_, err := p.lookPath(cmd)
	return err == nil
}

// Play writes the clip to a temporary WAV file and blocks until playback ends
func (p *Player) Play(ctx context.Context, audio *Audio) error {
	if audio.Empty() {
		return nil
	}

	tmpFile, err := os.CreateTemp("", "agora-*.wav")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmpFile.Name())
	}()

	if err := audio.WriteWAV(tmpFile); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	name, args, err := p.playerCommand(tmpFile.Name())
	if err != nil {
		return err
	}

	log.Debug().Str("player", name).Dur("duration", audio.Duration()).Msg("Playing audio")
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to play audio: %w", err)
	}
	return nil
}
