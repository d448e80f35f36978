package voice

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"
)

// PCM defaults of the speech contract: mono, 16-bit little endian, 24 kHz
const (
	DefaultSampleRate = 24000
	DefaultChannels   = 1
	bytesPerSample    = 2
)

// Audio is a clip of raw signed 16-bit little endian PCM
type Audio struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// NewAudio wraps PCM bytes, filling in contract defaults for zero values
func NewAudio(pcm []byte, sampleRate, channels int) *Audio {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if channels <= 0 {
		channels = DefaultChannels
	}
	return &Audio{PCM: pcm, SampleRate: sampleRate, Channels: channels}
}

// DecodeBase64 decodes a base64 PCM payload as delivered by the speech service
func DecodeBase64(data string, sampleRate int) (*Audio, error) {
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio payload: %w", err)
	}
	return NewAudio(pcm, sampleRate, DefaultChannels), nil
}

// Base64 encodes the PCM bytes
func (a *Audio) Base64() string {
	if a == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(a.PCM)
}

// Empty reports whether the clip holds no samples
func (a *Audio) Empty() bool {
	return a == nil || len(a.PCM) < bytesPerSample
}

// Frames returns the number of sample frames
func (a *Audio) Frames() int {
	if a.Empty() {
		return 0
	}
	return len(a.PCM) / (bytesPerSample * a.channels())
}

func (a *Audio) channels() int {
	if a.Channels <= 0 {
		return DefaultChannels
	}
	return a.Channels
}

// Duration returns the playback length of the clip
func (a *Audio) Duration() time.Duration {
	if a.Empty() || a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(a.Frames()) * time.Second / time.Duration(a.SampleRate)
}

// Samples decodes the clip into normalized float samples in [-1, 1),
// one slice per channel
func (a *Audio) Samples() [][]float32 {
	frames := a.Frames()
	if frames == 0 {
		return nil
	}

	channels := a.channels()
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			offset := (i*channels + ch) * bytesPerSample
			sample := int16(binary.LittleEndian.Uint16(a.PCM[offset:]))
			out[ch][i] = float32(sample) / 32768.0
		}
	}
	return out
}

type audioJSON struct {
	Data       string `json:"data"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// MarshalJSON emits the clip as base64 PCM with its format
func (a Audio) MarshalJSON() ([]byte, error) {
	return json.Marshal(audioJSON{
		Data:       base64.StdEncoding.EncodeToString(a.PCM),
		SampleRate: a.SampleRate,
		Channels:   a.Channels,
	})
}

// UnmarshalJSON reads the format written by MarshalJSON
func (a *Audio) UnmarshalJSON(data []byte) error {
	var raw audioJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := DecodeBase64(raw.Data, raw.SampleRate)
	if err != nil {
		return err
	}
	if raw.Channels > 0 {
		decoded.Channels = raw.Channels
	}
	*a = *decoded
	return nil
}
