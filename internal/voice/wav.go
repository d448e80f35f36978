package voice

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const wavHeaderSize = 44

// WriteWAV writes the clip as a canonical 16-bit PCM WAV file
func (a *Audio) WriteWAV(w io.Writer) error {
	if a.Empty() {
		return fmt.Errorf("audio is empty")
	}

	channels := a.channels()
	dataSize := uint32(len(a.PCM))
	byteRate := uint32(a.SampleRate * channels * bytesPerSample)
	blockAlign := uint16(channels * bytesPerSample)

	header := make([]byte, 0, wavHeaderSize)
	buf := bytes.NewBuffer(header)
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36)+dataSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(a.SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, byteRate)
	_ = binary.Write(buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(buf, binary.LittleEndian, uint16(bytesPerSample*8))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataSize)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write wav header: %w", err)
	}
	if _, err := w.Write(a.PCM); err != nil {
		return fmt.Errorf("failed to write wav data: %w", err)
	}
	return nil
}

// WAV returns the clip encoded as a WAV file
func (a *Audio) WAV() ([]byte, error) {
	var buf bytes.Buffer
	if err := a.WriteWAV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseWAV extracts the PCM payload of a 16-bit PCM WAV file. Services that
// answer LINEAR16 with a RIFF header go through here.
func ParseWAV(data []byte) (*Audio, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a wav file")
	}

	var (
		sampleRate int
		channels   int
		bits       int
	)
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("wav fmt chunk too short")
			}
			if format := binary.LittleEndian.Uint16(data[body:]); format != 1 {
				return nil, fmt.Errorf("unsupported wav format %d", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bits = int(binary.LittleEndian.Uint16(data[body+14:]))
		case "data":
			if bits != 0 && bits != bytesPerSample*8 {
				return nil, fmt.Errorf("unsupported wav bit depth %d", bits)
			}
			pcm := append([]byte(nil), data[body:body+size]...)
			return NewAudio(pcm, sampleRate, channels), nil
		}

		// Chunks are word aligned
		offset = body + size + size%2
	}

	return nil, fmt.Errorf("wav data chunk not found")
}
