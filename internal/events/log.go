package events

import (
	"github.com/rs/zerolog"
)

// LogSink writes each record as a structured log line
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink writing to logger
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(r Record) error {
	ev := s.logger.Info().
		Str("type", r.Type).
		Str("phase", r.Phase).
		Time("at", r.At)
	if r.MessageID != "" {
		ev = ev.Str("message_id", r.MessageID).
			Str("kind", r.Kind).
			Str("sender_id", r.SenderID).
			Str("sender_name", r.SenderName).
			Str("text", r.Text)
	}
	ev.Msg("Council event")
	return nil
}

func (s *LogSink) Close() error {
	return nil
}
