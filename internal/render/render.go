// Package render prints council transcripts to a terminal
package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/daikw/agora/internal/council"
	"github.com/daikw/agora/internal/persona"
	"github.com/daikw/agora/internal/transcript"
)

const indent = "    "

// Printer writes messages as styled lines
type Printer struct {
	w       io.Writer
	user    *color.Color
	system  *color.Color
	speaker *color.Color
	verdict *color.Color
	dim     *color.Color
}

// NewPrinter creates a printer. Styling is dropped when plain is set.
func NewPrinter(w io.Writer, plain bool) *Printer {
	p := &Printer{
		w:       w,
		user:    color.New(color.FgCyan, color.Bold),
		system:  color.New(color.FgHiBlack, color.Italic),
		speaker: color.New(color.FgYellow, color.Bold),
		verdict: color.New(color.FgHiYellow, color.Bold, color.Underline),
		dim:     color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.user, p.system, p.speaker, p.verdict, p.dim} {
		if plain {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return p
}

// Transcript prints every message of tr
func (p *Printer) Transcript(tr transcript.Transcript) {
	for _, m := range tr.Messages() {
		p.Message(m)
	}
}

// Message prints one top-level message, with deliberation turns indented
func (p *Printer) Message(m transcript.Message) {
	switch v := m.(type) {
	case transcript.User:
		p.line("", p.user, v.SenderName, v.Text)
	case transcript.System:
		p.narration("", v.Text)
	case transcript.Utterance:
		p.utterance("", v)
	case transcript.Deliberation:
		p.dim.Fprintf(p.w, "%s [%s]\n", v.Text, v.Status)
		for _, turn := range v.Turns {
			p.Turn(turn)
		}
	}
}

// Turn prints a nested deliberation turn
func (p *Printer) Turn(m transcript.Message) {
	switch v := m.(type) {
	case transcript.Utterance:
		p.utterance(indent, v)
	default:
		p.narration(indent, v.Meta().Text)
	}
}

func (p *Printer) utterance(prefix string, u transcript.Utterance) {
	if !u.Verdict {
		name := u.SenderName
		if u.Addressed {
			name += " (addressed)"
		}
		p.line(prefix, p.speaker, name, u.Text)
		return
	}

	fmt.Fprintln(p.w)
	p.verdict.Fprintf(p.w, "%sVerdict of %s\n", prefix, u.SenderName)
	fmt.Fprintf(p.w, "%s%s\n", prefix, u.Text)
	if u.Summary != "" {
		p.dim.Fprintf(p.w, "%sSummary: %s\n", prefix, u.Summary)
	}
}

func (p *Printer) line(prefix string, c *color.Color, name, text string) {
	fmt.Fprint(p.w, prefix)
	c.Fprintf(p.w, "%s:", name)
	fmt.Fprintf(p.w, " %s\n", text)
}

func (p *Printer) narration(prefix, text string) {
	p.system.Fprintf(p.w, "%s%s\n", prefix, text)
}

// Roster prints the council members, marking the addressee
func (p *Printer) Roster(members []persona.Persona, addressee string) {
	for _, m := range members {
		marker := "  "
		if m.ID == addressee {
			marker = "> "
		}
		fmt.Fprint(p.w, marker)
		p.speaker.Fprint(p.w, m.Name)
		fmt.Fprintf(p.w, " (%s) [%s]\n", m.Archetype, m.ID)
		if m.Quote != "" {
			p.dim.Fprintf(p.w, "    %q\n", m.Quote)
		}
	}
}

// Follow returns a subscriber printing messages as they are recorded, so a
// round can be watched live
func (p *Printer) Follow() func(council.Event) {
	return func(e council.Event) {
		switch e.Type {
		case council.EventMessageAppended:
			if d, ok := e.Message.(transcript.Deliberation); ok {
				p.dim.Fprintf(p.w, "%s\n", d.Text)
				return
			}
			p.Message(e.Message)
		case council.EventTurnAppended:
			p.Turn(e.Message)
		}
	}
}

// Topics prints the suggested questions as a numbered list
func (p *Printer) Topics(topics []string) {
	for i, t := range topics {
		fmt.Fprintf(p.w, "%d. %s\n", i+1, t)
	}
}
