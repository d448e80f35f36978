// Package mcpserver exposes the council as Model Context Protocol tools
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/daikw/agora/internal/council"
	"github.com/daikw/agora/internal/persona"
	"github.com/daikw/agora/internal/transcript"
)

// Council is the part of the orchestrator the tools drive
type Council interface {
	Snapshot() council.Snapshot
	SubmitAddressed(ctx context.Context, topic, id string) error
	Reset() error
	ReplaceAndAnnounce(ctx context.Context, name, userContext, id string) (persona.Persona, error)
}

// Server wraps an MCP server bound to one council
type Server struct {
	council Council
	mcp     *server.MCPServer
}

// New registers the council tools
func New(c Council, version string) *Server {
	s := &Server{
		council: c,
		mcp:     server.NewMCPServer("agora", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("ask_council",
		mcp.WithDescription("Put a dilemma to the council of philosophers. They give opinions, debate, and one of them delivers a verdict."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("The question or dilemma")),
		mcp.WithString("addressee", mcp.Description("Id of the philosopher who must deliver the verdict")),
	), s.handleAsk)

	s.mcp.AddTool(mcp.NewTool("list_council",
		mcp.WithDescription("List the philosophers currently seated on the council"),
	), s.handleList)

	s.mcp.AddTool(mcp.NewTool("summon_philosopher",
		mcp.WithDescription("Replace a council member with a newly generated philosopher"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Who to summon")),
		mcp.WithString("replace_id", mcp.Required(), mcp.Description("Id of the member to replace")),
		mcp.WithString("context", mcp.Description("Optional guidance for the new persona")),
	), s.handleSummon)

	s.mcp.AddTool(mcp.NewTool("reset_council",
		mcp.WithDescription("Clear the transcript and start a fresh session"),
	), s.handleReset)

	return s
}

// ServeStdio serves the tools over stdin and stdout until EOF
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

type verdictResult struct {
	Speaker   string   `json:"speaker"`
	SpeakerID string   `json:"speaker_id"`
	Text      string   `json:"text"`
	Summary   string   `json:"summary,omitempty"`
	Opinions  []spoken `json:"opinions,omitempty"`
	Debate    []spoken `json:"debate,omitempty"`
}

type spoken struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type member struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Archetype string `json:"archetype"`
	Quote     string `json:"quote"`
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := req.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.council.SubmitAddressed(ctx, topic, req.GetString("addressee", "")); err != nil {
		log.Warn().Err(err).Msg("ask_council failed")
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := verdictOf(s.council.Snapshot().Transcript)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// verdictOf reads the last round out of tr
func verdictOf(tr transcript.Transcript) (verdictResult, error) {
	msgs := tr.Messages()
	if len(msgs) < 2 {
		return verdictResult{}, fmt.Errorf("no verdict recorded")
	}

	last := msgs[len(msgs)-1]
	h := last.Meta()
	result := verdictResult{Speaker: h.SenderName, SpeakerID: h.SenderID, Text: h.Text}
	if u, ok := last.(transcript.Utterance); ok {
		result.Summary = u.Summary
	}

	d, ok := msgs[len(msgs)-2].(transcript.Deliberation)
	if !ok {
		return result, nil
	}
	debating := false
	for _, m := range d.Turns {
		u, ok := m.(transcript.Utterance)
		if !ok {
			debating = debating || m.Meta().Text == council.DebateOpeningText
			continue
		}
		line := spoken{Speaker: u.SenderName, Text: u.Text}
		if debating {
			result.Debate = append(result.Debate, line)
		} else {
			result.Opinions = append(result.Opinions, line)
		}
	}
	return result, nil
}

func (s *Server) handleList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.council.Snapshot()
	members := make([]member, 0, len(snap.Roster))
	for _, p := range snap.Roster {
		members = append(members, member{ID: p.ID, Name: p.Name, Archetype: p.Archetype, Quote: p.Quote})
	}
	return jsonResult(members)
}

func (s *Server) handleSummon(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("replace_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p, err := s.council.ReplaceAndAnnounce(ctx, name, req.GetString("context", ""), id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(member{ID: p.ID, Name: p.Name, Archetype: p.Archetype, Quote: p.Quote})
}

func (s *Server) handleReset(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.council.Reset(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("The council is reassembled."), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
