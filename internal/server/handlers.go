package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog/log"

	"github.com/daikw/agora/internal/council"
	"github.com/daikw/agora/internal/transcript"
)

type handler struct {
	server *Server
}

type askRequest struct {
	Topic     string `json:"topic"`
	Addressee string `json:"addressee"`
}

type addressRequest struct {
	ID string `json:"id"`
}

type replaceRequest struct {
	Name    string `json:"name"`
	Context string `json:"context"`
}

func (h *handler) index(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{
		"Title":  "The Agora",
		"Topics": council.SuggestedTopics,
	})
}

func (h *handler) state(c *fiber.Ctx) error {
	return c.JSON(h.server.council.Snapshot())
}

func (h *handler) ask(c *fiber.Ctx) error {
	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	round, err := h.server.council.BeginAddressed(req.Topic, req.Addressee)
	if err != nil {
		return councilError(c, err)
	}
	h.server.runRound(round)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"topic":     round.Topic(),
		"addressee": round.Addressee(),
	})
}

func (h *handler) address(c *fiber.Ctx) error {
	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.server.council.Address(req.ID); err != nil {
		return councilError(c, err)
	}
	return c.JSON(h.server.council.Snapshot())
}

func (h *handler) reset(c *fiber.Ctx) error {
	if err := h.server.council.Reset(); err != nil {
		return councilError(c, err)
	}
	return c.JSON(h.server.council.Snapshot())
}

func (h *handler) replace(c *fiber.Ctx) error {
	var req replaceRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return jsonError(c, fiber.StatusBadRequest, "name is required")
	}

	p, err := h.server.council.ReplaceAndAnnounce(c.UserContext(), name, req.Context, c.Params("id"))
	if errors.Is(err, council.ErrSummonFailed) {
		return jsonError(c, fiber.StatusBadGateway, fmt.Sprintf("could not summon %s", name))
	}
	if err != nil {
		return councilError(c, err)
	}
	return c.JSON(p)
}

func (h *handler) audio(c *fiber.Ctx) error {
	m, ok := h.server.council.Snapshot().Transcript.Find(c.Params("id"))
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "message not found")
	}
	u, ok := m.(transcript.Utterance)
	if !ok || u.Audio.Empty() {
		return jsonError(c, fiber.StatusNotFound, "message has no audio")
	}

	data, err := u.Audio.WAV()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	c.Set(fiber.HeaderContentType, "audio/wav")
	return c.Send(data)
}

// feed pushes the current snapshot on connect and after every change.
// Changes that arrive while a write is in flight are coalesced.
func (h *handler) feed(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	changed := make(chan struct{}, 1)
	cancel := h.server.council.Subscribe(func(council.Event) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(h.server.council.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-h.server.ctx.Done():
			return
		case <-changed:
			if err := conn.WriteJSON(h.server.council.Snapshot()); err != nil {
				log.Debug().Err(err).Msg("Websocket client went away")
				return
			}
		}
	}
}

func jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func councilError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, council.ErrBusy), errors.Is(err, council.ErrNeedsReset):
		return jsonError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, council.ErrEmptyTopic):
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, council.ErrUnknownPersona):
		return jsonError(c, fiber.StatusNotFound, err.Error())
	default:
		log.Error().Err(err).Msg("Council request failed")
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}
}
