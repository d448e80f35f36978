// Package server is the browser surface of the council: a JSON API, a
// websocket feed of state snapshots and the page that renders them.
package server

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog/log"

	"github.com/daikw/agora/internal/council"
	"github.com/daikw/agora/internal/persona"
)

//go:embed views/*.html
var viewsFS embed.FS

// Council is the part of the orchestrator the server drives
type Council interface {
	Snapshot() council.Snapshot
	BeginAddressed(topic, id string) (*council.Round, error)
	Address(id string) error
	Reset() error
	ReplaceAndAnnounce(ctx context.Context, name, userContext, id string) (persona.Persona, error)
	Subscribe(fn func(council.Event)) (cancel func())
}

// Server serves one council
type Server struct {
	app     *fiber.App
	council Council

	// Rounds outlive the request that started them
	ctx    context.Context
	cancel context.CancelFunc
	rounds sync.WaitGroup
}

// Option configures a Server
type Option func(*serverOptions)

type serverOptions struct {
	requestLog bool
}

// WithRequestLog logs every request through zerolog
func WithRequestLog(enabled bool) Option {
	return func(o *serverOptions) {
		o.requestLog = enabled
	}
}

// New builds the server and its routes
func New(c Council, opts ...Option) (*Server, error) {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		Views:                 html.NewFileSystem(http.FS(views), ".html"),
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	if o.requestLog {
		app.Use(logger.New(logger.Config{Output: log.Logger}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{app: app, council: c, ctx: ctx, cancel: cancel}

	h := &handler{server: s}
	app.Get("/", h.index)

	api := app.Group("/api")
	api.Get("/state", h.state)
	api.Post("/ask", h.ask)
	api.Post("/address", h.address)
	api.Post("/reset", h.reset)
	api.Post("/personas/:id/replace", h.replace)
	api.Get("/messages/:id/audio.wav", h.audio)

	app.Get("/ws", upgradeOnly, websocket.New(h.feed))

	return s, nil
}

// App exposes the fiber app, mostly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown
func (s *Server) Listen(addr string) error {
	log.Info().Str("addr", addr).Msg("Agora server listening")
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests, cancels running rounds and waits for them
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	s.cancel()
	s.rounds.Wait()
	return err
}

// Wait blocks until rounds started through the API have returned
func (s *Server) Wait() {
	s.rounds.Wait()
}

func (s *Server) runRound(round *council.Round) {
	s.rounds.Add(1)
	go func() {
		defer s.rounds.Done()
		if err := round.Run(s.ctx); err != nil {
			log.Warn().Err(err).Str("topic", round.Topic()).Msg("Round failed")
		}
	}()
}

func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
