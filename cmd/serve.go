package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/daikw/agora/internal/mcpserver"
	"github.com/daikw/agora/internal/server"
)

func handleServe(ctx context.Context, c *cli.Command) error {
	cfg, s, err := openSession(ctx, c, true, c.Bool("no-pacing"))
	if err != nil {
		return err
	}
	defer s.Close()

	srv, err := server.New(s.council, server.WithRequestLog(c.Bool("verbose")))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	addr := c.String("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	if err := srv.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// handleMCP serves the council on stdio. Logs already go to stderr, which
// keeps stdout clean for the protocol.
func handleMCP(ctx context.Context, c *cli.Command) error {
	_, s, err := openSession(ctx, c, false, true)
	if err != nil {
		return err
	}
	defer s.Close()

	log.Debug().Msg("Serving council tools on stdio")
	return mcpserver.New(s.council, version).ServeStdio()
}
