package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var (
	version  = "dev"
	revision = "none"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.Command{
		Name:  "agora",
		Usage: "Agora - put your dilemmas to a council of philosophers",
		Description: `agora seats a council of philosopher personas. Each one gives an opinion
on your question, they debate, and one of them delivers a spoken verdict.
The council can be used from the terminal, a browser or an MCP client.`,
		Version: fmt.Sprintf("%s (rev: %s)", version, revision),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable verbose logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file (default: .agora/config.json, then ~/.agora/config.json)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Ask the council a question and watch the deliberation",
				Action:    handleAsk,
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "address",
						Aliases: []string{"a"},
						Usage:   "Id or name of the philosopher who must deliver the verdict",
					},
					&cli.BoolFlag{
						Name:  "speak",
						Usage: "Play the verdict aloud",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the spoken verdict to a WAV file",
					},
					&cli.BoolFlag{
						Name:  "no-pacing",
						Usage: "Reveal opinions and debate turns without delays",
					},
					&cli.BoolFlag{
						Name:  "plain",
						Usage: "Disable colored output",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the final transcript as JSON instead of following the round",
					},
				},
			},
			{
				Name:    "council",
				Aliases: []string{"ls"},
				Usage:   "List the seated philosophers",
				Action:  handleCouncil,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "plain",
						Usage: "Disable colored output",
					},
				},
			},
			{
				Name:   "topics",
				Usage:  "Show suggested questions",
				Action: handleTopics,
			},
			{
				Name:      "summon",
				Usage:     "Generate a new philosopher and seat them in place of another",
				Action:    handleSummon,
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "replace",
						Aliases:  []string{"r"},
						Usage:    "Id of the philosopher to replace",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "context",
						Usage: "Extra guidance for the generated persona",
					},
					&cli.StringFlag{
						Name:  "roster",
						Usage: "Roster file to update (default: rosterFile from config)",
					},
				},
			},
			{
				Name:      "speak",
				Usage:     "Speak text in a council voice",
				Action:    handleSpeak,
				ArgsUsage: "<text>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "voice",
						Usage: "Council voice: Puck, Charon, Kore, Fenrir, Zephyr",
						Value: "Puck",
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Speech provider: gemini, openai, polly, gcp (default: from config)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write a WAV file instead of playing",
					},
					&cli.BoolFlag{
						Name:  "list-voices",
						Usage: "List the voices of the speech provider",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the council in the browser",
				Action: handleServe,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (default: server.addr from config)",
					},
					&cli.BoolFlag{
						Name:  "no-pacing",
						Usage: "Reveal opinions and debate turns without delays",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the council as MCP tools over stdio",
				Action: handleMCP,
			},
			{
				Name:  "config",
				Usage: "Manage configuration",
				Commands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Show the effective configuration (secrets masked)",
						Action: handleConfigShow,
					},
					{
						Name:   "validate",
						Usage:  "Check the configuration for problems",
						Action: handleConfigValidate,
					},
					{
						Name:   "init",
						Usage:  "Write an example configuration file",
						Action: handleConfigInit,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:    "global",
								Aliases: []string{"g"},
								Usage:   "Write ~/.agora/config.json instead of the project file",
							},
						},
					},
				},
			},
		},
		Before: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Failed to run application")
	}
}
