package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Best effort; flags and env vars take precedence.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "solagent",
		Usage: "Solana agent service CLI",
		Description: `A command-line tool for driving the solagent service.

Use this CLI to check the agent wallet, swap tokens via Jupiter, transfer
assets, manage validator stake, and query the portfolio service.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			walletCommands(),
			swapCommands(),
			transferCommands(),
			stakeCommands(),
			portfolioCommands(),
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
