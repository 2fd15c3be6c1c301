package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"solagent/service/wallet"
)

func walletCommands() *cli.Command {
	return &cli.Command{
		Name:  "wallet",
		Usage: "Agent wallet commands",
		Subcommands: []*cli.Command{
			walletBalanceCommand(),
			walletAddressCommand(),
			walletNewCommand(),
		},
	}
}

func walletBalanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "Show the agent wallet's SOL balance",
		Flags: serverFlags(),
		Action: func(c *cli.Context) error {
			cl := newClient(c)
			bal, err := cl.Balance(c.Context)
			if err != nil {
				return fmt.Errorf("failed to fetch balance: %w", err)
			}

			return emit(c, bal, func() {
				fmt.Printf("Address:  %s\n", bal.Address)
				fmt.Printf("Balance:  %.9f SOL (%d lamports)\n", bal.SOL, bal.Lamports)
			})
		},
	}
}

func walletAddressCommand() *cli.Command {
	return &cli.Command{
		Name:  "address",
		Usage: "Print the address of a local keypair file",
		Flags: []cli.Flag{
			keypairFlag(),
		},
		Action: func(c *cli.Context) error {
			w, err := wallet.Load(c.String("keypair"))
			if err != nil {
				return fmt.Errorf("failed to load keypair: %w", err)
			}
			fmt.Println(w.Address())
			return nil
		},
	}
}

func walletNewCommand() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Generate a new keypair file",
		Flags: []cli.Flag{
			keypairFlag(),
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing keypair file",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.String("keypair")
			if _, err := os.Stat(path); err == nil && !c.Bool("force") {
				return fmt.Errorf("keypair file %s already exists (use --force to overwrite)", path)
			}

			w := wallet.Generate()
			if err := w.Save(path); err != nil {
				return fmt.Errorf("failed to save keypair: %w", err)
			}

			fmt.Printf("Wrote keypair to %s\n", path)
			fmt.Printf("Address: %s\n", w.Address())
			return nil
		},
	}
}

func keypairFlag() cli.Flag {
	home, _ := os.UserHomeDir()
	return &cli.StringFlag{
		Name:    "keypair",
		Aliases: []string{"k"},
		Value:   filepath.Join(home, ".config", "solana", "id.json"),
		Usage:   "Path to the keypair file",
		EnvVars: []string{"KEYPAIR_PATH"},
	}
}
