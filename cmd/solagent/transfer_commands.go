package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"solagent/client"
)

func transferCommands() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Asset transfer commands",
		Subcommands: []*cli.Command{
			transferSOLCommand(),
			transferTokenCommand(),
		},
	}
}

func transferSOLCommand() *cli.Command {
	return &cli.Command{
		Name:      "sol",
		Usage:     "Send SOL to an address",
		ArgsUsage: "RECIPIENT AMOUNT_SOL",
		Flags:     serverFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("recipient and amount are required")
			}

			amount, err := parseFloatArg(c.Args().Get(1))
			if err != nil {
				return err
			}

			cl := newClient(c)
			res, err := cl.Transfer(c.Context, client.TransferRequest{
				To:        c.Args().Get(0),
				AmountSOL: amount,
			})
			if err != nil {
				return fmt.Errorf("transfer failed: %w", err)
			}

			return emit(c, res, func() {
				fmt.Printf("Signature: %s\n", res.Signature)
				fmt.Printf("Sent:      %s SOL to %s\n", res.Amount, res.To)
				fmt.Printf("Explorer:  %s\n", res.ExplorerURL)
			})
		},
	}
}

func transferTokenCommand() *cli.Command {
	return &cli.Command{
		Name:      "token",
		Usage:     "Send an SPL token to an address (amount in base units)",
		ArgsUsage: "RECIPIENT AMOUNT ASSET",
		Flags:     serverFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 3 {
				return fmt.Errorf("recipient, amount, and asset are required")
			}

			amount, err := parseUintArg(c.Args().Get(1))
			if err != nil {
				return err
			}

			cl := newClient(c)
			res, err := cl.Transfer(c.Context, client.TransferRequest{
				To:     c.Args().Get(0),
				Amount: amount,
				Asset:  c.Args().Get(2),
			})
			if err != nil {
				return fmt.Errorf("transfer failed: %w", err)
			}

			return emit(c, res, func() {
				fmt.Printf("Signature: %s\n", res.Signature)
				fmt.Printf("Sent:      %s %s to %s\n", res.Amount, res.Asset, res.To)
				fmt.Printf("Explorer:  %s\n", res.ExplorerURL)
			})
		},
	}
}
