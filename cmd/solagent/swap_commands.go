package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"solagent/client"
)

func swapCommands() *cli.Command {
	return &cli.Command{
		Name:  "swap",
		Usage: "Jupiter swap commands",
		Subcommands: []*cli.Command{
			swapQuoteCommand(),
			swapExecuteCommand(),
			swapPriceCommand(),
		},
	}
}

func swapFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    "Input asset (symbol or mint address)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    "Output asset (symbol or mint address)",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:     "amount",
			Aliases:  []string{"a"},
			Usage:    "Amount in the input asset's base units (lamports for SOL)",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "slippage-bps",
			Usage: "Slippage tolerance in basis points (0 = server default)",
		},
	}
	return append(flags, serverFlags()...)
}

func swapQuoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "quote",
		Usage: "Fetch a swap quote without executing",
		Flags: swapFlags(),
		Action: func(c *cli.Context) error {
			cl := newClient(c)
			quote, err := cl.Quote(c.Context, c.String("input"), c.String("output"), c.Uint64("amount"), c.Int("slippage-bps"))
			if err != nil {
				return fmt.Errorf("failed to fetch quote: %w", err)
			}

			return emit(c, quote, func() {
				fmt.Printf("Input:        %s (%s base units)\n", quote.InputMint, quote.InAmount)
				fmt.Printf("Output:       %s (%s base units)\n", quote.OutputMint, quote.OutAmount)
				fmt.Printf("Price impact: %s%%\n", quote.PriceImpactPct)
			})
		},
	}
}

func swapExecuteCommand() *cli.Command {
	return &cli.Command{
		Name:  "execute",
		Usage: "Execute a swap and wait for on-chain confirmation",
		Flags: swapFlags(),
		Action: func(c *cli.Context) error {
			cl := newClient(c)
			res, err := cl.Swap(c.Context, client.SwapRequest{
				Input:       c.String("input"),
				Output:      c.String("output"),
				Amount:      c.Uint64("amount"),
				SlippageBps: c.Int("slippage-bps"),
			})
			if err != nil {
				return fmt.Errorf("swap failed: %w", err)
			}

			return emit(c, res, func() {
				fmt.Printf("Signature: %s\n", res.Signature)
				fmt.Printf("In:        %s %s\n", res.InAmount, res.InputMint)
				fmt.Printf("Out:       %s %s\n", res.OutAmount, res.OutputMint)
				fmt.Printf("Explorer:  %s\n", res.ExplorerURL)
			})
		},
	}
}

func swapPriceCommand() *cli.Command {
	return &cli.Command{
		Name:      "price",
		Usage:     "Show an asset's indicative USDC price",
		ArgsUsage: "ASSET",
		Flags:     serverFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("asset is required")
			}

			cl := newClient(c)
			price, err := cl.Price(c.Context, c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("failed to fetch price: %w", err)
			}

			return emit(c, price, func() {
				fmt.Printf("%s: %.6f USDC\n", price.Asset, price.PriceUSDC)
			})
		},
	}
}
