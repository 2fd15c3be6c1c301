package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
)

func portfolioCommands() *cli.Command {
	return &cli.Command{
		Name:  "portfolio",
		Usage: "Portfolio service passthrough commands",
		Subcommands: []*cli.Command{
			portfolioShowCommand(),
			portfolioQuoteCommand(),
			portfolioSwapCommand(),
			portfolioPriceCommand(),
			portfolioOrdersCommand(),
			portfolioOrderCreateCommand(),
			portfolioOrderCancelCommand(),
		},
	}
}

func portfolioShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show the portfolio breakdown for a wallet address",
		ArgsUsage: "WALLET_ADDRESS",
		Flags:     serverFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			cl := newClient(c)
			body, err := cl.Portfolio(c.Context, c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("failed to fetch portfolio: %w", err)
			}
			return emitRaw(c, body)
		},
	}
}

func portfolioQuoteCommand() *cli.Command {
	return &cli.Command{
		Name:      "quote",
		Usage:     "Request a swap quote from the portfolio service (quote body as a JSON argument)",
		ArgsUsage: "QUOTE_JSON",
		Flags:     serverFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("quote JSON is required")
			}

			var quote map[string]interface{}
			if err := json.Unmarshal([]byte(c.Args().Get(0)), &quote); err != nil {
				return fmt.Errorf("invalid quote JSON: %w", err)
			}

			cl := newClient(c)
			body, err := cl.PortfolioQuote(c.Context, quote)
			if err != nil {
				return fmt.Errorf("failed to fetch quote: %w", err)
			}
			return emitRaw(c, body)
		},
	}
}

func portfolioSwapCommand() *cli.Command {
	return &cli.Command{
		Name:      "swap",
		Usage:     "Execute a swap through the portfolio service (swap body as a JSON argument)",
		ArgsUsage: "SWAP_JSON",
		Flags:     serverFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("swap JSON is required")
			}

			var swapBody map[string]interface{}
			if err := json.Unmarshal([]byte(c.Args().Get(0)), &swapBody); err != nil {
				return fmt.Errorf("invalid swap JSON: %w", err)
			}

			cl := newClient(c)
			body, err := cl.PortfolioSwap(c.Context, swapBody)
			if err != nil {
				return fmt.Errorf("failed to execute swap: %w", err)
			}
			return emitRaw(c, body)
		},
	}
}

func portfolioPriceCommand() *cli.Command {
	return &cli.Command{
		Name:      "price",
		Usage:     "Fetch portfolio-service prices for one or more mints",
		ArgsUsage: "MINT [MINT...]",
		Flags:     serverFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("at least one mint is required")
			}

			cl := newClient(c)
			if c.NArg() == 1 {
				body, err := cl.PortfolioPrice(c.Context, c.Args().Get(0))
				if err != nil {
					return fmt.Errorf("failed to fetch price: %w", err)
				}
				return emitRaw(c, body)
			}

			body, err := cl.PortfolioPrices(c.Context, c.Args().Slice())
			if err != nil {
				return fmt.Errorf("failed to fetch prices: %w", err)
			}
			return emitRaw(c, body)
		},
	}
}

func portfolioOrdersCommand() *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "List the agent wallet's open limit orders",
		Flags: serverFlags(),
		Action: func(c *cli.Context) error {
			cl := newClient(c)
			body, err := cl.ListLimitOrders(c.Context)
			if err != nil {
				return fmt.Errorf("failed to list limit orders: %w", err)
			}
			return emitRaw(c, body)
		},
	}
}

func portfolioOrderCreateCommand() *cli.Command {
	return &cli.Command{
		Name:      "order-create",
		Usage:     "Place a limit order (order body as a JSON argument)",
		ArgsUsage: "ORDER_JSON",
		Flags:     serverFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("order JSON is required")
			}

			var order map[string]interface{}
			if err := json.Unmarshal([]byte(c.Args().Get(0)), &order); err != nil {
				return fmt.Errorf("invalid order JSON: %w", err)
			}

			cl := newClient(c)
			body, err := cl.CreateLimitOrder(c.Context, order)
			if err != nil {
				return fmt.Errorf("failed to create limit order: %w", err)
			}
			return emitRaw(c, body)
		},
	}
}

func portfolioOrderCancelCommand() *cli.Command {
	return &cli.Command{
		Name:      "order-cancel",
		Usage:     "Cancel a limit order by id",
		ArgsUsage: "ORDER_ID",
		Flags:     serverFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("order id is required")
			}

			cl := newClient(c)
			body, err := cl.CancelLimitOrder(c.Context, c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("failed to cancel limit order: %w", err)
			}
			return emitRaw(c, body)
		},
	}
}

// emitRaw prints an upstream JSON payload, honoring the --jq flag.
func emitRaw(c *cli.Context, body json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		// Not JSON; print as-is.
		fmt.Println(string(body))
		return nil
	}
	return emit(c, v, nil)
}
