package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"solagent/client"
)

func stakeCommands() *cli.Command {
	return &cli.Command{
		Name:  "stake",
		Usage: "Validator staking commands",
		Subcommands: []*cli.Command{
			stakeDelegateCommand(),
			stakeListCommand(),
			stakeDeactivateCommand(),
			stakeWithdrawCommand(),
		},
	}
}

func stakeDelegateCommand() *cli.Command {
	return &cli.Command{
		Name:      "delegate",
		Usage:     "Delegate SOL to a validator via a new stake account",
		ArgsUsage: "VALIDATOR AMOUNT_SOL",
		Flags:     serverFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("validator and amount are required")
			}

			amount, err := parseFloatArg(c.Args().Get(1))
			if err != nil {
				return err
			}

			cl := newClient(c)
			res, err := cl.Stake(c.Context, client.StakeRequest{
				Validator: c.Args().Get(0),
				AmountSOL: amount,
			})
			if err != nil {
				return fmt.Errorf("delegation failed: %w", err)
			}

			return emit(c, res, func() {
				fmt.Printf("Signature:     %s\n", res.Signature)
				fmt.Printf("Stake account: %s\n", res.StakeAccount)
				fmt.Printf("Validator:     %s\n", res.Validator)
				fmt.Printf("Amount:        %.9f SOL\n", res.AmountSOL)
				fmt.Printf("Explorer:      %s\n", res.ExplorerURL)
			})
		},
	}
}

func stakeListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the agent wallet's stake accounts",
		Flags: serverFlags(),
		Action: func(c *cli.Context) error {
			cl := newClient(c)
			res, err := cl.StakeAccounts(c.Context)
			if err != nil {
				return fmt.Errorf("failed to list stake accounts: %w", err)
			}

			return emit(c, res, func() {
				if res.Count == 0 {
					fmt.Println("No stake accounts found.")
					return
				}
				for _, acct := range res.Accounts {
					fmt.Printf("%s  %.9f SOL  %s", acct.Address, acct.SOL, acct.State)
					if acct.Validator != nil {
						fmt.Printf("  -> %s", *acct.Validator)
					}
					fmt.Println()
				}
			})
		},
	}
}

func stakeDeactivateCommand() *cli.Command {
	return &cli.Command{
		Name:      "deactivate",
		Usage:     "Deactivate a stake account",
		ArgsUsage: "STAKE_ACCOUNT",
		Flags:     serverFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("stake account address is required")
			}

			cl := newClient(c)
			res, err := cl.Unstake(c.Context, c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("deactivation failed: %w", err)
			}

			return emit(c, res, func() {
				fmt.Printf("Signature:     %s\n", res.Signature)
				fmt.Printf("Stake account: %s\n", res.StakeAccount)
				fmt.Printf("Note:          %s\n", res.Note)
				fmt.Printf("Explorer:      %s\n", res.ExplorerURL)
			})
		},
	}
}

func stakeWithdrawCommand() *cli.Command {
	return &cli.Command{
		Name:      "withdraw",
		Usage:     "Withdraw a deactivated stake account's balance",
		ArgsUsage: "STAKE_ACCOUNT",
		Flags:     serverFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("stake account address is required")
			}

			cl := newClient(c)
			res, err := cl.Withdraw(c.Context, c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("withdrawal failed: %w", err)
			}

			return emit(c, res, func() {
				fmt.Printf("Signature:     %s\n", res.Signature)
				fmt.Printf("Stake account: %s\n", res.StakeAccount)
				fmt.Printf("Withdrawn:     %.9f SOL\n", res.SOL)
				fmt.Printf("Explorer:      %s\n", res.ExplorerURL)
			})
		},
	}
}

func parseFloatArg(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid amount %q: must be a positive number", s)
	}
	return v, nil
}

func parseUintArg(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid amount %q: must be a positive integer", s)
	}
	return v, nil
}
