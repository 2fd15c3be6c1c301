package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"solagent/client"
)

// serverFlags are shared by every command that talks to the HTTP API.
func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Value:   "http://localhost:8080",
			Usage:   "HTTP server URL",
			EnvVars: []string{"SOLAGENT_SERVER_URL"},
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output as JSON",
		},
		&cli.StringFlag{
			Name:  "jq",
			Usage: "jq expression applied to the JSON output",
		},
	}
}

func newClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))
	return client.NewClient(c.String("server"), nil, logger)
}

// emit prints v according to the output flags. A --jq expression wins over
// --json; with neither set, human is called for plain-text output.
func emit(c *cli.Context, v interface{}, human func()) error {
	if filter := c.String("jq"); filter != "" {
		return emitJQ(filter, v)
	}
	if c.Bool("json") || human == nil {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}
	human()
	return nil
}

// emitJQ runs a jq expression over v's JSON form and prints each result.
func emitJQ(filter string, v interface{}) error {
	query, err := gojq.Parse(filter)
	if err != nil {
		return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	// Round-trip through JSON so gojq sees plain maps and slices.
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("failed to unmarshal output: %w", err)
	}

	iter := code.Run(input)
	for {
		result, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := result.(error); isErr {
			return fmt.Errorf("jq filter failed: %w", err)
		}
		if s, isStr := result.(string); isStr {
			fmt.Println(s)
			continue
		}
		out, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal jq result: %w", err)
		}
		fmt.Println(string(out))
	}
	return nil
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check server health",
		Flags: serverFlags(),
		Action: func(c *cli.Context) error {
			resp, err := http.Get(c.String("server") + "/health")
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server unhealthy: %d %s", resp.StatusCode, string(body))
			}
			fmt.Printf("Server healthy: %s\n", string(body))
			return nil
		},
	}
}
