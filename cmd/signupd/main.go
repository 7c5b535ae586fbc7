// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"signupd/internal/config"
	"signupd/internal/secrets"
	"signupd/internal/server"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cmd := &cli.Command{
		Name:    "signupd",
		Usage:   "User sign-up and token issuance service",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server",
				Flags:  config.Flags(),
				Action: server.Run,
			},
			{
				Name:   "keygen",
				Usage:  "Print a fresh 256-bit signing key",
				Action: runKeygen,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runKeygen(ctx context.Context, cmd *cli.Command) error {
	key, err := secrets.NewToken()
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}
