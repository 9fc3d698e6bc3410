package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/version"
)

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Println("nlq", version.String())
			return nil
		},
	}
}
