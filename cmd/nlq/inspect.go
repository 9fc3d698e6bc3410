package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/checkpoint"
)

func inspectCmd() *cli.Command {
	var dir string

	return &cli.Command{
		Name:  "inspect",
		Usage: "List the checkpoints in a model directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Usage:       "model directory",
				Required:    true,
				Destination: &dir,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store := &checkpoint.Store{Dir: dir, Name: "", Ext: checkpoint.DefaultExt}
			paths, err := store.List()
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no checkpoints in %s", dir)
			}
			for _, p := range paths {
				info, err := os.Stat(p)
				if err != nil {
					return err
				}
				fmt.Printf("%s\t%d bytes\t%s\n",
					filepath.Base(p), info.Size(), info.ModTime().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
